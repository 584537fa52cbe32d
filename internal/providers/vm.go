package providers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/opsimate/opsimate/internal/database"
	"github.com/opsimate/opsimate/internal/utils"
)

// VMConnector reaches a provider over SSH. It discovers docker containers,
// operates docker and systemd services, and probes systemd unit status.
type VMConnector struct {
	// ConnectionTimeout bounds the SSH dial so a hung host cannot stall a
	// refresh cycle.
	ConnectionTimeout time.Duration
	// CommandTimeout bounds a single remote command.
	CommandTimeout time.Duration
}

// NewVMConnector creates a VM connector with default timeouts
func NewVMConnector() *VMConnector {
	return &VMConnector{
		ConnectionTimeout: 10 * time.Second,
		CommandTimeout:    30 * time.Second,
	}
}

// DiscoverServices lists running docker containers on the host
func (c *VMConnector) DiscoverServices(ctx context.Context, provider *database.Provider) ([]DiscoveredService, error) {
	out, err := c.runCommand(ctx, provider, `docker ps -a --format '{{.Names}}|{{.Status}}|{{.Image}}'`)
	if err != nil {
		return nil, fmt.Errorf("docker discovery on %s failed: %w", provider.Host, err)
	}
	return parseDockerPS(out, provider.Host), nil
}

// parseDockerPS converts docker ps output lines into discovered services.
// Status is inferred from an "up"-substring heuristic on the status text.
func parseDockerPS(output, hostIP string) []DiscoveredService {
	var services []DiscoveredService
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 2 {
			continue
		}

		status := database.ServiceStatusStopped
		if strings.Contains(strings.ToLower(parts[1]), "up") {
			status = database.ServiceStatusRunning
		}

		details := database.JSONB{}
		if len(parts) == 3 {
			details["image"] = strings.TrimSpace(parts[2])
		}

		services = append(services, DiscoveredService{
			Name:             strings.TrimSpace(parts[0]),
			Type:             database.ServiceTypeDocker,
			Status:           status,
			IP:               hostIP,
			ContainerDetails: details,
		})
	}
	return services
}

// StartService starts a docker container or systemd unit
func (c *VMConnector) StartService(ctx context.Context, provider *database.Provider, service *database.Service) error {
	cmd, err := serviceCommand(service, "start")
	if err != nil {
		return err
	}
	if _, err := c.runCommand(ctx, provider, cmd); err != nil {
		return fmt.Errorf("failed to start %s on %s: %w", service.Name, provider.Host, err)
	}
	return nil
}

// StopService stops a docker container or systemd unit
func (c *VMConnector) StopService(ctx context.Context, provider *database.Provider, service *database.Service) error {
	cmd, err := serviceCommand(service, "stop")
	if err != nil {
		return err
	}
	if _, err := c.runCommand(ctx, provider, cmd); err != nil {
		return fmt.Errorf("failed to stop %s on %s: %w", service.Name, provider.Host, err)
	}
	return nil
}

// serviceCommand builds the remote start/stop command for a service
func serviceCommand(service *database.Service, action string) (string, error) {
	name := strings.TrimSpace(service.Name)
	if err := utils.ValidateRemoteName(name); err != nil {
		return "", err
	}
	switch service.Type {
	case database.ServiceTypeSystemd:
		return fmt.Sprintf("sudo systemctl %s %s", action, name), nil
	default:
		return fmt.Sprintf("docker %s %s", action, name), nil
	}
}

// ProbeStatus checks the live status of a systemd unit (or container) on the
// host, bypassing the discovery snapshot.
func (c *VMConnector) ProbeStatus(ctx context.Context, provider *database.Provider, service *database.Service) (database.ServiceStatus, error) {
	name := strings.TrimSpace(service.Name)
	if err := utils.ValidateRemoteName(name); err != nil {
		return database.ServiceStatusUnknown, err
	}

	if service.Type == database.ServiceTypeSystemd {
		// is-active exits non-zero for anything but "active"; the state word
		// still lands on stdout, so inspect the output rather than the error.
		out, _ := c.runCommand(ctx, provider, fmt.Sprintf("systemctl is-active %s", name))
		state := strings.TrimSpace(out)
		if state == "" {
			return database.ServiceStatusUnknown, fmt.Errorf("empty systemd status for %s on %s", name, provider.Host)
		}
		switch state {
		case "active", "activating":
			return database.ServiceStatusRunning, nil
		case "failed":
			return database.ServiceStatusError, nil
		default: // inactive, deactivating, unknown unit
			return database.ServiceStatusStopped, nil
		}
	}

	out, err := c.runCommand(ctx, provider, fmt.Sprintf("docker inspect -f '{{.State.Status}}' %s", name))
	if err != nil {
		return database.ServiceStatusUnknown, err
	}
	if strings.TrimSpace(out) == "running" {
		return database.ServiceStatusRunning, nil
	}
	return database.ServiceStatusStopped, nil
}

// ServiceLogs fetches the last hour of error-filtered logs for a service
func (c *VMConnector) ServiceLogs(ctx context.Context, provider *database.Provider, service *database.Service) ([]string, error) {
	name := strings.TrimSpace(service.Name)
	if err := utils.ValidateRemoteName(name); err != nil {
		return nil, err
	}

	var cmd string
	if service.Type == database.ServiceTypeSystemd {
		cmd = fmt.Sprintf("journalctl -u %s --since '-1 hour' -p err --no-pager -n 100", name)
	} else {
		// grep exits 1 on no matches; the trailing true keeps that from
		// reading as a command failure.
		cmd = fmt.Sprintf("docker logs --since 1h %s 2>&1 | grep -i error | tail -n 100; true", name)
	}

	out, err := c.runCommand(ctx, provider, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs for %s on %s: %w", name, provider.Host, err)
	}

	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return []string{NoLogsSentinel}, nil
	}
	return lines, nil
}

// runCommand executes one command on the provider host over SSH. The dial is
// bounded by ConnectionTimeout and the command by CommandTimeout; once a
// timeout fires the underlying connection is closed by the deferred Close.
func (c *VMConnector) runCommand(ctx context.Context, provider *database.Provider, command string) (string, error) {
	signer, err := ssh.ParsePrivateKey([]byte(provider.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	clientConfig := &ssh.ClientConfig{
		User: provider.Username,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.ConnectionTimeout,
	}

	port := provider.Port
	if port == 0 {
		port = 22
	}
	addr := fmt.Sprintf("%s:%d", provider.Host, port)

	conn, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return "", fmt.Errorf("connection to %s failed: %w", addr, err)
	}
	defer conn.Close()

	session, err := conn.NewSession()
	if err != nil {
		return "", fmt.Errorf("session creation failed: %w", err)
	}
	defer session.Close()

	type commandResult struct {
		stdout string
		stderr string
		err    error
	}

	resultChan := make(chan commandResult, 1)
	go func() {
		var stdout, stderr strings.Builder
		session.Stdout = &stdout
		session.Stderr = &stderr
		err := session.Run(command)
		resultChan <- commandResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(c.CommandTimeout):
		return "", fmt.Errorf("command timed out on %s", addr)
	case result := <-resultChan:
		if result.err != nil {
			if exitErr, ok := result.err.(*ssh.ExitError); ok {
				log.Printf("Remote command exited %d on %s: %s", exitErr.ExitStatus(), addr, strings.TrimSpace(result.stderr))
				return result.stdout, fmt.Errorf("remote command exited %d: %s", exitErr.ExitStatus(), strings.TrimSpace(result.stderr))
			}
			return result.stdout, result.err
		}
		return result.stdout, nil
	}
}
