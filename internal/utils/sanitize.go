package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// remoteNamePattern matches names that are safe to embed in a remote shell
// command: service names, container names, systemd unit names.
var remoteNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._@-]*$`)

// ValidateRemoteName rejects names that could alter a remote command when
// interpolated. Names come from discovery output and user input, and end up
// inside systemctl/docker invocations over SSH.
func ValidateRemoteName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("name is empty")
	}
	if len(trimmed) > 255 {
		return fmt.Errorf("name exceeds 255 characters")
	}
	if !remoteNamePattern.MatchString(trimmed) {
		return fmt.Errorf("name %q contains characters not allowed in remote commands", name)
	}
	return nil
}

// NormalizeName trims whitespace and lowercases a service name for
// comparison. Stored and discovered names are matched with this form.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
