package providers

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opsimate/opsimate/internal/database"
)

// KubernetesConnector reaches a cluster through the API server, authenticated
// by the kubeconfig stored on the provider. Deployments are the unit of
// service: stop scales to zero, start scales back to one replica.
type KubernetesConnector struct {
	RequestTimeout time.Duration
}

// NewKubernetesConnector creates a Kubernetes connector with default timeouts
func NewKubernetesConnector() *KubernetesConnector {
	return &KubernetesConnector{RequestTimeout: 15 * time.Second}
}

// kubeconfig is the subset of the kubeconfig format the connector needs
type kubeconfig struct {
	CurrentContext string `yaml:"current-context"`
	Clusters       []struct {
		Name    string `yaml:"name"`
		Cluster struct {
			Server                   string `yaml:"server"`
			CertificateAuthorityData string `yaml:"certificate-authority-data"`
			InsecureSkipTLSVerify    bool   `yaml:"insecure-skip-tls-verify"`
		} `yaml:"cluster"`
	} `yaml:"clusters"`
	Contexts []struct {
		Name    string `yaml:"name"`
		Context struct {
			Cluster   string `yaml:"cluster"`
			User      string `yaml:"user"`
			Namespace string `yaml:"namespace"`
		} `yaml:"context"`
	} `yaml:"contexts"`
	Users []struct {
		Name string `yaml:"name"`
		User struct {
			Token                 string `yaml:"token"`
			ClientCertificateData string `yaml:"client-certificate-data"`
			ClientKeyData         string `yaml:"client-key-data"`
		} `yaml:"user"`
	} `yaml:"users"`
}

// clusterClient is a resolved connection to one cluster
type clusterClient struct {
	server    string
	namespace string
	token     string
	http      *http.Client
}

// newClusterClient resolves the current context of a kubeconfig into an HTTP
// client for the API server.
func (c *KubernetesConnector) newClusterClient(provider *database.Provider) (*clusterClient, error) {
	var cfg kubeconfig
	if err := yaml.Unmarshal([]byte(provider.Kubeconfig), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse kubeconfig: %w", err)
	}

	ctxName := cfg.CurrentContext
	if ctxName == "" && len(cfg.Contexts) > 0 {
		ctxName = cfg.Contexts[0].Name
	}

	var clusterName, userName, namespace string
	for _, kctx := range cfg.Contexts {
		if kctx.Name == ctxName {
			clusterName = kctx.Context.Cluster
			userName = kctx.Context.User
			namespace = kctx.Context.Namespace
			break
		}
	}
	if namespace == "" {
		namespace = "default"
	}

	client := &clusterClient{namespace: namespace}

	tlsConfig := &tls.Config{}
	for _, cluster := range cfg.Clusters {
		if cluster.Name != clusterName {
			continue
		}
		client.server = strings.TrimSuffix(cluster.Cluster.Server, "/")
		tlsConfig.InsecureSkipVerify = cluster.Cluster.InsecureSkipTLSVerify
		if cluster.Cluster.CertificateAuthorityData != "" {
			caBytes, err := base64.StdEncoding.DecodeString(cluster.Cluster.CertificateAuthorityData)
			if err != nil {
				return nil, fmt.Errorf("failed to decode cluster CA: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caBytes) {
				return nil, fmt.Errorf("kubeconfig CA contains no valid certificates")
			}
			tlsConfig.RootCAs = pool
		}
	}
	if client.server == "" {
		return nil, fmt.Errorf("kubeconfig has no server for context %q", ctxName)
	}

	for _, user := range cfg.Users {
		if user.Name != userName {
			continue
		}
		client.token = user.User.Token
		if user.User.ClientCertificateData != "" && user.User.ClientKeyData != "" {
			certBytes, err := base64.StdEncoding.DecodeString(user.User.ClientCertificateData)
			if err != nil {
				return nil, fmt.Errorf("failed to decode client certificate: %w", err)
			}
			keyBytes, err := base64.StdEncoding.DecodeString(user.User.ClientKeyData)
			if err != nil {
				return nil, fmt.Errorf("failed to decode client key: %w", err)
			}
			cert, err := tls.X509KeyPair(certBytes, keyBytes)
			if err != nil {
				return nil, fmt.Errorf("failed to load client key pair: %w", err)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}
	}

	client.http = &http.Client{
		Timeout:   c.RequestTimeout,
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	}
	return client, nil
}

// do issues one API server request and decodes the JSON response into out
func (cc *clusterClient) do(ctx context.Context, method, path string, body []byte, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, cc.server+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if cc.token != "" {
		req.Header.Set("Authorization", "Bearer "+cc.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := cc.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api server returned %d for %s: %s", resp.StatusCode, path, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// deploymentList mirrors the fields of apps/v1 DeploymentList the connector reads
type deploymentList struct {
	Items []deployment `json:"items"`
}

type deployment struct {
	Metadata struct {
		Name      string `json:"name"`
		Namespace string `json:"namespace"`
	} `json:"metadata"`
	Spec struct {
		Replicas int `json:"replicas"`
		Template struct {
			Spec struct {
				Containers []struct {
					Image string `json:"image"`
				} `json:"containers"`
			} `json:"spec"`
		} `json:"template"`
	} `json:"spec"`
	Status struct {
		ReadyReplicas int `json:"readyReplicas"`
	} `json:"status"`
}

// DiscoverServices lists deployments across all namespaces
func (c *KubernetesConnector) DiscoverServices(ctx context.Context, provider *database.Provider) ([]DiscoveredService, error) {
	client, err := c.newClusterClient(provider)
	if err != nil {
		return nil, err
	}

	var list deploymentList
	if err := client.do(ctx, http.MethodGet, "/apis/apps/v1/deployments", nil, "", &list); err != nil {
		return nil, fmt.Errorf("deployment discovery failed: %w", err)
	}

	services := make([]DiscoveredService, 0, len(list.Items))
	for _, item := range list.Items {
		status := database.ServiceStatusStopped
		if item.Status.ReadyReplicas > 0 {
			status = database.ServiceStatusRunning
		}

		details := database.JSONB{"namespace": item.Metadata.Namespace}
		if len(item.Spec.Template.Spec.Containers) > 0 {
			details["image"] = item.Spec.Template.Spec.Containers[0].Image
		}

		services = append(services, DiscoveredService{
			Name:             item.Metadata.Name,
			Type:             database.ServiceTypeKubernetes,
			Status:           status,
			ContainerDetails: details,
		})
	}
	return services, nil
}

// StartService scales the deployment back up to one replica
func (c *KubernetesConnector) StartService(ctx context.Context, provider *database.Provider, service *database.Service) error {
	return c.scale(ctx, provider, service, 1)
}

// StopService scales the deployment to zero
func (c *KubernetesConnector) StopService(ctx context.Context, provider *database.Provider, service *database.Service) error {
	return c.scale(ctx, provider, service, 0)
}

func (c *KubernetesConnector) scale(ctx context.Context, provider *database.Provider, service *database.Service, replicas int) error {
	client, err := c.newClusterClient(provider)
	if err != nil {
		return err
	}

	namespace := serviceNamespace(service, client.namespace)
	path := fmt.Sprintf("/apis/apps/v1/namespaces/%s/deployments/%s/scale",
		url.PathEscape(namespace), url.PathEscape(service.Name))
	body := []byte(fmt.Sprintf(`{"spec":{"replicas":%d}}`, replicas))

	if err := client.do(ctx, http.MethodPatch, path, body, "application/merge-patch+json", nil); err != nil {
		return fmt.Errorf("failed to scale %s/%s to %d: %w", namespace, service.Name, replicas, err)
	}
	return nil
}

// ProbeStatus reads the deployment's ready replica count
func (c *KubernetesConnector) ProbeStatus(ctx context.Context, provider *database.Provider, service *database.Service) (database.ServiceStatus, error) {
	client, err := c.newClusterClient(provider)
	if err != nil {
		return database.ServiceStatusUnknown, err
	}

	namespace := serviceNamespace(service, client.namespace)
	path := fmt.Sprintf("/apis/apps/v1/namespaces/%s/deployments/%s",
		url.PathEscape(namespace), url.PathEscape(service.Name))

	var item deployment
	if err := client.do(ctx, http.MethodGet, path, nil, "", &item); err != nil {
		return database.ServiceStatusUnknown, err
	}
	if item.Status.ReadyReplicas > 0 {
		return database.ServiceStatusRunning, nil
	}
	return database.ServiceStatusStopped, nil
}

// podList mirrors the fields of v1 PodList the connector reads
type podList struct {
	Items []struct {
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
	} `json:"items"`
}

// ServiceLogs fetches the last hour of error-filtered logs from the pods of a
// deployment
func (c *KubernetesConnector) ServiceLogs(ctx context.Context, provider *database.Provider, service *database.Service) ([]string, error) {
	client, err := c.newClusterClient(provider)
	if err != nil {
		return nil, err
	}

	namespace := serviceNamespace(service, client.namespace)
	selector := url.QueryEscape("app=" + service.Name)
	var pods podList
	path := fmt.Sprintf("/api/v1/namespaces/%s/pods?labelSelector=%s", url.PathEscape(namespace), selector)
	if err := client.do(ctx, http.MethodGet, path, nil, "", &pods); err != nil {
		return nil, fmt.Errorf("failed to list pods for %s/%s: %w", namespace, service.Name, err)
	}

	var lines []string
	for _, pod := range pods.Items {
		logPath := fmt.Sprintf("/api/v1/namespaces/%s/pods/%s/log?sinceSeconds=3600&tailLines=100",
			url.PathEscape(namespace), url.PathEscape(pod.Metadata.Name))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.server+logPath, nil)
		if err != nil {
			return nil, err
		}
		if client.token != "" {
			req.Header.Set("Authorization", "Bearer "+client.token)
		}
		resp, err := client.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch logs for pod %s: %w", pod.Metadata.Name, err)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		for _, line := range strings.Split(string(data), "\n") {
			if strings.Contains(strings.ToLower(line), "error") {
				lines = append(lines, fmt.Sprintf("[%s] %s", pod.Metadata.Name, line))
			}
		}
	}

	if len(lines) == 0 {
		return []string{NoLogsSentinel}, nil
	}
	return lines, nil
}

// serviceNamespace prefers the namespace recorded at discovery time
func serviceNamespace(service *database.Service, fallback string) string {
	if service.ContainerDetails != nil {
		if ns, ok := service.ContainerDetails["namespace"].(string); ok && ns != "" {
			return ns
		}
	}
	return fallback
}
