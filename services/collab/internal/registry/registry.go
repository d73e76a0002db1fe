// Package registry registers this service instance with the external API
// gateway and sends periodic heartbeats so the gateway keeps routing to it.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cs3219-g21/roommanager/internal/logging"
)

// Route is one entry of the static OpenAPI-style route declaration the
// gateway uses for authorization (a per-operation role list).
type Route struct {
	Path   string   `json:"path"`
	Method string   `json:"method"`
	Roles  []string `json:"roles"`
}

type registerPayload struct {
	ServiceName string  `json:"service_name"`
	InstanceID  string  `json:"instance_id"`
	Address     string  `json:"address"`
	OpenAPI     []Route `json:"openapi"`
}

type heartbeatPayload struct {
	ServiceName string `json:"service_name"`
	InstanceID  string `json:"instance_id"`
}

// Client registers with and heartbeats to the gateway.
type Client struct {
	httpClient *http.Client
	log        *logging.Logger

	gatewayURL    string
	registerPath  string
	heartbeatPath string

	serviceName string
	instanceID  string
	address     string
	routes      []Route
}

// New constructs a registry Client with a freshly generated instance id.
func New(log *logging.Logger, gatewayURL, registerPath, heartbeatPath, serviceName, address string, routes []Route) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 5 * time.Second},
		log:           log,
		gatewayURL:    gatewayURL,
		registerPath:  registerPath,
		heartbeatPath: heartbeatPath,
		serviceName:   serviceName,
		instanceID:    uuid.NewString(),
		address:       address,
		routes:        routes,
	}
}

// Register performs the one-shot startup registration POST. A blank
// gatewayURL disables registration (useful for tests/standalone runs).
func (c *Client) Register(ctx context.Context) error {
	if c.gatewayURL == "" {
		c.log.Info("registry: no APIGATEWAY_URL configured, skipping registration")
		return nil
	}
	body, err := json.Marshal(registerPayload{
		ServiceName: c.serviceName,
		InstanceID:  c.instanceID,
		Address:     c.address,
		OpenAPI:     c.routes,
	})
	if err != nil {
		return err
	}
	return c.post(ctx, c.registerPath, body)
}

// StartHeartbeat blocks, POSTing a heartbeat every period until ctx is
// cancelled. Transient failures are logged, never fatal.
func (c *Client) StartHeartbeat(ctx context.Context, period time.Duration) {
	if c.gatewayURL == "" {
		return
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			body, err := json.Marshal(heartbeatPayload{ServiceName: c.serviceName, InstanceID: c.instanceID})
			if err != nil {
				c.log.Warn("registry: marshal heartbeat failed", err)
				continue
			}
			if err := c.post(ctx, c.heartbeatPath, body); err != nil {
				c.log.Warn("registry: heartbeat failed", err)
			}
		}
	}
}

func (c *Client) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("registry: %s returned status %d", path, resp.StatusCode)
	}
	return nil
}
