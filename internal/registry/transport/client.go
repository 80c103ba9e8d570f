package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry"
)

// Client calls a hub's registry HTTP interface. Used by spokes for
// register/heartbeat/deregister and by any out-of-process discovery
// caller.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client against baseURL (e.g. "http://hub:8080"),
// using http.DefaultClient if httpClient is nil.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: baseURL, HTTPClient: httpClient}
}

// Register calls POST /registry/register.
func (c *Client) Register(ctx context.Context, in registry.RegisterInput) (registry.ServiceInstance, error) {
	var inst registry.ServiceInstance
	err := c.do(ctx, http.MethodPost, "/registry/register", in, &inst)
	return inst, err
}

// Heartbeat calls POST /registry/{instanceId}/heartbeat.
func (c *Client) Heartbeat(ctx context.Context, instanceID string) error {
	return c.do(ctx, http.MethodPost, "/registry/"+instanceID+"/heartbeat", nil, nil)
}

// Deregister calls DELETE /registry/{instanceId}.
func (c *Client) Deregister(ctx context.Context, instanceID string) error {
	return c.do(ctx, http.MethodDelete, "/registry/"+instanceID, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return ferrors.Wrap(ferrors.KindInternal, "encode request body", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return ferrors.Wrap(ferrors.KindInternal, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return ferrors.Wrap(ferrors.KindTransient, "registry request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return ferrors.Errorf(classifyStatus(resp.StatusCode), "registry returned %s: %s", resp.Status, string(respBody))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ferrors.Wrap(ferrors.KindInternal, "decode registry response", err)
	}
	return nil
}

func classifyStatus(status int) ferrors.Kind {
	switch {
	case status == http.StatusNotFound:
		return ferrors.KindToolNotFound
	case status == http.StatusServiceUnavailable:
		return ferrors.KindNoHealthyInstance
	case status >= 500:
		return ferrors.KindTransient
	default:
		return ferrors.KindInvalidRequest
	}
}
