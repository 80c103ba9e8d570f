// Package spokehttp is the HTTP-transported router.SpokeCaller: it POSTs
// a tool invocation to a registered spoke instance's address and
// classifies the response into the ferrors taxonomy.
package spokehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry"
)

// Client invokes tools over HTTP against a spoke's /tools/call endpoint.
type Client struct {
	HTTPClient *http.Client
}

// NewClient constructs a Client. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTPClient: httpClient}
}

type callRequest struct {
	QualifiedName string          `json:"qualifiedName"`
	Arguments     json.RawMessage `json:"arguments"`
	CorrelationID string          `json:"correlationId"`
}

// CallTool satisfies router.SpokeCaller.
func (c *Client) CallTool(ctx context.Context, inst registry.ServiceInstance, toolName string, arguments []byte) ([]byte, error) {
	body, err := json.Marshal(callRequest{QualifiedName: toolName, Arguments: arguments})
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindInternal, "marshal call request failed", err)
	}

	url := fmt.Sprintf("http://%s/tools/call", inst.Address)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindInternal, "build call request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindTransient, "spoke call transport error", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindTransient, "read spoke response failed", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyError(resp.StatusCode, respBody)
	}

	var raw json.RawMessage
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, ferrors.Wrap(ferrors.KindTransient, "malformed spoke response", err)
	}
	return raw, nil
}

func classifyError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	message := payload.Error
	if message == "" {
		message = fmt.Sprintf("spoke call failed with status %d", status)
	}

	switch status {
	case http.StatusNotFound:
		return ferrors.New(ferrors.KindMethodNotFound, message)
	case http.StatusBadRequest:
		return ferrors.New(ferrors.KindInvalidParams, message)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ferrors.New(ferrors.KindTransient, message)
	default:
		return ferrors.New(ferrors.KindTransient, message)
	}
}
