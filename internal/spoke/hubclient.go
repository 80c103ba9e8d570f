package spoke

import (
	"context"

	"github.com/Songjaeheon0923/Fin-Hub/internal/registry"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/transport"
)

// TransportHubClient adapts a registry transport.Client to the spoke's
// HubClient seam, translating between the registry's storage types and
// the spoke's decoupled RegisterInput/ToolRegistration.
type TransportHubClient struct {
	Client *transport.Client
}

// NewTransportHubClient wraps client.
func NewTransportHubClient(client *transport.Client) *TransportHubClient {
	return &TransportHubClient{Client: client}
}

// Register implements HubClient.
func (h *TransportHubClient) Register(ctx context.Context, in RegisterInput) (string, error) {
	tools := make([]registry.ToolDescriptor, 0, len(in.Tools))
	for _, t := range in.Tools {
		tools = append(tools, registry.ToolDescriptor{
			QualifiedName: t.QualifiedName,
			Description:   t.Description,
			InputSchema:   t.InputSchema,
			OutputSchema:  t.OutputSchema,
		})
	}
	inst, err := h.Client.Register(ctx, registry.RegisterInput{
		Name:           in.Name,
		Address:        in.Address,
		Tags:           in.Tags,
		Metadata:       in.Metadata,
		HealthEndpoint: in.HealthEndpoint,
		Tools:          tools,
	})
	if err != nil {
		return "", err
	}
	return inst.ID, nil
}

// Heartbeat implements HubClient.
func (h *TransportHubClient) Heartbeat(ctx context.Context, instanceID string) error {
	return h.Client.Heartbeat(ctx, instanceID)
}

// Deregister implements HubClient.
func (h *TransportHubClient) Deregister(ctx context.Context, instanceID string) error {
	return h.Client.Deregister(ctx, instanceID)
}
