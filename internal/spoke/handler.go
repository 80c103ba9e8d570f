// Package spoke implements the Spoke Runtime (component D): a process that
// hosts a tagged table of tool handlers, registers itself with the hub,
// maintains a heartbeat and health endpoint, and serves tool calls over
// HTTP (POST /tools/call with a plain JSON body, see Router). It does not
// serve tools/list over the wire, and it does not speak JSON-RPC.
package spoke

import (
	"context"
	"encoding/json"

	"github.com/Songjaeheon0923/Fin-Hub/internal/reqctx"
)

// Handler is one tool's implementation. Arguments arrive pre-validated
// against InputSchema; the handler reports a result or a ferrors-tagged
// failure (see internal/ferrors) which the caller maps to KindHandlerFailure
// if untagged.
type Handler func(ctx context.Context, rc reqctx.RequestContext, arguments json.RawMessage) (any, error)

// ToolRegistration pairs a handler with its advertised descriptor fields.
type ToolRegistration struct {
	QualifiedName string
	Description   string
	InputSchema   json.RawMessage
	OutputSchema  json.RawMessage
	Handler       Handler
}
