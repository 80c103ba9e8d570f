// Package frontend implements the RPC Frontend (component A): it decodes
// inbound JSON-RPC 2.0 messages, routes by method name, and serializes
// responses or error objects, never returning a partial result.
package frontend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/jsonrpc"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry"
	"github.com/Songjaeheon0923/Fin-Hub/internal/reqctx"
	"github.com/Songjaeheon0923/Fin-Hub/internal/telemetry"
)

// ToolLister returns the currently-advertised tool descriptors.
type ToolLister interface {
	ListTools(ctx context.Context, filter registry.Filter) ([]registry.ToolDescriptor, error)
}

// Dispatcher invokes a named tool and returns its raw JSON result.
type Dispatcher interface {
	Dispatch(ctx context.Context, rc reqctx.RequestContext, toolName string, arguments []byte) ([]byte, error)
}

// ServerInfo identifies this hub build for the initialize handshake.
type ServerInfo struct {
	Name    string
	Version string
}

// Config parameterizes the frontend.
type Config struct {
	DefaultCallTimeout time.Duration
}

// DefaultConfig returns the frontend's documented defaults.
func DefaultConfig() Config {
	return Config{DefaultCallTimeout: 30 * time.Second}
}

// Server is the JSON-RPC frontend: decode, route, encode.
type Server struct {
	info       ServerInfo
	tools      ToolLister
	dispatcher Dispatcher
	cfg        Config
	logger     telemetry.Logger
	metrics    telemetry.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger overrides the default no-op logger.
func WithLogger(l telemetry.Logger) Option { return func(s *Server) { s.logger = l } }

// WithMetrics overrides the default no-op metrics recorder.
func WithMetrics(m telemetry.Metrics) Option { return func(s *Server) { s.metrics = m } }

// New constructs a Server.
func New(info ServerInfo, tools ToolLister, dispatcher Dispatcher, cfg Config, opts ...Option) *Server {
	s := &Server{
		info:       info,
		tools:      tools,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     telemetry.NewNoopLogger(),
		metrics:    telemetry.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle decodes req, routes it by method, and returns a Response. It
// returns nil for a notification (no id), per JSON-RPC 2.0 semantics.
func (s *Server) Handle(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	var id *jsonrpc.ID
	if req.ID != nil {
		id = req.ID
	}

	var resp *jsonrpc.Response
	switch req.Method {
	case "initialize":
		resp = s.handleInitialize(id)
	case "ping":
		resp = s.handlePing(id)
	case "tools/list":
		resp = s.handleToolsList(ctx, id)
	case "tools/call":
		resp = s.handleToolsCall(ctx, id, req.Params)
	default:
		resp = errorResponse(id, ferrors.New(ferrors.KindMethodNotFound, "unknown method "+req.Method))
	}
	if req.IsNotification() {
		return nil
	}
	return resp
}

func (s *Server) handleInitialize(id *jsonrpc.ID) *jsonrpc.Response {
	resp, err := jsonrpc.NewResult(id, jsonrpc.InitializeResult{
		ProtocolVersion: "2024-11-05",
		ServerInfo:      jsonrpc.ServerInfo{Name: s.info.Name, Version: s.info.Version},
	})
	if err != nil {
		return errorResponse(id, ferrors.Wrap(ferrors.KindInternal, "encode initialize result", err))
	}
	return resp
}

func (s *Server) handlePing(id *jsonrpc.ID) *jsonrpc.Response {
	resp, _ := jsonrpc.NewResult(id, struct{}{})
	return resp
}

func (s *Server) handleToolsList(ctx context.Context, id *jsonrpc.ID) *jsonrpc.Response {
	tools, err := s.tools.ListTools(ctx, registry.Filter{MinStatus: registry.StatusPassing})
	if err != nil {
		return errorResponse(id, err)
	}
	wire := make([]jsonrpc.ToolDescriptorWire, 0, len(tools))
	for _, t := range tools {
		wire = append(wire, jsonrpc.ToolDescriptorWire{
			Name:        t.QualifiedName,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	resp, err := jsonrpc.NewResult(id, jsonrpc.ToolsListResult{Tools: wire})
	if err != nil {
		return errorResponse(id, ferrors.Wrap(ferrors.KindInternal, "encode tools/list result", err))
	}
	return resp
}

func (s *Server) handleToolsCall(ctx context.Context, id *jsonrpc.ID, params []byte) *jsonrpc.Response {
	var callParams jsonrpc.ToolsCallParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return errorResponse(id, ferrors.Wrap(ferrors.KindInvalidParams, "malformed tools/call params", err))
	}
	if callParams.Name == "" {
		return errorResponse(id, ferrors.New(ferrors.KindInvalidParams, "tools/call requires a name"))
	}

	rc := reqctx.RequestContext{
		CorrelationID: uuid.New().String(),
		Deadline:      time.Now().Add(s.cfg.DefaultCallTimeout),
	}

	result, err := s.dispatcher.Dispatch(ctx, rc, callParams.Name, callParams.Arguments)
	if err != nil {
		return errorResponse(id, err)
	}

	resp := &jsonrpc.Response{JSONRPC: jsonrpc.Version, ID: id, Result: result}
	return resp
}

func errorResponse(id *jsonrpc.ID, err error) *jsonrpc.Response {
	var fe *ferrors.Error
	if stderrors.As(err, &fe) {
		return jsonrpc.NewError(id, ferrors.Code(fe.Kind), fe.Message, fe.Data)
	}
	return jsonrpc.NewError(id, ferrors.Code(ferrors.KindInternal), err.Error(), nil)
}
