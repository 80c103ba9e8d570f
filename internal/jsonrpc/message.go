// Package jsonrpc defines the wire types for the JSON-RPC 2.0 / MCP message
// contract: requests, responses, errors, and the handful of MCP-specific
// result shapes (initialize, tools/list, tools/call).
package jsonrpc

import "encoding/json"

// Version is the only JSON-RPC version this hub speaks.
const Version = "2.0"

// ID is a JSON-RPC request identifier: a string, a number, or null.
// A nil ID marks a notification, which receives no response.
type ID struct {
	value any
}

// NewID wraps a string or numeric identifier.
func NewID(v any) ID { return ID{value: v} }

// IsNotification reports whether this ID represents the absence of an id
// field, i.e. the request is a notification.
func (id ID) IsNotification() bool { return id.value == nil }

// MarshalJSON renders the identifier as JSON null, string, or number.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON accepts a JSON null, string, or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &id.value)
}

// Request is an inbound JSON-RPC 2.0 message.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether this request carries no id and therefore
// expects no response.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response is an outbound JSON-RPC 2.0 message: exactly one of Result or
// Error is set, matching the "never returns a partial result" policy.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the JSON-RPC error payload.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewResult builds a successful Response, marshaling result into Result.
func NewResult(id *ID, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

// NewError builds a failed Response carrying the given error object.
func NewError(id *ID, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &ErrorObject{Code: code, Message: message, Data: data},
	}
}

// Initialize method shapes.

// InitializeResult is returned from the "initialize" method.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    Capabilities   `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}

// Capabilities declares the server's advertised capability set.
type Capabilities struct {
	Tools struct{} `json:"tools"`
}

// ServerInfo identifies the running hub.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Tools/list method shapes.

// ToolsListResult is returned from the "tools/list" method.
type ToolsListResult struct {
	Tools []ToolDescriptorWire `json:"tools"`
}

// ToolDescriptorWire is the wire shape of a ToolDescriptor on tools/list.
type ToolDescriptorWire struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Tools/call method shapes.

// ToolsCallParams is the params shape of the "tools/call" method.
type ToolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}
