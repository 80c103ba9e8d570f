package jsonrpc_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Songjaeheon0923/Fin-Hub/internal/jsonrpc"
)

func TestRequestUnmarshalNotification(t *testing.T) {
	var req jsonrpc.Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"ping"}`), &req))
	assert.True(t, req.IsNotification())
	assert.Equal(t, "ping", req.Method)
}

func TestRequestUnmarshalWithStringID(t *testing.T) {
	var req jsonrpc.Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":"abc-1","method":"tools/list"}`), &req))
	assert.False(t, req.IsNotification())
}

func TestNewResultRoundTrip(t *testing.T) {
	id := jsonrpc.NewID("req-1")
	resp, err := jsonrpc.NewResult(&id, map[string]string{"symbol": "AAPL"})
	require.NoError(t, err)
	assert.Nil(t, resp.Error)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"req-1","result":{"symbol":"AAPL"}}`, string(out))
}

func TestNewErrorNeverCarriesResult(t *testing.T) {
	id := jsonrpc.NewID(float64(7))
	resp := jsonrpc.NewError(&id, -32001, "tool not found", nil)
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":7,"error":{"code":-32001,"message":"tool not found"}}`, string(out))
}

func TestResponseWithNullID(t *testing.T) {
	resp := jsonrpc.NewError(nil, -32700, "parse error", nil)
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"parse error"}}`, string(out))
}
