package spoke_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/reqctx"
	"github.com/Songjaeheon0923/Fin-Hub/internal/spoke"
)

type fakeHub struct {
	registerErr error
	registered  int
	id          string
	heartbeats  int
	deregistered bool
}

func (f *fakeHub) Register(context.Context, spoke.RegisterInput) (string, error) {
	f.registered++
	if f.registerErr != nil {
		return "", f.registerErr
	}
	return "inst-1", nil
}

func (f *fakeHub) Heartbeat(context.Context, string) error {
	f.heartbeats++
	return nil
}

func (f *fakeHub) Deregister(context.Context, string) error {
	f.deregistered = true
	return nil
}

const quoteSchema = `{"type":"object","required":["symbol"],"properties":{"symbol":{"type":"string"}}}`

func TestDispatchValidatesArgumentsAndInvokesHandler(t *testing.T) {
	hub := &fakeHub{}
	rt := spoke.New("market-spoke", "127.0.0.1:9001", hub)
	rt.RegisterTool(spoke.ToolRegistration{
		QualifiedName: "market.quote",
		InputSchema:   json.RawMessage(quoteSchema),
		Handler: func(_ context.Context, _ reqctx.RequestContext, args json.RawMessage) (any, error) {
			var in struct{ Symbol string `json:"symbol"` }
			_ = json.Unmarshal(args, &in)
			return map[string]string{"symbol": in.Symbol}, nil
		},
	})

	out, err := rt.Dispatch(context.Background(), reqctx.RequestContext{}, "market.quote", json.RawMessage(`{"symbol":"AAPL"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"symbol": "AAPL"}, out)
}

func TestDispatchRejectsInvalidArguments(t *testing.T) {
	hub := &fakeHub{}
	rt := spoke.New("market-spoke", "127.0.0.1:9001", hub)
	rt.RegisterTool(spoke.ToolRegistration{
		QualifiedName: "market.quote",
		InputSchema:   json.RawMessage(quoteSchema),
		Handler: func(context.Context, reqctx.RequestContext, json.RawMessage) (any, error) {
			t.Fatal("handler must not run on invalid arguments")
			return nil, nil
		},
	})

	_, err := rt.Dispatch(context.Background(), reqctx.RequestContext{}, "market.quote", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Equal(t, ferrors.KindInvalidParams, ferrors.KindOf(err))
}

func TestDispatchUnknownToolIsMethodNotFound(t *testing.T) {
	rt := spoke.New("market-spoke", "127.0.0.1:9001", &fakeHub{})
	_, err := rt.Dispatch(context.Background(), reqctx.RequestContext{}, "nope", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Equal(t, ferrors.KindMethodNotFound, ferrors.KindOf(err))
}

func TestDispatchWrapsUntaggedHandlerErrorAsHandlerFailure(t *testing.T) {
	rt := spoke.New("market-spoke", "127.0.0.1:9001", &fakeHub{})
	rt.RegisterTool(spoke.ToolRegistration{
		QualifiedName: "market.quote",
		Handler: func(context.Context, reqctx.RequestContext, json.RawMessage) (any, error) {
			return nil, errors.New("boom")
		},
	})

	_, err := rt.Dispatch(context.Background(), reqctx.RequestContext{}, "market.quote", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Equal(t, ferrors.KindHandlerFailure, ferrors.KindOf(err))
}

func TestStartRegistersAndBeginsHeartbeats(t *testing.T) {
	hub := &fakeHub{}
	rt := spoke.New("market-spoke", "127.0.0.1:9001", hub, spoke.WithConfig(spoke.Config{
		StartupRegistrationDeadline: time.Second,
		HeartbeatInterval:           10 * time.Millisecond,
		ShutdownGrace:                time.Second,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, rt.Start(ctx))
	assert.Equal(t, 1, hub.registered)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, rt.Shutdown(context.Background()))
	assert.True(t, hub.deregistered)
}

func TestHealthRouterReportsCriticalBeforeRegistration(t *testing.T) {
	rt := spoke.New("market-spoke", "127.0.0.1:9001", &fakeHub{})
	srv := httptest.NewServer(rt.HealthRouter())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Critical", body.Status)
}
