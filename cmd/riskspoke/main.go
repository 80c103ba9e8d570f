// Command riskspoke runs a spoke process exposing risk-analysis tools
// (spec §4.4), computing value-at-risk over a supplied return series.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Songjaeheon0923/Fin-Hub/internal/config"
	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/transport"
	"github.com/Songjaeheon0923/Fin-Hub/internal/reqctx"
	"github.com/Songjaeheon0923/Fin-Hub/internal/spoke"
	"github.com/Songjaeheon0923/Fin-Hub/internal/telemetry"
)

const varInputSchema = `{
  "type": "object",
  "properties": {
    "returns": { "type": "array", "items": { "type": "number" }, "minItems": 1 },
    "confidence": { "type": "number", "minimum": 0, "maximum": 1 }
  },
  "required": ["returns"]
}`

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	address := flag.String("address", "127.0.0.1:9002", "address this spoke is reachable at")
	listenAddr := flag.String("listen", ":9002", "address to bind this spoke's HTTP server to")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "riskspoke: %v\n", err)
		return 1
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "riskspoke: failed to build logger: %v\n", err)
		return 1
	}
	defer zapLogger.Sync()
	logger := telemetry.NewZapLogger(zapLogger)

	hubClient := spoke.NewTransportHubClient(transport.NewClient(cfg.Spoke.HubAddress, nil))

	spokeCfg := spoke.DefaultConfig()
	spokeCfg.StartupRegistrationDeadline = cfg.Spoke.StartupRegistrationDeadline()
	spokeCfg.HeartbeatInterval = cfg.Spoke.HeartbeatInterval()
	spokeCfg.ShutdownGrace = cfg.Spoke.ShutdownGrace()

	rt := spoke.New("risk-spoke", *address, hubClient, spoke.WithLogger(logger), spoke.WithConfig(spokeCfg))
	rt.RegisterTool(spoke.ToolRegistration{
		QualifiedName: "risk.var",
		Description:   "Computes historical value-at-risk over a return series.",
		InputSchema:   json.RawMessage(varInputSchema),
		Handler:       varHandler,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "riskspoke: registration failed: %v\n", err)
		return 1
	}

	httpServer := &http.Server{Addr: *listenAddr, Handler: spoke.Router(rt)}
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "riskspoke listening", "listenAddr", *listenAddr, "address", *address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error(ctx, "riskspoke server error", "error", err.Error())
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	if err := rt.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "riskspoke deregister error", "error", err.Error())
		return 1
	}
	return 0
}

func varHandler(_ context.Context, _ reqctx.RequestContext, arguments json.RawMessage) (any, error) {
	var args struct {
		Returns    []float64 `json:"returns"`
		Confidence float64   `json:"confidence"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, ferrors.Wrap(ferrors.KindInvalidParams, "malformed risk.var arguments", err)
	}
	if len(args.Returns) == 0 {
		return nil, ferrors.New(ferrors.KindInvalidParams, "returns must be non-empty")
	}
	confidence := args.Confidence
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}

	sorted := append([]float64(nil), args.Returns...)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	valueAtRisk := -sorted[idx]

	return map[string]any{
		"confidence": confidence,
		"valueAtRisk": valueAtRisk,
		"sampleSize": len(sorted),
	}, nil
}
