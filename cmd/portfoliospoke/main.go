// Command portfoliospoke runs a spoke process exposing portfolio
// analysis tools (spec §4.4), computing weighted-allocation summaries.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
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

const optimizeInputSchema = `{
  "type": "object",
  "properties": {
    "holdings": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "symbol": { "type": "string" },
          "value": { "type": "number" }
        },
        "required": ["symbol", "value"]
      },
      "minItems": 1
    }
  },
  "required": ["holdings"]
}`

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	address := flag.String("address", "127.0.0.1:9003", "address this spoke is reachable at")
	listenAddr := flag.String("listen", ":9003", "address to bind this spoke's HTTP server to")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "portfoliospoke: %v\n", err)
		return 1
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "portfoliospoke: failed to build logger: %v\n", err)
		return 1
	}
	defer zapLogger.Sync()
	logger := telemetry.NewZapLogger(zapLogger)

	hubClient := spoke.NewTransportHubClient(transport.NewClient(cfg.Spoke.HubAddress, nil))

	spokeCfg := spoke.DefaultConfig()
	spokeCfg.StartupRegistrationDeadline = cfg.Spoke.StartupRegistrationDeadline()
	spokeCfg.HeartbeatInterval = cfg.Spoke.HeartbeatInterval()
	spokeCfg.ShutdownGrace = cfg.Spoke.ShutdownGrace()

	rt := spoke.New("portfolio-spoke", *address, hubClient, spoke.WithLogger(logger), spoke.WithConfig(spokeCfg))
	rt.RegisterTool(spoke.ToolRegistration{
		QualifiedName: "portfolio.optimize",
		Description:   "Computes current weighted allocation across a set of holdings.",
		InputSchema:   json.RawMessage(optimizeInputSchema),
		Handler:       optimizeHandler,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "portfoliospoke: registration failed: %v\n", err)
		return 1
	}

	httpServer := &http.Server{Addr: *listenAddr, Handler: spoke.Router(rt)}
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "portfoliospoke listening", "listenAddr", *listenAddr, "address", *address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error(ctx, "portfoliospoke server error", "error", err.Error())
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	if err := rt.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "portfoliospoke deregister error", "error", err.Error())
		return 1
	}
	return 0
}

type holding struct {
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"`
}

func optimizeHandler(_ context.Context, _ reqctx.RequestContext, arguments json.RawMessage) (any, error) {
	var args struct {
		Holdings []holding `json:"holdings"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, ferrors.Wrap(ferrors.KindInvalidParams, "malformed portfolio.optimize arguments", err)
	}
	if len(args.Holdings) == 0 {
		return nil, ferrors.New(ferrors.KindInvalidParams, "holdings must be non-empty")
	}

	var total float64
	for _, h := range args.Holdings {
		total += h.Value
	}
	if total <= 0 {
		return nil, ferrors.New(ferrors.KindInvalidParams, "total portfolio value must be positive")
	}

	weights := make(map[string]float64, len(args.Holdings))
	for _, h := range args.Holdings {
		weights[h.Symbol] = h.Value / total
	}

	return map[string]any{
		"totalValue": total,
		"weights":    weights,
	}, nil
}
