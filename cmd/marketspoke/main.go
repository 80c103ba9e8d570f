// Command marketspoke runs a spoke process exposing market-data tools
// (spec §4.4/§4.5), backed by the multi-source data aggregator.
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

	"github.com/Songjaeheon0923/Fin-Hub/internal/aggregator"
	"github.com/Songjaeheon0923/Fin-Hub/internal/aggregator/cache"
	"github.com/Songjaeheon0923/Fin-Hub/internal/aggregator/ratelimit"
	"github.com/Songjaeheon0923/Fin-Hub/internal/config"
	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/providers/quote"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/transport"
	"github.com/Songjaeheon0923/Fin-Hub/internal/reqctx"
	"github.com/Songjaeheon0923/Fin-Hub/internal/spoke"
	"github.com/Songjaeheon0923/Fin-Hub/internal/telemetry"
)

const quoteInputSchema = `{
  "type": "object",
  "properties": { "symbol": { "type": "string", "minLength": 1 } },
  "required": ["symbol"]
}`

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	address := flag.String("address", "127.0.0.1:9001", "address this spoke is reachable at")
	listenAddr := flag.String("listen", ":9001", "address to bind this spoke's HTTP server to")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marketspoke: %v\n", err)
		return 1
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "marketspoke: failed to build logger: %v\n", err)
		return 1
	}
	defer zapLogger.Sync()
	logger := telemetry.NewZapLogger(zapLogger)

	agg := buildAggregator(cfg)

	hubClient := spoke.NewTransportHubClient(transport.NewClient(cfg.Spoke.HubAddress, nil))

	spokeCfg := spoke.DefaultConfig()
	spokeCfg.StartupRegistrationDeadline = cfg.Spoke.StartupRegistrationDeadline()
	spokeCfg.HeartbeatInterval = cfg.Spoke.HeartbeatInterval()
	spokeCfg.ShutdownGrace = cfg.Spoke.ShutdownGrace()

	rt := spoke.New("market-spoke", *address, hubClient, spoke.WithLogger(logger), spoke.WithConfig(spokeCfg))
	rt.RegisterTool(spoke.ToolRegistration{
		QualifiedName: "market.stock_quote",
		Description:   "Returns the latest quote for a stock symbol.",
		InputSchema:   json.RawMessage(quoteInputSchema),
		Handler:       quoteHandler(agg),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "marketspoke: registration failed: %v\n", err)
		return 1
	}

	httpServer := &http.Server{Addr: *listenAddr, Handler: spoke.Router(rt)}
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "marketspoke listening", "listenAddr", *listenAddr, "address", *address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error(ctx, "marketspoke server error", "error", err.Error())
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	if err := rt.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "marketspoke deregister error", "error", err.Error())
		return 1
	}
	return 0
}

func buildAggregator(cfg config.Config) *aggregator.Aggregator {
	providers := []aggregator.Provider{
		quote.NewAlphaProvider(providerBaseURL(cfg, "alpha"), providerCredential(cfg, "alpha"), nil),
		quote.NewBetaProvider(providerBaseURL(cfg, "beta"), providerCredential(cfg, "beta"), nil),
	}

	c, err := cache.New(cfg.Aggregator.Cache.MaxEntries)
	if err != nil {
		c, _ = cache.New(10000)
	}

	limits := ratelimit.NewManager()
	for id, pc := range cfg.Aggregator.Providers {
		limits.Configure(id, pc.RateLimit.Capacity, float64(pc.RateLimit.RefillPerSecond))
	}

	return aggregator.New(providers, c, limits, aggregator.Config{
		ProviderCooldown: 30 * time.Second,
		CacheTTL:         cfg.Aggregator.Cache.TTLFor,
	})
}

func providerBaseURL(_ config.Config, providerID string) string {
	return "https://" + providerID + ".example-upstream.invalid"
}

func providerCredential(cfg config.Config, providerID string) string {
	return cfg.Aggregator.Providers[providerID].Credential
}

func quoteHandler(agg *aggregator.Aggregator) spoke.Handler {
	return func(ctx context.Context, rc reqctx.RequestContext, arguments json.RawMessage) (any, error) {
		var args struct {
			Symbol string `json:"symbol"`
		}
		if err := json.Unmarshal(arguments, &args); err != nil {
			return nil, ferrors.Wrap(ferrors.KindInvalidParams, "malformed quote arguments", err)
		}

		deadline := rc.Deadline
		if deadline.IsZero() {
			deadline = time.Now().Add(10 * time.Second)
		}

		result, err := agg.Fetch(ctx, "quote", map[string]string{"symbol": args.Symbol}, deadline)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"data": result.Data,
			"metadata": map[string]any{
				"source":        result.Metadata.Source,
				"fetchedAt":     result.Metadata.FetchedAt,
				"cacheHit":      result.Metadata.CacheHit,
				"fallbackChain": result.Metadata.FallbackChain,
			},
		}, nil
	}
}
