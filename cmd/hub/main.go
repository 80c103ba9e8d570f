// Command hub runs the Fin-Hub RPC frontend, service registry, and tool
// execution router as a single process (spec §6.1/§6.2).
package main

import (
	"context"
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
	"github.com/Songjaeheon0923/Fin-Hub/internal/frontend"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/store"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/store/memory"
	redisstore "github.com/Songjaeheon0923/Fin-Hub/internal/registry/store/redis"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/transport"
	"github.com/Songjaeheon0923/Fin-Hub/internal/router"
	"github.com/Songjaeheon0923/Fin-Hub/internal/router/spokehttp"
	"github.com/Songjaeheon0923/Fin-Hub/internal/telemetry"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file (defaults applied if absent)")
	redisAddr := flag.String("redis-addr", "", "Redis address for a durable registry store mirror (empty: in-memory only)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hub: %v\n", err)
		return 1
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hub: failed to build logger: %v\n", err)
		return 1
	}
	defer zapLogger.Sync()
	logger := telemetry.NewZapLogger(zapLogger)
	metrics := telemetry.NewNoopMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(ctx, *redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hub: %v\n", err)
		return 1
	}

	monitorCfg := registry.MonitorConfig{
		ProbeInterval:       cfg.Hub.Registry.ProbeInterval(),
		ProbeTimeout:        cfg.Hub.Registry.ProbeTimeout(),
		CriticalAfterProbes: cfg.Hub.Registry.CriticalAfterProbes,
		DeregisterAfter:     cfg.Hub.Registry.DeregisterAfter(),
		HeartbeatTTL:        cfg.Hub.Registry.HeartbeatTTL(),
	}
	prober := registry.NewHTTPProber(nil)
	reg := registry.New(st, prober, monitorCfg, registry.WithLogger(logger), registry.WithMetrics(metrics))
	reg.Start(ctx)
	defer reg.Stop()

	routerCfg := router.DefaultConfig()
	routerCfg.PerInstanceCapacity = cfg.Hub.Router.PerInstanceCapacity
	routerCfg.PerCallTimeout = cfg.Hub.Router.PerCallTimeout()
	routerCfg.MaxRetries = cfg.Hub.Router.MaxRetries
	routerCfg.PermitAcquireWait = cfg.Hub.Router.PermitAcquireWait()

	dispatcher := router.New(
		reg, reg, spokehttp.NewClient(nil),
		routerCfg,
		cfg.Hub.Router.Breaker.FailureThreshold,
		cfg.Hub.Router.Breaker.Cooldown(),
		router.WithLogger(logger), router.WithMetrics(metrics),
	)
	reg.SetOnInstanceRemoved(dispatcher.EvictInstance)

	server := frontend.New(
		frontend.ServerInfo{Name: "fin-hub", Version: "dev"},
		reg, dispatcher, frontend.DefaultConfig(),
		frontend.WithLogger(logger), frontend.WithMetrics(metrics),
	)

	mux := http.NewServeMux()
	mux.Handle("/registry/", transport.Router(reg))
	mux.Handle("/rpc", server.HTTPHandler())

	httpServer := &http.Server{Addr: cfg.Hub.BindAddress, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "hub listening", "bindAddress", cfg.Hub.BindAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error(ctx, "hub server error", "error", err.Error())
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "hub shutdown error", "error", err.Error())
		return 1
	}
	return 0
}

func buildStore(ctx context.Context, redisAddr string) (store.Store, error) {
	if redisAddr == "" {
		return memory.New(), nil
	}
	client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	return redisstore.New(ctx, client)
}
