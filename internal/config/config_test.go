package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Songjaeheon0923/Fin-Hub/internal/config"
)

func TestDefaultMatchesDocumentedDefaults(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 10, cfg.Hub.Registry.ProbeIntervalSeconds)
	assert.Equal(t, 3, cfg.Hub.Registry.ProbeTimeoutSeconds)
	assert.Equal(t, 3, cfg.Hub.Registry.CriticalAfterProbes)
	assert.Equal(t, 300, cfg.Hub.Registry.DeregisterAfterSeconds)
	assert.Equal(t, 10, cfg.Hub.Router.PerInstanceCapacity)
	assert.Equal(t, 30, cfg.Hub.Router.PerCallTimeoutSeconds)
	assert.Equal(t, 2, cfg.Hub.Router.MaxRetries)
	assert.Equal(t, 5, cfg.Hub.Router.Breaker.FailureThreshold)
	assert.Equal(t, 30, cfg.Hub.Router.Breaker.CooldownSeconds)
	assert.Equal(t, 10000, cfg.Aggregator.Cache.MaxEntries)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finhub.yaml")
	yamlContent := `
hub:
  bindAddress: ":9000"
  router:
    maxRetries: 5
aggregator:
  providerOrder: ["alpha", "beta"]
  providers:
    alpha:
      rateLimit:
        capacity: 1
        refillPerSecond: 0
      credential: "super-secret"
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Hub.BindAddress)
	assert.Equal(t, 5, cfg.Hub.Router.MaxRetries)
	// Unset fields still carry defaults from the overlay base.
	assert.Equal(t, 10, cfg.Hub.Router.PerInstanceCapacity)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Aggregator.ProviderOrder)
	assert.Equal(t, 1, cfg.Aggregator.Providers["alpha"].RateLimit.Capacity)
}

func TestTTLForFallsBackToFiveMinutes(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "5m0s", cfg.Aggregator.Cache.TTLFor("unknown-operation").String())
	assert.Equal(t, "5m0s", cfg.Aggregator.Cache.TTLFor("quote").String())
	assert.Equal(t, "15m0s", cfg.Aggregator.Cache.TTLFor("news").String())
}
