// Package config holds the single structured configuration tree read by
// every Fin-Hub process. Configuration is immutable for the lifetime of a
// process: a reload is a restart, never a hot-swap, so no component needs
// to guard against concurrent config mutation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration tree, matching the recognized options
// surface. Duration fields are expressed in seconds in YAML (matching the
// "Seconds" suffix), except permitAcquireWaitMs, which is in milliseconds.
// They stay plain integers after Load; the Duration helper methods below
// convert them to time.Duration at the point of use.
type Config struct {
	Hub        HubConfig        `yaml:"hub"`
	Spoke      SpokeConfig      `yaml:"spoke"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
}

// HubConfig configures the frontend, registry, and router.
type HubConfig struct {
	BindAddress string         `yaml:"bindAddress"`
	Registry    RegistryConfig `yaml:"registry"`
	Router      RouterConfig   `yaml:"router"`
}

// RegistryConfig configures the health monitor.
type RegistryConfig struct {
	ProbeIntervalSeconds    int `yaml:"probeIntervalSeconds"`
	ProbeTimeoutSeconds     int `yaml:"probeTimeoutSeconds"`
	CriticalAfterProbes     int `yaml:"criticalAfterProbes"`
	DeregisterAfterSeconds  int `yaml:"deregisterAfterSeconds"`
	HeartbeatTTLSeconds     int `yaml:"heartbeatTTLSeconds"`
}

// RouterConfig configures dispatch, concurrency, and the circuit breaker.
type RouterConfig struct {
	PerInstanceCapacity  int           `yaml:"perInstanceCapacity"`
	PerCallTimeoutSeconds int          `yaml:"perCallTimeoutSeconds"`
	MaxRetries           int           `yaml:"maxRetries"`
	PermitAcquireWaitMs  int           `yaml:"permitAcquireWaitMs"`
	Breaker              BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the per-(tool,instance) circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failureThreshold"`
	CooldownSeconds  int `yaml:"cooldownSeconds"`
}

// SpokeConfig configures a spoke process's hub connection and lifecycle.
type SpokeConfig struct {
	HubAddress                   string `yaml:"hubAddress"`
	HeartbeatIntervalSeconds     int    `yaml:"heartbeatIntervalSeconds"`
	StartupRegistrationDeadlineS int    `yaml:"startupRegistrationDeadlineSeconds"`
	ShutdownGraceSeconds         int    `yaml:"shutdownGraceSeconds"`
}

// AggregatorConfig configures providers, cache, and rate limits.
type AggregatorConfig struct {
	ProviderOrder []string                    `yaml:"providerOrder"`
	Cache         CacheConfig                 `yaml:"cache"`
	Providers     map[string]ProviderConfig   `yaml:"providers"`
}

// CacheConfig configures the bounded LRU/TTL cache.
type CacheConfig struct {
	MaxEntries  int            `yaml:"maxEntries"`
	TTLSeconds  map[string]int `yaml:"ttlSeconds"`
}

// ProviderConfig configures one upstream provider's rate limit and secret.
// Credential is never logged; see internal/telemetry's sanitizer.
type ProviderConfig struct {
	RateLimit  RateLimitConfig `yaml:"rateLimit"`
	Credential string          `yaml:"credential"`
}

// RateLimitConfig configures a provider's token bucket.
type RateLimitConfig struct {
	Capacity        int `yaml:"capacity"`
	RefillPerSecond int `yaml:"refillPerSecond"`
}

// Default returns the configuration with every documented default applied.
func Default() Config {
	return Config{
		Hub: HubConfig{
			BindAddress: ":7410",
			Registry: RegistryConfig{
				ProbeIntervalSeconds:   10,
				ProbeTimeoutSeconds:    3,
				CriticalAfterProbes:    3,
				DeregisterAfterSeconds: 300,
				HeartbeatTTLSeconds:    30,
			},
			Router: RouterConfig{
				PerInstanceCapacity:   10,
				PerCallTimeoutSeconds: 30,
				MaxRetries:            2,
				PermitAcquireWaitMs:   100,
				Breaker: BreakerConfig{
					FailureThreshold: 5,
					CooldownSeconds:  30,
				},
			},
		},
		Spoke: SpokeConfig{
			HeartbeatIntervalSeconds:     10,
			StartupRegistrationDeadlineS: 60,
			ShutdownGraceSeconds:         30,
		},
		Aggregator: AggregatorConfig{
			Cache: CacheConfig{
				MaxEntries: 10000,
				TTLSeconds: map[string]int{
					"quote":     300,
					"news":      900,
					"reference": 86400,
				},
			},
			Providers: map[string]ProviderConfig{},
		},
	}
}

// Load reads and parses a YAML configuration file at path, overlaying it
// onto Default(). A missing file is not an error: processes may run on
// defaults alone, matching the teacher's DefaultConfig()-first convention.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

// Duration helpers convert the "Seconds"-suffixed int fields into
// time.Duration at the point of use, keeping the YAML surface plain
// integers as specified while giving call sites typed durations.

func (r RegistryConfig) ProbeInterval() time.Duration {
	return time.Duration(r.ProbeIntervalSeconds) * time.Second
}

func (r RegistryConfig) ProbeTimeout() time.Duration {
	return time.Duration(r.ProbeTimeoutSeconds) * time.Second
}

func (r RegistryConfig) DeregisterAfter() time.Duration {
	return time.Duration(r.DeregisterAfterSeconds) * time.Second
}

func (r RegistryConfig) HeartbeatTTL() time.Duration {
	return time.Duration(r.HeartbeatTTLSeconds) * time.Second
}

func (r RouterConfig) PerCallTimeout() time.Duration {
	return time.Duration(r.PerCallTimeoutSeconds) * time.Second
}

func (r RouterConfig) PermitAcquireWait() time.Duration {
	return time.Duration(r.PermitAcquireWaitMs) * time.Millisecond
}

func (b BreakerConfig) Cooldown() time.Duration {
	return time.Duration(b.CooldownSeconds) * time.Second
}

func (s SpokeConfig) HeartbeatInterval() time.Duration {
	return time.Duration(s.HeartbeatIntervalSeconds) * time.Second
}

func (s SpokeConfig) StartupRegistrationDeadline() time.Duration {
	return time.Duration(s.StartupRegistrationDeadlineS) * time.Second
}

func (s SpokeConfig) ShutdownGrace() time.Duration {
	return time.Duration(s.ShutdownGraceSeconds) * time.Second
}

// TTLFor returns the cache TTL for operation, defaulting to 5 minutes if
// unconfigured.
func (c CacheConfig) TTLFor(operation string) time.Duration {
	if secs, ok := c.TTLSeconds[operation]; ok {
		return time.Duration(secs) * time.Second
	}
	return 5 * time.Minute
}
