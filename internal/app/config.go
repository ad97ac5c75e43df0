package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	CatalogFile string `default:"" usage:"Path to a JSON (or .gz) catalog file; empty uses the built-in catalog" flag:"catalog-file"`
	Milestone   MilestoneConfig
	Broadcast   BroadcastConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// MilestoneConfig controls discount code issuance.
type MilestoneConfig struct {
	Interval   int    `default:"3" usage:"Issue a new discount code every Nth completed order"`
	CodePrefix string `default:"SAVE10" usage:"Textual prefix for issued discount codes" flag:"code-prefix"`
}

// BroadcastConfig controls the notification fan-out.
type BroadcastConfig struct {
	Buffer      int           `default:"8" usage:"Per-subscriber event buffer size"`
	SendTimeout time.Duration `default:"1s" usage:"Max time to deliver an event to a stalled subscriber before dropping it" flag:"send-timeout"`
	MaxClients  int           `default:"1024" usage:"Subscriber count above which readiness reports unhealthy" flag:"max-clients"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/quantum-store/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.Milestone.Interval < 1 {
		return nil, errors.Errorf("milestone interval must be positive, got %d", cfg.Milestone.Interval)
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like PORT to the application's
// STORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
