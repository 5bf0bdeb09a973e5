package app

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/xenking/catering-kart/internal/storage/sqlstore"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// a .env file, environment variables, flags, or YAML config files.
type Config struct {
	Addr        string          `env:"ADDR" default:"0.0.0.0:8080" usage:"API server listen address"`
	DB          sqlstore.Config `env:"DB"`
	CORSOrigin  string          `env:"CORS_ORIGIN" flag:"cors-origin" usage:"Allowed CORS origins, comma separated; * allows any"`
	FrontendURL string          `env:"FRONTEND_URL" flag:"frontend-url" usage:"Front end origin, always allowed by CORS"`
	Session     SessionConfig   `env:"SESSION"`
	RateLimit   RateLimitConfig `env:"RATE_LIMIT"`
	Graceful    GracefulConfig  `env:"GRACEFUL"`
	Health      HealthConfig    `env:"HEALTH"`
}

// SessionConfig controls session tokens.
type SessionConfig struct {
	Pepper        string        `env:"PEPPER" usage:"HMAC pepper for session token hashing; random per process when empty"`
	TTL           time.Duration `env:"TTL" default:"168h" usage:"Session lifetime"`
	PurgeInterval time.Duration `env:"PURGE_INTERVAL" default:"1h" usage:"How often expired sessions are deleted"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max        int           `env:"MAX" default:"100" usage:"Max requests per window, 0 disables"`
	Window     time.Duration `env:"WINDOW" default:"1m" usage:"Rate limit window duration"`
	TrustProxy bool          `env:"TRUST_PROXY" default:"false" usage:"Key clients by X-Forwarded-For"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `env:"READINESS_DELAY" default:"3s" usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// HealthConfig controls background probes.
type HealthConfig struct {
	Interval time.Duration `env:"INTERVAL" default:"10s" usage:"Probe interval"`
}

// LoadConfig loads .env, then configuration from environment variables,
// flags and YAML config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}
	return loadConfig(aconfig.Config{
		Files: []string{"config.yaml", "/etc/kart/config.yaml"},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	ac.AllowUnknownEnvs = true
	if ac.FileDecoders == nil {
		ac.FileDecoders = map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		}
	}
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if _, err := cfg.DB.ResolveDriver(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the PORT variable set by hosting platforms
// onto the listen address.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// AllowedOrigins merges CORS_ORIGIN and FRONTEND_URL. An empty result
// allows any origin, without credentials.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if u := strings.TrimSpace(c.FrontendURL); u != "" {
		out = append(out, u)
	}
	return out
}
