package authedge

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// insecureDevSecret keeps local development friction-free. It is refused
// outside development by the missing-secret check below.
const insecureDevSecret = "authedge-insecure-dev-secret"

type envSettings struct {
	Environment    string        `env:"AUTHEDGE_ENV" envDefault:"development"`
	Secret         string        `env:"AUTHEDGE_SECRET"`
	CSRFSecret     string        `env:"AUTHEDGE_CSRF_SECRET"`
	TokenTTL       time.Duration `env:"AUTHEDGE_TOKEN_TTL" envDefault:"15m"`
	TokenLeeway    time.Duration `env:"AUTHEDGE_TOKEN_LEEWAY" envDefault:"0"`
	SessionCookie  string        `env:"AUTHEDGE_SESSION_COOKIE" envDefault:"session"`
	SessionMaxAge  time.Duration `env:"AUTHEDGE_SESSION_COOKIE_MAX_AGE" envDefault:"24h"`
	CSRFCookie     string        `env:"AUTHEDGE_CSRF_COOKIE" envDefault:"csrf"`
	CSRFMaxAge     time.Duration `env:"AUTHEDGE_CSRF_MAX_AGE" envDefault:"2h"`
	CSRFHeader     string        `env:"AUTHEDGE_CSRF_HEADER" envDefault:"X-CSRF-Token"`
	DefaultRole    string        `env:"AUTHEDGE_DEFAULT_ROLE" envDefault:"owner"`
	AuditEnabled   bool          `env:"AUTHEDGE_AUDIT_ENABLED" envDefault:"true"`
	AuditBuffer    int           `env:"AUTHEDGE_AUDIT_BUFFER" envDefault:"256"`
	MetricsEnabled bool          `env:"AUTHEDGE_METRICS_ENABLED" envDefault:"true"`
}

// ConfigFromEnv builds a Config from AUTHEDGE_* environment variables,
// loading a .env file first when one is present. In production a missing
// secret is fatal; in any other environment the insecure development secret
// is substituted with a loud warning.
func ConfigFromEnv() (Config, error) {
	// Best effort; absence of a .env file is the normal production case.
	_ = godotenv.Load()

	var s envSettings
	if err := env.Parse(&s); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if s.Secret == "" {
		if s.Environment == "production" {
			return Config{}, ErrMissingSecret
		}
		log.Printf("authedge: AUTHEDGE_SECRET is not set; using the insecure development secret (env=%s)", s.Environment)
		s.Secret = insecureDevSecret
	}

	cfg := DefaultConfig()
	cfg.Secret = []byte(s.Secret)
	if s.CSRFSecret != "" {
		cfg.CSRFSecret = []byte(s.CSRFSecret)
	}
	cfg.DefaultRole = s.DefaultRole
	cfg.Token.TTL = s.TokenTTL
	cfg.Token.Leeway = s.TokenLeeway
	cfg.Cookie.SessionName = s.SessionCookie
	cfg.Cookie.SessionMaxAge = s.SessionMaxAge
	cfg.Cookie.CSRFName = s.CSRFCookie
	cfg.Cookie.CSRFMaxAge = s.CSRFMaxAge
	cfg.Cookie.CSRFHeader = s.CSRFHeader
	cfg.Audit.Enabled = s.AuditEnabled
	cfg.Audit.BufferSize = s.AuditBuffer
	cfg.Metrics.Enabled = s.MetricsEnabled

	return cfg, cfg.Validate()
}
