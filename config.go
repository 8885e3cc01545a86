package authedge

import (
	"errors"
	"time"

	"github.com/caldercay/authedge/password"
)

// TokenConfig controls the session token codec.
type TokenConfig struct {
	// TTL is the session token lifetime stamped into exp.
	TTL time.Duration
	// Leeway widens expiry checks for clock skew. Zero disables it.
	Leeway time.Duration
}

// CookieConfig controls the names and lifetimes of the transport cookies.
// Cookie lifetimes are deliberately independent of the token TTL: the token
// itself enforces expiry, the cookie merely carries it.
type CookieConfig struct {
	SessionName   string
	SessionMaxAge time.Duration
	CSRFName      string
	CSRFMaxAge    time.Duration
	CSRFHeader    string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls counter and histogram collection.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Config is the complete engine configuration. Zero values are filled from
// DefaultConfig by the builder; only Secret has no default in production.
type Config struct {
	// Secret signs session tokens. Required.
	Secret []byte
	// CSRFSecret signs CSRF tokens. Defaults to Secret; setting it
	// separately allows independent rotation.
	CSRFSecret []byte
	// DefaultRole is assigned when a session is issued without an
	// explicit role.
	DefaultRole string

	Token    TokenConfig
	Cookie   CookieConfig
	Password password.Config
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// DefaultConfig returns the standard single-owner blog deployment settings.
func DefaultConfig() Config {
	return Config{
		DefaultRole: "owner",
		Token: TokenConfig{
			TTL: 15 * time.Minute,
		},
		Cookie: CookieConfig{
			SessionName:   "session",
			SessionMaxAge: 24 * time.Hour,
			CSRFName:      "csrf",
			CSRFMaxAge:    2 * time.Hour,
			CSRFHeader:    "X-CSRF-Token",
		},
		Password: password.DefaultConfig(),
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// Validate rejects configurations the engine cannot run with. The token and
// CSRF packages re-validate their own slices of it on construction.
func (c Config) Validate() error {
	if len(c.Secret) == 0 {
		return ErrMissingSecret
	}
	if c.Token.TTL <= 0 {
		return errors.New("invalid token TTL configuration")
	}
	if c.Cookie.SessionName == "" || c.Cookie.CSRFName == "" {
		return errors.New("cookie names are required")
	}
	if c.Cookie.SessionMaxAge <= 0 || c.Cookie.CSRFMaxAge <= 0 {
		return errors.New("invalid cookie lifetime configuration")
	}
	if c.Cookie.CSRFHeader == "" {
		return errors.New("csrf header name is required")
	}
	return nil
}

func (c Config) csrfSecret() []byte {
	if len(c.CSRFSecret) > 0 {
		return c.CSRFSecret
	}
	return c.Secret
}
