package authedge

import (
	"time"

	"github.com/caldercay/authedge/csrf"
	"github.com/caldercay/authedge/internal/audit"
	"github.com/caldercay/authedge/password"
	"github.com/caldercay/authedge/token"
)

// Builder assembles an Engine. The zero-ish builder from New starts at
// DefaultConfig; every With* call overrides one concern and returns the
// builder for chaining.
type Builder struct {
	cfg       Config
	users     UserProvider
	verifier  IdentityVerifier
	auditSink AuditSink
	now       func() time.Time
}

func New() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
		now: time.Now,
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

func (b *Builder) WithSecret(secret []byte) *Builder {
	b.cfg.Secret = secret
	return b
}

func (b *Builder) WithCSRFSecret(secret []byte) *Builder {
	b.cfg.CSRFSecret = secret
	return b
}

func (b *Builder) WithUserProvider(users UserProvider) *Builder {
	b.users = users
	return b
}

func (b *Builder) WithIdentityVerifier(verifier IdentityVerifier) *Builder {
	b.verifier = verifier
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithTimeFunc injects a clock for the token codec, CSRF guard, and audit
// timestamps. Tests use it to pin expiry boundaries.
func (b *Builder) WithTimeFunc(now func() time.Time) *Builder {
	if now != nil {
		b.now = now
	}
	return b
}

// Build validates the configuration and constructs the engine.
func (b *Builder) Build() (*Engine, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(token.Config{
		Secret:   b.cfg.Secret,
		TTL:      b.cfg.Token.TTL,
		Leeway:   b.cfg.Token.Leeway,
		TimeFunc: b.now,
	})
	if err != nil {
		return nil, err
	}

	guard, err := csrf.New(csrf.Config{
		Secret:   b.cfg.csrfSecret(),
		MaxAge:   b.cfg.Cookie.CSRFMaxAge,
		TimeFunc: b.now,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(b.cfg.Password)
	if err != nil {
		return nil, err
	}

	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    b.cfg.Audit.Enabled,
		BufferSize: b.cfg.Audit.BufferSize,
		DropIfFull: b.cfg.Audit.DropIfFull,
	}, b.auditSink)

	return &Engine{
		cfg:      b.cfg,
		codec:    codec,
		csrf:     guard,
		hasher:   hasher,
		users:    b.users,
		verifier: b.verifier,
		metrics:  NewMetrics(b.cfg.Metrics),
		audit:    dispatcher,
		now:      b.now,
	}, nil
}
