package authedge

import (
	"context"
	"time"

	"github.com/caldercay/authedge/csrf"
	"github.com/caldercay/authedge/internal/audit"
	"github.com/caldercay/authedge/password"
	"github.com/caldercay/authedge/token"
)

// Engine is the auth boundary core: it issues, verifies, and rotates
// stateless session credentials, mints and checks CSRF tokens, and runs the
// login flow. It holds no per-session state and is safe for concurrent use.
type Engine struct {
	cfg      Config
	codec    *token.Codec
	csrf     *csrf.Guard
	hasher   *password.Hasher
	users    UserProvider
	verifier IdentityVerifier
	metrics  *Metrics
	audit    *audit.Dispatcher
	now      func() time.Time
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.cfg
}

// IssueSession signs a fresh session token for userID. An empty role takes
// the configured default; authTime may be zero when the authentication
// instant is unknown.
func (e *Engine) IssueSession(ctx context.Context, userID, role string, authTime time.Time) (string, error) {
	if e == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}
	if userID == "" {
		return "", ErrInvalidUserID
	}
	if role == "" {
		role = e.cfg.DefaultRole
	}

	credential, err := e.codec.SignSession(userID, role, authTime)
	if err != nil {
		return "", err
	}

	e.metrics.Inc(MetricSessionIssued)
	e.emitAudit(ctx, AuditSessionIssued, userID, true, nil, nil)
	return credential, nil
}

// VerifySession validates a session credential and returns the identity it
// carries. Every failure — malformed, tampered, expired, or missing subject
// — is reported as ErrUnauthenticated with no further detail.
func (e *Engine) VerifySession(ctx context.Context, credential string) (*Identity, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	start := e.now()
	claims, err := e.codec.Verify(credential)
	if err != nil || claims.UserID == "" {
		e.metrics.Inc(MetricVerifyFailure)
		e.metrics.Observe(MetricVerifyLatency, e.now().Sub(start))
		e.emitAudit(ctx, AuditSessionVerifyFailure, "", false, ErrUnauthenticated, nil)
		return nil, ErrUnauthenticated
	}

	identity := &Identity{
		UserID: claims.UserID,
		Role:   claims.Role,
	}
	if claims.AuthTime != nil {
		identity.AuthTime = claims.AuthTime.Time
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}

	e.metrics.Inc(MetricVerifySuccess)
	e.metrics.Observe(MetricVerifyLatency, e.now().Sub(start))
	e.emitAudit(ctx, AuditSessionVerifySuccess, identity.UserID, true, nil, nil)
	return identity, nil
}

// RotateSession verifies the presented credential and reissues a fresh one
// for the same subject with a new expiry. The engine keeps no state, so the
// old credential stays usable until its own exp; rotation extends a session,
// it cannot shorten one.
func (e *Engine) RotateSession(ctx context.Context, credential string) (string, *Identity, error) {
	identity, err := e.VerifySession(ctx, credential)
	if err != nil {
		return "", nil, err
	}

	fresh, err := e.codec.SignSession(identity.UserID, identity.Role, identity.AuthTime)
	if err != nil {
		return "", nil, err
	}

	now := e.now()
	identity.IssuedAt = now
	identity.ExpiresAt = now.Add(e.codec.TTL())

	e.metrics.Inc(MetricSessionRotated)
	e.emitAudit(ctx, AuditSessionRotated, identity.UserID, true, nil, nil)
	return fresh, identity, nil
}

// Logout records the end of a session. There is no server state to clear,
// so the operation is idempotent and never fails; hadSession only flavors
// the audit trail.
func (e *Engine) Logout(ctx context.Context, hadSession bool) {
	if e == nil {
		return
	}
	e.metrics.Inc(MetricLogout)
	metadata := map[string]string{"had_session": "false"}
	if hadSession {
		metadata["had_session"] = "true"
	}
	e.emitAudit(ctx, AuditLogout, "", true, nil, metadata)
}

// Login authenticates a local account and issues the session/CSRF token
// pair. Unknown identifiers and wrong passwords are indistinguishable to
// the caller.
func (e *Engine) Login(ctx context.Context, identifier, pass string) (*Identity, string, string, error) {
	if e == nil || e.users == nil || e.hasher == nil {
		return nil, "", "", ErrEngineNotReady
	}

	user, err := e.users.FindByIdentifier(ctx, identifier)
	if err != nil || user == nil || user.UserID == "" {
		return nil, "", "", e.loginFailed(ctx, identifier)
	}

	ok, err := e.hasher.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		return nil, "", "", e.loginFailed(ctx, identifier)
	}

	return e.establishSession(ctx, user.UserID, user.Role)
}

// LoginExternal issues the session/CSRF pair for a subject vouched for by
// the configured external identity verifier.
func (e *Engine) LoginExternal(ctx context.Context, assertion string) (*Identity, string, string, error) {
	if e == nil || e.verifier == nil {
		return nil, "", "", ErrEngineNotReady
	}

	subject, err := e.verifier.VerifyExternal(ctx, assertion)
	if err != nil || subject == nil || subject.Subject == "" {
		return nil, "", "", e.loginFailed(ctx, "")
	}

	return e.establishSession(ctx, subject.Subject, subject.Role)
}

func (e *Engine) loginFailed(ctx context.Context, identifier string) error {
	e.metrics.Inc(MetricLoginFailure)
	var metadata map[string]string
	if identifier != "" {
		metadata = map[string]string{"identifier": identifier}
	}
	e.emitAudit(ctx, AuditLoginFailure, "", false, ErrInvalidCredentials, metadata)
	return ErrInvalidCredentials
}

func (e *Engine) establishSession(ctx context.Context, userID, role string) (*Identity, string, string, error) {
	authTime := e.now()

	session, err := e.IssueSession(ctx, userID, role, authTime)
	if err != nil {
		return nil, "", "", err
	}

	identity, err := e.VerifySession(ctx, session)
	if err != nil {
		return nil, "", "", err
	}

	csrfToken, err := e.MintCSRF(identity)
	if err != nil {
		return nil, "", "", err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditLoginSuccess, userID, true, nil, nil)
	return identity, session, csrfToken, nil
}

// MintCSRF mints a CSRF token bound to the verified identity.
func (e *Engine) MintCSRF(identity *Identity) (string, error) {
	if e == nil || e.csrf == nil {
		return "", ErrEngineNotReady
	}
	if identity == nil || identity.UserID == "" {
		return "", ErrInvalidUserID
	}
	return e.csrf.Mint(identity.UserID)
}

// VerifyCSRF checks the presented double-submit token against the verified
// session identity. It must only run after session verification; a nil
// identity fails closed. A rejection never touches the session.
func (e *Engine) VerifyCSRF(ctx context.Context, identity *Identity, presented string) error {
	if e == nil || e.csrf == nil {
		return ErrEngineNotReady
	}
	if identity == nil || identity.UserID == "" {
		e.metrics.Inc(MetricCSRFRejected)
		e.emitAudit(ctx, AuditCSRFRejected, "", false, ErrCSRFRejected, nil)
		return ErrCSRFRejected
	}

	if !e.csrf.Verify(identity.UserID, presented) {
		e.metrics.Inc(MetricCSRFRejected)
		e.emitAudit(ctx, AuditCSRFRejected, identity.UserID, false, ErrCSRFRejected, nil)
		return ErrCSRFRejected
	}
	return nil
}

// MetricsSnapshot exposes the engine counters to exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports audit events shed under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. Safe to call repeatedly.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}
