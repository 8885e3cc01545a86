package authedge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type staticUserProvider struct {
	users map[string]*UserRecord
	err   error
}

func (p *staticUserProvider) FindByIdentifier(_ context.Context, identifier string) (*UserRecord, error) {
	if p.err != nil {
		return nil, p.err
	}
	user, ok := p.users[identifier]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

type staticVerifier struct {
	subject *ExternalIdentity
	err     error
}

func (v *staticVerifier) VerifyExternal(context.Context, string) (*ExternalIdentity, error) {
	return v.subject, v.err
}

func fastPasswordConfig() Config {
	cfg := DefaultConfig()
	cfg.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 16
	return cfg
}

func testEngine(t *testing.T, mutate func(*Builder)) *Engine {
	t.Helper()
	b := New().WithConfig(fastPasswordConfig())
	if mutate != nil {
		mutate(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func TestBuildRequiresSecret(t *testing.T) {
	if _, err := New().Build(); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("Build without secret: got %v, want ErrMissingSecret", err)
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	engine := testEngine(t, nil)
	ctx := context.Background()

	credential, err := engine.IssueSession(ctx, "u1", "", time.Unix(5000, 0))
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	identity, err := engine.VerifySession(ctx, credential)
	if err != nil {
		t.Fatalf("VerifySession failed: %v", err)
	}
	if identity.UserID != "u1" {
		t.Fatalf("user id = %q", identity.UserID)
	}
	if identity.Role != "owner" {
		t.Fatalf("role = %q, want configured default", identity.Role)
	}
	if !identity.AuthTime.Equal(time.Unix(5000, 0)) {
		t.Fatalf("auth time = %v", identity.AuthTime)
	}
	if got := identity.ExpiresAt.Sub(identity.IssuedAt); got != 15*time.Minute {
		t.Fatalf("token lifetime = %v, want 15m", got)
	}
}

func TestIssueSessionRejectsEmptyUser(t *testing.T) {
	engine := testEngine(t, nil)
	if _, err := engine.IssueSession(context.Background(), "", "", time.Time{}); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("got %v, want ErrInvalidUserID", err)
	}
}

func TestVerifySessionAntiOracle(t *testing.T) {
	clock := time.Unix(100_000, 0)
	engine := testEngine(t, func(b *Builder) {
		b.WithTimeFunc(func() time.Time { return clock })
	})
	ctx := context.Background()

	valid, err := engine.IssueSession(ctx, "u1", "owner", clock)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	parts := strings.Split(valid, ".")

	expired, err := engine.IssueSession(ctx, "u1", "owner", clock)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	other := testEngine(t, func(b *Builder) {
		b.WithSecret([]byte("a completely different secret!!!"))
	})
	foreign, err := other.IssueSession(ctx, "u1", "owner", clock)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	clock = clock.Add(16 * time.Minute) // past the 15m TTL for "expired"

	flip := func(s string) string {
		b := []byte(s)
		if b[0] == 'A' {
			b[0] = 'B'
		} else {
			b[0] = 'A'
		}
		return string(b)
	}

	credentials := map[string]string{
		"malformed":   "not-a-token",
		"empty":       "",
		"two-segment": parts[0] + "." + parts[1],
		"tampered":    parts[0] + "." + parts[1] + "." + flip(parts[2]),
		"expired":     expired,
		"foreign key": foreign,
	}

	for name, credential := range credentials {
		t.Run(name, func(t *testing.T) {
			identity, err := engine.VerifySession(ctx, credential)
			if identity != nil {
				t.Fatal("identity returned for rejected credential")
			}
			// The one and only failure value, with no wrapped detail
			// visible in its message.
			if !errors.Is(err, ErrUnauthenticated) || err.Error() != ErrUnauthenticated.Error() {
				t.Fatalf("got %v, want bare ErrUnauthenticated", err)
			}
		})
	}
}

func TestVerifySessionExpiryBoundary(t *testing.T) {
	clock := time.Unix(100_000, 0)
	engine := testEngine(t, func(b *Builder) {
		b.WithTimeFunc(func() time.Time { return clock })
	})
	ctx := context.Background()

	credential, err := engine.IssueSession(ctx, "u1", "", time.Time{})
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	clock = time.Unix(100_000, 0).Add(15*time.Minute - time.Second)
	if _, err := engine.VerifySession(ctx, credential); err != nil {
		t.Fatalf("verify one second before expiry failed: %v", err)
	}

	clock = time.Unix(100_000, 0).Add(15 * time.Minute)
	if _, err := engine.VerifySession(ctx, credential); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("verify at expiry instant: got %v, want ErrUnauthenticated", err)
	}
}

func TestRotateSession(t *testing.T) {
	clock := time.Unix(100_000, 0)
	engine := testEngine(t, func(b *Builder) {
		b.WithTimeFunc(func() time.Time { return clock })
	})
	ctx := context.Background()

	original, err := engine.IssueSession(ctx, "u1", "owner", clock)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	clock = clock.Add(10 * time.Minute)
	fresh, identity, err := engine.RotateSession(ctx, original)
	if err != nil {
		t.Fatalf("RotateSession failed: %v", err)
	}
	if fresh == original {
		t.Fatal("rotation returned the same credential")
	}
	if identity.UserID != "u1" || identity.Role != "owner" {
		t.Fatalf("rotated identity = %+v", identity)
	}
	if !identity.AuthTime.Equal(time.Unix(100_000, 0)) {
		t.Fatalf("rotation must preserve authTime, got %v", identity.AuthTime)
	}
	if !identity.ExpiresAt.Equal(clock.Add(15 * time.Minute)) {
		t.Fatalf("rotated expiry = %v", identity.ExpiresAt)
	}

	// Original stays valid until its own natural expiry.
	if _, err := engine.VerifySession(ctx, original); err != nil {
		t.Fatalf("pre-rotation credential rejected early: %v", err)
	}
	clock = clock.Add(6 * time.Minute)
	if _, err := engine.VerifySession(ctx, original); !errors.Is(err, ErrUnauthenticated) {
		t.Fatal("original credential outlived its expiry")
	}
	if _, err := engine.VerifySession(ctx, fresh); err != nil {
		t.Fatalf("rotated credential rejected: %v", err)
	}
}

func TestRotateSessionRejectsInvalid(t *testing.T) {
	engine := testEngine(t, nil)
	if _, _, err := engine.RotateSession(context.Background(), "garbage"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("got %v, want ErrUnauthenticated", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	engine := testEngine(t, nil)
	ctx := context.Background()

	engine.Logout(ctx, true)
	engine.Logout(ctx, false)
	engine.Logout(ctx, false)

	if got := engine.metrics.Value(MetricLogout); got != 3 {
		t.Fatalf("logout counter = %d, want 3", got)
	}
}

func TestLoginFlow(t *testing.T) {
	engine := testEngine(t, nil)
	ctx := context.Background()

	hash, err := engine.hasher.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	engine.users = &staticUserProvider{users: map[string]*UserRecord{
		"alex@example.com": {UserID: "u1", Identifier: "alex@example.com", PasswordHash: hash, Role: "owner"},
	}}

	identity, session, csrfToken, err := engine.Login(ctx, "alex@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if identity.UserID != "u1" {
		t.Fatalf("identity = %+v", identity)
	}
	if _, err := engine.VerifySession(ctx, session); err != nil {
		t.Fatalf("issued session does not verify: %v", err)
	}
	if err := engine.VerifyCSRF(ctx, identity, csrfToken); err != nil {
		t.Fatalf("issued csrf token does not verify: %v", err)
	}

	// Unknown identifier and wrong password are indistinguishable.
	_, _, _, unknownErr := engine.Login(ctx, "nobody@example.com", "correct horse battery")
	_, _, _, wrongErr := engine.Login(ctx, "alex@example.com", "wrong password!")
	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("login failures = %v / %v, want ErrInvalidCredentials", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatal("login failure modes are distinguishable")
	}
}

func TestLoginExternal(t *testing.T) {
	engine := testEngine(t, func(b *Builder) {
		b.WithIdentityVerifier(&staticVerifier{subject: &ExternalIdentity{
			Subject:  "ext-7",
			AuthTime: time.Unix(7000, 0),
		}})
	})
	ctx := context.Background()

	identity, session, csrfToken, err := engine.LoginExternal(ctx, "assertion-blob")
	if err != nil {
		t.Fatalf("LoginExternal failed: %v", err)
	}
	if identity.UserID != "ext-7" || identity.Role != "owner" {
		t.Fatalf("identity = %+v", identity)
	}
	if session == "" || csrfToken == "" {
		t.Fatal("expected a full session/csrf pair")
	}

	engine.verifier = &staticVerifier{err: errors.New("idp says no")}
	if _, _, _, err := engine.LoginExternal(ctx, "assertion-blob"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyCSRF(t *testing.T) {
	engine := testEngine(t, nil)
	ctx := context.Background()

	identity := &Identity{UserID: "u1"}
	tokenStr, err := engine.MintCSRF(identity)
	if err != nil {
		t.Fatalf("MintCSRF failed: %v", err)
	}

	if err := engine.VerifyCSRF(ctx, identity, tokenStr); err != nil {
		t.Fatalf("VerifyCSRF failed: %v", err)
	}
	if err := engine.VerifyCSRF(ctx, &Identity{UserID: "u2"}, tokenStr); !errors.Is(err, ErrCSRFRejected) {
		t.Fatalf("cross-user: got %v, want ErrCSRFRejected", err)
	}
	if err := engine.VerifyCSRF(ctx, nil, tokenStr); !errors.Is(err, ErrCSRFRejected) {
		t.Fatalf("nil identity must fail closed, got %v", err)
	}
	if err := engine.VerifyCSRF(ctx, identity, ""); !errors.Is(err, ErrCSRFRejected) {
		t.Fatalf("empty token: got %v, want ErrCSRFRejected", err)
	}

	// A rejection never invalidates the session credential itself.
	session, err := engine.IssueSession(ctx, "u1", "", time.Time{})
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	_ = engine.VerifyCSRF(ctx, identity, "1-bogus")
	if _, err := engine.VerifySession(ctx, session); err != nil {
		t.Fatalf("session rejected after csrf failure: %v", err)
	}
}

func TestMetricsAccounting(t *testing.T) {
	engine := testEngine(t, nil)
	ctx := context.Background()

	credential, err := engine.IssueSession(ctx, "u1", "", time.Time{})
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if _, err := engine.VerifySession(ctx, credential); err != nil {
		t.Fatalf("VerifySession failed: %v", err)
	}
	_, _ = engine.VerifySession(ctx, "garbage")
	_ = engine.VerifyCSRF(ctx, nil, "")

	snapshot := engine.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricSessionIssued: 1,
		MetricVerifySuccess: 1,
		MetricVerifyFailure: 1,
		MetricCSRFRejected:  1,
	}
	for id, want := range expect {
		if got := snapshot.Counters[id]; got != want {
			t.Fatalf("counter %d = %d, want %d", id, got, want)
		}
	}

	var observed uint64
	for _, n := range snapshot.Histograms[MetricVerifyLatency] {
		observed += n
	}
	if observed != 2 {
		t.Fatalf("latency observations = %d, want 2", observed)
	}
}

func TestAuditTrailNeverLeaksSecrets(t *testing.T) {
	sink := NewChannelAuditSink(64)
	clock := time.Unix(100_000, 0)
	engine := testEngine(t, func(b *Builder) {
		b.WithAuditSink(sink)
		b.WithTimeFunc(func() time.Time { return clock })
	})
	ctx := context.Background()

	hash, err := engine.hasher.Hash("hunter2hunter2")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	engine.users = &staticUserProvider{users: map[string]*UserRecord{
		"alex@example.com": {UserID: "u1", Identifier: "alex@example.com", PasswordHash: hash, Role: "owner"},
	}}

	_, session, _, err := engine.Login(ctx, "alex@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	_, _, _, _ = engine.Login(ctx, "alex@example.com", "wrong password!")
	engine.Logout(ctx, true)
	engine.Close()

	seen := map[string]bool{}
	for {
		select {
		case event := <-sink.Events():
			seen[event.EventType] = true
			for _, forbidden := range []string{session, "hunter2hunter2", "wrong password!", string(engine.cfg.Secret)} {
				if event.Error == forbidden {
					t.Fatalf("audit event leaks credential material: %+v", event)
				}
				for _, v := range event.Metadata {
					if strings.Contains(v, forbidden) {
						t.Fatalf("audit metadata leaks credential material: %+v", event)
					}
				}
			}
			if !event.Timestamp.Equal(clock) {
				t.Fatalf("event timestamp = %v, want injected clock", event.Timestamp)
			}
		default:
			for _, want := range []string{AuditLoginSuccess, AuditLoginFailure, AuditSessionIssued, AuditSessionVerifySuccess, AuditLogout} {
				if !seen[want] {
					t.Fatalf("missing audit event %q (saw %v)", want, seen)
				}
			}
			return
		}
	}
}

func TestNilEngineIsInert(t *testing.T) {
	var engine *Engine

	if _, err := engine.IssueSession(context.Background(), "u1", "", time.Time{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("got %v, want ErrEngineNotReady", err)
	}
	if _, err := engine.VerifySession(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("got %v, want ErrEngineNotReady", err)
	}
	engine.Logout(context.Background(), false)
	engine.Close()
	if engine.AuditDropped() != 0 {
		t.Fatal("nil engine reported drops")
	}
}
