package authedge

import (
	"context"
	"time"
)

// Identity is the verified result of a session credential. It is the only
// source of user identity downstream code may rely on; in particular the
// CSRF check binds to Identity.UserID, never to request-supplied values.
type Identity struct {
	UserID    string    `json:"userId"`
	Role      string    `json:"role,omitempty"`
	AuthTime  time.Time `json:"authTime,omitempty"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserRecord is the stored shape of a local account.
type UserRecord struct {
	UserID       string
	Identifier   string
	PasswordHash string
	Role         string
}

// UserProvider resolves login identifiers to stored accounts. Return
// ErrUserNotFound (or any error) for unknown identifiers; login reports
// every failure as ErrInvalidCredentials.
type UserProvider interface {
	FindByIdentifier(ctx context.Context, identifier string) (*UserRecord, error)
}

// ExternalIdentity is a subject already authenticated by an external
// identity provider. Assertion verification itself is out of scope; the
// verifier is a black box that either yields this or fails.
type ExternalIdentity struct {
	Subject  string
	Role     string
	AuthTime time.Time
}

// IdentityVerifier validates an external assertion and resolves the subject
// it vouches for.
type IdentityVerifier interface {
	VerifyExternal(ctx context.Context, assertion string) (*ExternalIdentity, error)
}
