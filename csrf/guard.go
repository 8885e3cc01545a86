// Package csrf implements the double-submit CSRF token: a plain-text issue
// timestamp joined to a truncated hex HMAC-SHA256 over the owning user and
// that timestamp. The token is not a session credential; it only proves the
// caller could read a value bound to the verified session user.
package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// sigHexLen is the kept prefix of the hex-encoded HMAC (16 raw bytes).
const sigHexLen = 32

// Config controls minting and verification.
type Config struct {
	// Secret is the HMAC key. Required; independent rotation from the
	// session secret is allowed but not required.
	Secret []byte
	// MaxAge bounds token freshness at verification time. Required.
	MaxAge time.Duration
	// TimeFunc overrides the clock; nil means time.Now.
	TimeFunc func() time.Time
}

// Guard mints and verifies per-user CSRF tokens.
type Guard struct {
	config Config
}

func New(cfg Config) (*Guard, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("csrf secret is required")
	}
	if cfg.MaxAge <= 0 {
		return nil, errors.New("invalid csrf max age configuration")
	}
	if cfg.TimeFunc == nil {
		cfg.TimeFunc = time.Now
	}

	return &Guard{config: cfg}, nil
}

// MaxAge reports the configured freshness window.
func (g *Guard) MaxAge() time.Duration {
	return g.config.MaxAge
}

// Mint produces "{issuedAt}-{sig}" for the given user, where issuedAt is the
// current unix second and sig is the first 32 hex characters of
// HMAC-SHA256(secret, userId "." issuedAt).
func (g *Guard) Mint(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("csrf token requires a user id")
	}

	issuedAt := g.config.TimeFunc().Unix()
	return fmt.Sprintf("%d-%s", issuedAt, g.signature(userID, issuedAt)), nil
}

// Verify reports whether presented is a fresh, well-formed token minted for
// userID. Any parse failure is an ordinary false; verification never errors
// and never panics on hostile input. The signature comparison is constant
// time. A token aged exactly MaxAge is still fresh; one second older is not.
func (g *Guard) Verify(userID, presented string) bool {
	if userID == "" || presented == "" {
		return false
	}

	tsPart, sigPart, ok := strings.Cut(presented, "-")
	if !ok || tsPart == "" || sigPart == "" {
		return false
	}
	if strings.Contains(sigPart, "-") {
		return false
	}

	issuedAt, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return false
	}

	expected := g.signature(userID, issuedAt)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(sigPart)) != 1 {
		return false
	}

	age := g.config.TimeFunc().Unix() - issuedAt
	if age < 0 {
		return false
	}
	return age <= int64(g.config.MaxAge/time.Second)
}

func (g *Guard) signature(userID string, issuedAt int64) string {
	mac := hmac.New(sha256.New, g.config.Secret)
	mac.Write([]byte(userID))
	mac.Write([]byte("."))
	mac.Write([]byte(strconv.FormatInt(issuedAt, 10)))
	return hex.EncodeToString(mac.Sum(nil))[:sigHexLen]
}
