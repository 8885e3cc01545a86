// Package token implements the compact session token codec: an HMAC-SHA256
// signed JWS in the standard three-segment form. The algorithm is pinned to
// HS256; tokens carrying any other alg header are invalid, full stop.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned by Verify for every rejected credential:
	// malformed encoding, bad signature, wrong algorithm, missing or past exp.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the session payload. Decoding always yields this typed record or
// a rejection; there is no map-based access path.
type Claims struct {
	UserID   string           `json:"userId"`
	Role     string           `json:"role,omitempty"`
	AuthTime *jwt.NumericDate `json:"authTime,omitempty"`
	jwt.RegisteredClaims
}

// Config controls signing and verification behavior.
type Config struct {
	// Secret is the shared HMAC key. Required.
	Secret []byte
	// TTL is the lifetime stamped into exp at signing time. Required.
	TTL time.Duration
	// Leeway widens expiry checks to absorb clock skew. Zero disables it.
	Leeway time.Duration
	// TimeFunc overrides the clock; nil means time.Now.
	TimeFunc func() time.Time
}

// Codec signs and verifies session tokens with a single symmetric key.
type Codec struct {
	config Config
}

func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.TimeFunc == nil {
		cfg.TimeFunc = time.Now
	}

	return &Codec{config: cfg}, nil
}

// TTL reports the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.config.TTL
}

// Sign produces a compact HS256 token for the given claims. Callers normally
// use SignSession; Sign exists for claims built elsewhere (e.g. rotation).
func (c *Codec) Sign(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.config.Secret)
}

// SignSession builds and signs the standard session payload: userId, role,
// optional authTime (truncated to whole seconds), iat = now, exp = now + TTL.
func (c *Codec) SignSession(userID, role string, authTime time.Time) (string, error) {
	now := c.config.TimeFunc()

	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.TTL)),
		},
	}
	if !authTime.IsZero() {
		claims.AuthTime = jwt.NewNumericDate(authTime.Truncate(time.Second))
	}

	return c.Sign(claims)
}

// Verify parses and validates a compact token. The signature is checked in
// constant time, exp is mandatory, and a token observed at exactly its expiry
// instant is already expired. All failures wrap ErrInvalidToken; the cause is
// attached for internal inspection but must never reach a client.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.config.TimeFunc),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
