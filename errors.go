package authedge

import "errors"

var (
	// ErrUnauthenticated is the single externally observable session
	// verification failure. Malformed, tampered, and expired credentials
	// all collapse into it; callers must not be able to distinguish them.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials is returned by login for unknown identifiers
	// and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFRejected is returned when a state-changing request fails the
	// double-submit check. It never invalidates the session.
	ErrCSRFRejected = errors.New("csrf token rejected")
	// ErrMissingSecret is returned at startup when no signing secret is
	// configured in an environment that requires one.
	ErrMissingSecret = errors.New("signing secret is required")
	// ErrInvalidUserID is returned when a session is requested for an
	// empty user id.
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrUserNotFound may be returned by UserProvider implementations;
	// login folds it into ErrInvalidCredentials.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned when an Engine is used before Build
	// or after a nil construction.
	ErrEngineNotReady = errors.New("engine not initialized")
)
