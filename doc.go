// Package authedge is the authentication and request-context boundary of a
// blog application: stateless HMAC-signed session tokens, a double-submit
// CSRF defense bound to the verified session user, and W3C trace-context
// propagation.
//
// The engine is assembled with the builder:
//
//	engine, err := authedge.New().
//		WithSecret(secret).
//		WithUserProvider(users).
//		Build()
//
// Session verification is deliberately an oracle-free operation: every
// rejected credential yields authedge.ErrUnauthenticated and nothing else.
// The subpackages token, csrf, and tracectx carry the underlying protocol
// pieces; middleware and httpapi bind the engine to net/http.
package authedge
