// Package middleware binds the authedge engine to net/http handler chains.
// The intended order is TraceContext, then Guard, then CSRFProtect: the
// CSRF check consumes the identity Guard verified, and fails closed when
// run without one.
package middleware

import (
	"context"
	"net"
	"net/http"

	authedge "github.com/caldercay/authedge"
	"github.com/caldercay/authedge/tracectx"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by Guard for the current
// request.
func IdentityFromContext(ctx context.Context) (*authedge.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*authedge.Identity)
	return identity, ok
}

// TraceContext establishes request correlation: it derives a complete
// request context from the inbound headers, mirrors it onto the response,
// and stores it for handlers and audit emission. It also records the
// client IP for the audit trail.
func TraceContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := tracectx.Ensure(r.Header)
			rc.Apply(w.Header())

			ctx := tracectx.NewContext(r.Context(), rc)
			ctx = authedge.WithClientIP(ctx, clientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Guard requires a valid session cookie. On success the verified identity
// is stored in the request context; on any failure the response is a
// uniform 401 with no cause detail and Cache-Control: no-store.
func Guard(engine *authedge.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				unauthorized(w)
				return
			}

			cookie, err := r.Cookie(engine.Config().Cookie.SessionName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			identity, err := engine.VerifySession(r.Context(), cookie.Value)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CSRFProtect enforces the double-submit check on state-changing methods.
// Safe methods pass through untouched. The check runs strictly against the
// identity Guard verified; if no identity is present the request is
// rejected rather than checked against anything request-supplied.
func CSRFProtect(engine *authedge.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if safeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if engine == nil {
				forbidden(w)
				return
			}

			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				forbidden(w)
				return
			}

			presented := r.Header.Get(engine.Config().Cookie.CSRFHeader)
			if err := engine.VerifyCSRF(r.Context(), identity, presented); err != nil {
				forbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func forbidden(w http.ResponseWriter) {
	http.Error(w, "forbidden", http.StatusForbidden)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
