// Package httpapi exposes the auth boundary endpoints: login, logout,
// refresh, and whoami. Responses carry no cause detail on failure, and
// every 401 is marked uncacheable.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	authedge "github.com/caldercay/authedge"
)

// Handler serves the /auth endpoints for one engine.
type Handler struct {
	engine *authedge.Engine
}

func NewHandler(engine *authedge.Engine) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("httpapi requires an engine")
	}
	return &Handler{engine: engine}, nil
}

// Register mounts the auth routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("POST /auth/logout", h.logout)
	mux.HandleFunc("POST /auth/refresh", h.refresh)
	mux.HandleFunc("GET /auth/whoami", h.whoami)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	_, session, csrfToken, err := h.engine.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		unauthorized(w)
		return
	}

	h.setSessionCookie(w, r, session)
	h.setCSRFCookie(w, r, csrfToken)
	w.WriteHeader(http.StatusNoContent)
}

// logout succeeds unconditionally: with or without a session cookie the
// response is 204 and both cookies are cleared.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	hadSession := false
	if cookie, err := r.Cookie(h.cookieCfg().SessionName); err == nil && cookie.Value != "" {
		hadSession = true
	}

	h.engine.Logout(r.Context(), hadSession)
	h.clearCookies(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookieCfg().SessionName)
	if err != nil || cookie.Value == "" {
		unauthorized(w)
		return
	}

	fresh, identity, err := h.engine.RotateSession(r.Context(), cookie.Value)
	if err != nil {
		unauthorized(w)
		return
	}

	csrfToken, err := h.engine.MintCSRF(identity)
	if err != nil {
		unauthorized(w)
		return
	}

	h.setSessionCookie(w, r, fresh)
	h.setCSRFCookie(w, r, csrfToken)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) whoami(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookieCfg().SessionName)
	if err != nil || cookie.Value == "" {
		unauthorized(w)
		return
	}

	identity, err := h.engine.VerifySession(r.Context(), cookie.Value)
	if err != nil {
		unauthorized(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(identity)
}

func (h *Handler) cookieCfg() authedge.CookieConfig {
	return h.engine.Config().Cookie
}

// setSessionCookie stores the session credential. The cookie lifetime is
// longer than the token TTL on purpose: expiry is enforced by the token,
// and the longer cookie lets expired sessions reach the server for a clean
// 401 instead of silently vanishing.
func (h *Handler) setSessionCookie(w http.ResponseWriter, r *http.Request, value string) {
	cfg := h.cookieCfg()
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.SessionName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

// setCSRFCookie stores the double-submit token. Unlike the session cookie
// it must be script-readable so the client can echo it in the header.
func (h *Handler) setCSRFCookie(w http.ResponseWriter, r *http.Request, value string) {
	cfg := h.cookieCfg()
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CSRFName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(cfg.CSRFMaxAge.Seconds()),
		HttpOnly: false,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearCookies(w http.ResponseWriter, r *http.Request) {
	cfg := h.cookieCfg()
	for _, name := range []string{cfg.SessionName, cfg.CSRFName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == cfg.SessionName,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
