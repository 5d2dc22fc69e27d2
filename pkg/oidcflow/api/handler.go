// Package api exposes the browser-facing OAuth endpoints: login initiation,
// the provider callback, logout and userinfo.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/llm4s/rag-in-a-box/pkg/autherrors"
	"github.com/llm4s/rag-in-a-box/pkg/oidcflow"
)

// CookieConfig controls the session cookie the callback sets.
type CookieConfig struct {
	Name     string
	Secure   bool // disable only for non-TLS development
	MaxAge   time.Duration
	Path     string
	SameSite http.SameSite
}

// DefaultCookieConfig matches the default 24h session age.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     "ragbox_session",
		Secure:   true,
		MaxAge:   24 * time.Hour,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
}

// Handler handles the /oauth HTTP surface.
type Handler struct {
	flow   *oidcflow.Service
	cookie CookieConfig
}

// NewHandler creates the OAuth handler.
func NewHandler(flow *oidcflow.Service, cookie CookieConfig) *Handler {
	if cookie.Name == "" {
		cookie = DefaultCookieConfig()
	}
	return &Handler{flow: flow, cookie: cookie}
}

// RegisterRoutes mounts the OAuth endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/login", h.Login)
	r.Get("/callback", h.Callback)
	r.Post("/logout", h.Logout)
	r.Get("/userinfo", h.UserInfo)
}

// Login handles GET /oauth/login?redirect_after=
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	redirect, err := h.flow.InitiateLogin(r.Context(), r.URL.Query().Get("redirect_after"))
	if err != nil {
		slog.Error("failed to initiate login", "err", err)
		http.Error(w, "Failed to initiate login", autherrors.StatusOf(err))
		return
	}
	render.JSON(w, r, redirect)
}

// Callback handles GET /oauth/callback?code=&state=. Provider-reported
// errors arrive as error/error_description query parameters.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if provErr := query.Get("error"); provErr != "" {
		slog.Warn("provider returned error on callback",
			"error", provErr, "description", query.Get("error_description"))
		http.Error(w, "Authentication failed: "+provErr, http.StatusBadRequest)
		return
	}

	code, state := query.Get("code"), query.Get("state")
	if code == "" || state == "" {
		http.Error(w, "Missing code or state", http.StatusBadRequest)
		return
	}

	result, err := h.flow.HandleCallback(r.Context(), code, state)
	if err != nil {
		slog.Error("callback failed", "kind", autherrors.KindOf(err), "err", err)
		http.Error(w, "Authentication failed", autherrors.StatusOf(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    result.Session.ID,
		Path:     h.cookie.Path,
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})

	target := result.RedirectAfter
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Logout handles POST /oauth/logout. A missing session cookie is a no-op.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookie.Name); err == nil && cookie.Value != "" {
		if err := h.flow.Logout(r.Context(), cookie.Value); err != nil {
			slog.Warn("logout failed", "err", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
	render.JSON(w, r, map[string]string{"message": "Logged out"})
}

// UserInfo handles GET /oauth/userinfo for the current session.
func (h *Handler) UserInfo(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookie.Name)
	if err != nil || cookie.Value == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	session, err := h.flow.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		http.Error(w, "Not authenticated", autherrors.StatusOf(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"userId": session.UserID,
		"email":  session.Email,
		"name":   session.Name,
		"groups": session.Groups,
	})
}
