// Package api exposes the admin-only access token surface:
// create/list/get/delete under /api/tokens.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/llm4s/rag-in-a-box/pkg/accesstoken"
	"github.com/llm4s/rag-in-a-box/pkg/autherrors"
)

// Handler handles the admin token-management routes. The admin identity
// check is injected; the handler itself knows nothing about how admins
// authenticate.
type Handler struct {
	service      *accesstoken.Service
	requireAdmin func(http.Handler) http.Handler
}

// NewHandler creates the token admin handler. requireAdmin guards every
// route; passing nil panics rather than silently exposing the surface.
func NewHandler(service *accesstoken.Service, requireAdmin func(http.Handler) http.Handler) *Handler {
	if requireAdmin == nil {
		panic("accesstoken api: requireAdmin middleware is required")
	}
	return &Handler{service: service, requireAdmin: requireAdmin}
}

// RegisterRoutes mounts the token routes on r behind the admin check.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Delete)
	})
}

// Create handles POST /api/tokens. The response carries the plaintext
// token; it is never available again.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req accesstoken.CreateTokenRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		if autherrors.IsKind(err, autherrors.KindInvalidScope) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("failed to create access token", "err", err)
		http.Error(w, "Failed to create token", http.StatusInternalServerError)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, created)
}

// List handles GET /api/tokens.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("failed to list access tokens", "err", err)
		http.Error(w, "Failed to list tokens", http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, tokens)
}

// Get handles GET /api/tokens/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid token ID", http.StatusBadRequest)
		return
	}

	token, err := h.service.Get(r.Context(), id)
	if err != nil {
		if autherrors.IsKind(err, autherrors.KindTokenNotFound) {
			http.Error(w, "Token not found", http.StatusNotFound)
			return
		}
		slog.Error("failed to get access token", "id", id, "err", err)
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, token)
}

// Delete handles DELETE /api/tokens/{id}. Revocation is immediate and
// unconditional.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid token ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		slog.Error("failed to revoke access token", "id", id, "err", err)
		http.Error(w, "Failed to revoke token", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
