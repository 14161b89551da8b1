// Package handler exposes the authorization orchestrator over HTTP.
//
// Routes mirror the shim server's public surface:
//
//	GET    /registry                        usable shim keys
//	GET    /authorize/{shimKey}             begin authorization
//	GET    /authorize/{shimKey}/callback    provider redirect target
//	POST   /authorize/{shimKey}/callback
//	DELETE /deauthorize/{shimKey}           remove all grants for a user
package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/shimkit/pkg/logger"
	"github.com/dmitrymomot/shimkit/pkg/shim"
)

// Handler serves the authorization routes.
type Handler struct {
	orchestrator *shim.Orchestrator
	logger       *slog.Logger
}

// Option configures the handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates the HTTP handler around the orchestrator.
func New(orchestrator *shim.Orchestrator, opts ...Option) *Handler {
	h := &Handler{
		orchestrator: orchestrator,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the chi router for the authorization surface.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/registry", h.listShims)
	r.Get("/authorize/{shimKey}", h.begin)
	r.Get("/authorize/{shimKey}/callback", h.complete)
	r.Post("/authorize/{shimKey}/callback", h.complete)
	r.Delete("/deauthorize/{shimKey}", h.deauthorize)

	return r
}

func (h *Handler) listShims(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"shims": h.orchestrator.Keys()})
}

// beginResponse is the body returned when authorization starts or
// short-circuits.
type beginResponse struct {
	ShimKey           string `json:"shim"`
	AlreadyAuthorized bool   `json:"alreadyAuthorized"`
	AuthorizationURL  string `json:"authorizationUrl,omitempty"`
}

func (h *Handler) begin(w http.ResponseWriter, r *http.Request) {
	shimKey := chi.URLParam(r, "shimKey")
	userID := r.URL.Query().Get("username")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	clientRedirectURL := r.URL.Query().Get("client_redirect_url")

	begin, err := h.orchestrator.Begin(r.Context(), userID, shimKey, clientRedirectURL)
	if err != nil {
		h.writeOrchestratorError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, beginResponse{
		ShimKey:           shimKey,
		AlreadyAuthorized: begin.AlreadyAuthorized,
		AuthorizationURL:  begin.AuthorizationURL,
	})
}

// completeResponse is the body returned for a finished authorization
// attempt when no client redirect target was recorded.
type completeResponse struct {
	ShimKey string `json:"shim"`
	Outcome string `json:"outcome"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	shimKey := chi.URLParam(r, "shimKey")

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed callback parameters")
		return
	}

	result, err := h.orchestrator.Complete(r.Context(), shimKey, r.Form)
	if err != nil {
		h.writeOrchestratorError(w, r, err)
		return
	}

	// A recorded client redirect target means the caller wants the user's
	// browser sent back to the client application, not a JSON body.
	if result.Outcome == shim.OutcomeAuthorized && result.ClientRedirectURL != "" {
		http.Redirect(w, r, result.ClientRedirectURL, http.StatusFound)
		return
	}

	writeJSON(w, http.StatusOK, completeResponse{
		ShimKey: shimKey,
		Outcome: string(result.Outcome),
		Details: result.Details,
	})
}

func (h *Handler) deauthorize(w http.ResponseWriter, r *http.Request) {
	shimKey := chi.URLParam(r, "shimKey")
	userID := r.URL.Query().Get("username")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	if err := h.orchestrator.Deauthorize(r.Context(), userID, shimKey); err != nil {
		h.writeOrchestratorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deauthorized"})
}

func (h *Handler) writeOrchestratorError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shim.ErrUnknownShim), errors.Is(err, shim.ErrShimNotConfigured):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shim.ErrInvalidState), errors.Is(err, shim.ErrMissingState):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "authorization request failed",
			logger.Error(err), logger.Component("handler"))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
