package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/cbt-marketplace/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// ClientHandler serves the caller's own client profile.
type ClientHandler struct {
	clientService *services.ClientService
	logger        *slog.Logger
}

func NewClientHandler(clientService *services.ClientService, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{clientService: clientService, logger: logger}
}

func ClientRouter(r chi.Router, h *ClientHandler, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Get("/me", h.GetMe)
	r.With(authMiddleware).Put("/me", h.UpdateMe)
}

func (h *ClientHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	client, err := h.clientService.Me(r.Context(), actor)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (h *ClientHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var changes types.ClientChanges
	if err := decodeJSON(r, &changes); err != nil {
		writeDecodeError(w, err)
		return
	}
	client, err := h.clientService.UpdateMe(r.Context(), actor, changes)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}
