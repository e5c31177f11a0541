package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/cbt-marketplace/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// InstitutionHandler serves institution profiles.
type InstitutionHandler struct {
	institutionService *services.InstitutionService
	logger             *slog.Logger
}

func NewInstitutionHandler(institutionService *services.InstitutionService, logger *slog.Logger) *InstitutionHandler {
	return &InstitutionHandler{institutionService: institutionService, logger: logger}
}

// InstitutionRouter registers institution routes. Reads are public.
func InstitutionRouter(r chi.Router, h *InstitutionHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/", h.ListInstitutions)
	r.With(authMiddleware).Post("/", h.CreateInstitution)
	r.Route("/{institutionID}", func(r chi.Router) {
		r.Get("/", h.GetInstitution)
		r.With(authMiddleware).Put("/", h.UpdateInstitution)
	})
}

func (h *InstitutionHandler) ListInstitutions(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r)
	if err != nil {
		writeQueryError(w, "pagination", err)
		return
	}

	query := r.URL.Query()
	filter := types.InstitutionFilter{City: query.Get("city")}
	if raw := query.Get("verified"); raw != "" {
		verified, err := strconv.ParseBool(raw)
		if err != nil {
			writeQueryError(w, "verified", err)
			return
		}
		filter.Verified = &verified
	}

	items, total, err := h.institutionService.List(r.Context(), filter, skip, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[types.Institution]{Items: items, Skip: skip, Limit: limit, Total: total})
}

func (h *InstitutionHandler) GetInstitution(w http.ResponseWriter, r *http.Request) {
	inst, err := h.institutionService.Get(r.Context(), chi.URLParam(r, "institutionID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (h *InstitutionHandler) CreateInstitution(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req types.Institution
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	inst, err := h.institutionService.Create(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

func (h *InstitutionHandler) UpdateInstitution(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var changes types.InstitutionChanges
	if err := decodeJSON(r, &changes); err != nil {
		writeDecodeError(w, err)
		return
	}
	inst, err := h.institutionService.Update(r.Context(), actor, chi.URLParam(r, "institutionID"), changes)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}
