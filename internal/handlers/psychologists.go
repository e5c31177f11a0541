package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/cbt-marketplace/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// PsychologistHandler serves psychologist profiles.
type PsychologistHandler struct {
	psychologistService *services.PsychologistService
	logger              *slog.Logger
}

func NewPsychologistHandler(psychologistService *services.PsychologistService, logger *slog.Logger) *PsychologistHandler {
	return &PsychologistHandler{psychologistService: psychologistService, logger: logger}
}

// PsychologistRouter registers psychologist routes. Reads are public.
func PsychologistRouter(r chi.Router, h *PsychologistHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/", h.ListPsychologists)
	r.With(authMiddleware).Post("/", h.CreatePsychologist)
	r.Route("/{psychologistID}", func(r chi.Router) {
		r.Get("/", h.GetPsychologist)
		r.With(authMiddleware).Put("/", h.UpdatePsychologist)
	})
}

func (h *PsychologistHandler) ListPsychologists(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r)
	if err != nil {
		writeQueryError(w, "pagination", err)
		return
	}

	query := r.URL.Query()
	filter := types.PsychologistFilter{
		Specialization: query.Get("specialization"),
		City:           query.Get("city"),
		InstitutionID:  query.Get("institution_id"),
	}
	if raw := query.Get("min_rating"); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeQueryError(w, "min_rating", err)
			return
		}
		filter.MinRating = &rating
	}

	items, total, err := h.psychologistService.List(r.Context(), filter, skip, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[types.Psychologist]{Items: items, Skip: skip, Limit: limit, Total: total})
}

func (h *PsychologistHandler) GetPsychologist(w http.ResponseWriter, r *http.Request) {
	p, err := h.psychologistService.Get(r.Context(), chi.URLParam(r, "psychologistID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PsychologistHandler) CreatePsychologist(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req types.Psychologist
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	p, err := h.psychologistService.Create(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PsychologistHandler) UpdatePsychologist(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var changes types.PsychologistChanges
	if err := decodeJSON(r, &changes); err != nil {
		writeDecodeError(w, err)
		return
	}
	p, err := h.psychologistService.Update(r.Context(), actor, chi.URLParam(r, "psychologistID"), changes)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
