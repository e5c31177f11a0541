package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// AdminHandler serves moderation endpoints. Authorization is left to the
// services so that a missing target reports 404 before the role check.
type AdminHandler struct {
	psychologistService *services.PsychologistService
	institutionService  *services.InstitutionService
	logger              *slog.Logger
}

func NewAdminHandler(psychologistService *services.PsychologistService, institutionService *services.InstitutionService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		psychologistService: psychologistService,
		institutionService:  institutionService,
		logger:              logger,
	}
}

// AdminRouter registers admin routes. Every route requires authMiddleware;
// /users reuses the user listing.
func AdminRouter(r chi.Router, h *AdminHandler, users *UserHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Get("/users", users.ListUsers)
	r.Post("/verify-psychologist/{psychologistID}", h.VerifyPsychologist)
	r.Post("/verify-institution/{institutionID}", h.VerifyInstitution)
}

// VerifyPsychologist marks the user behind a psychologist profile verified
// and returns that user.
func (h *AdminHandler) VerifyPsychologist(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	user, err := h.psychologistService.Verify(r.Context(), actor, chi.URLParam(r, "psychologistID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) VerifyInstitution(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	inst, err := h.institutionService.Verify(r.Context(), actor, chi.URLParam(r, "institutionID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}
