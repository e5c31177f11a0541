package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/cbt-marketplace/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// UserHandler serves account endpoints.
type UserHandler struct {
	userService  *services.UserService
	mediaService *services.MediaService
	logger       *slog.Logger
}

func NewUserHandler(userService *services.UserService, mediaService *services.MediaService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userService:  userService,
		mediaService: mediaService,
		logger:       logger,
	}
}

// UserRouter registers user routes on the given router. Registration is
// public; everything else requires authMiddleware.
func UserRouter(r chi.Router, h *UserHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/", h.Register)
	r.Post("/register", h.Register)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListUsers)
		r.Get("/me", h.GetMe)
		r.Put("/me", h.UpdateMe)
		if h.mediaService.Enabled() {
			r.Put("/me/avatar", h.UploadAvatar)
		}
	})
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.Registration
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	user, err := h.userService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	skip, limit, err := parsePagination(r)
	if err != nil {
		writeQueryError(w, "pagination", err)
		return
	}

	var filter types.UserFilter
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := types.ParseRole(raw)
		if err != nil {
			writeQueryError(w, "role", err)
			return
		}
		filter.Role = role
	}

	items, total, err := h.userService.List(r.Context(), actor, filter, skip, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[types.User]{Items: items, Skip: skip, Limit: limit, Total: total})
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, actor)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var changes types.UserChanges
	if err := decodeJSON(r, &changes); err != nil {
		writeDecodeError(w, err)
		return
	}

	user, err := h.userService.UpdateSelf(r.Context(), actor, changes)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	file, err := formFile(w, r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	defer file.Close()

	user, err := h.mediaService.UploadAvatar(r.Context(), actor, file)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
