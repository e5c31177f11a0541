package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/cbt-marketplace/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// ArticleHandler serves articles and their lifecycle transitions.
type ArticleHandler struct {
	articleService *services.ArticleService
	mediaService   *services.MediaService
	logger         *slog.Logger
}

func NewArticleHandler(articleService *services.ArticleService, mediaService *services.MediaService, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{
		articleService: articleService,
		mediaService:   mediaService,
		logger:         logger,
	}
}

// ArticleRouter registers article routes. Listing and reading are public.
func ArticleRouter(r chi.Router, h *ArticleHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/", h.ListArticles)
	r.With(authMiddleware).Post("/", h.CreateArticle)
	r.Route("/{articleID}", func(r chi.Router) {
		r.Get("/", h.GetArticle)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Put("/", h.UpdateArticle)
			r.Delete("/", h.DeleteArticle)
			r.Post("/publish", h.PublishArticle)
			r.Post("/archive", h.ArchiveArticle)
			if h.mediaService.Enabled() {
				r.Put("/image", h.UploadImage)
			}
		})
	})
}

func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r)
	if err != nil {
		writeQueryError(w, "pagination", err)
		return
	}

	query := r.URL.Query()
	filter := types.ArticleFilter{
		Tag:            query.Get("tag"),
		AuthorID:       query.Get("author_id"),
		InstitutionID:  query.Get("institution_id"),
		PsychologistID: query.Get("psychologist_id"),
	}
	if raw := query.Get("status"); raw != "" {
		if strings.EqualFold(strings.TrimSpace(raw), string(types.ArticleStatusAny)) {
			filter.Status = types.ArticleStatusAny
		} else {
			status, err := types.ParseArticleStatus(raw)
			if err != nil {
				writeQueryError(w, "status", err)
				return
			}
			filter.Status = status
		}
	}

	items, total, err := h.articleService.List(r.Context(), filter, skip, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[types.Article]{Items: items, Skip: skip, Limit: limit, Total: total})
}

// GetArticle returns an article and counts the read.
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := h.articleService.View(r.Context(), chi.URLParam(r, "articleID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *ArticleHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req types.Article
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	article, err := h.articleService.Create(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, article)
}

func (h *ArticleHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var changes types.ArticleChanges
	if err := decodeJSON(r, &changes); err != nil {
		writeDecodeError(w, err)
		return
	}
	article, err := h.articleService.Update(r.Context(), actor, chi.URLParam(r, "articleID"), changes)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *ArticleHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := h.articleService.Delete(r.Context(), actor, chi.URLParam(r, "articleID")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ArticleHandler) PublishArticle(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	article, err := h.articleService.Publish(r.Context(), actor, chi.URLParam(r, "articleID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *ArticleHandler) ArchiveArticle(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	article, err := h.articleService.Archive(r.Context(), actor, chi.URLParam(r, "articleID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *ArticleHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
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

	article, err := h.mediaService.UploadArticleImage(r.Context(), actor, chi.URLParam(r, "articleID"), file)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}
