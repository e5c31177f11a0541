package handlers

import (
	"log/slog"

	"github.com/cbt-marketplace/apiserver/internal/auth"
	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// Services groups the application services exposed over HTTP.
type Services struct {
	Users         *services.UserService
	Clients       *services.ClientService
	Institutions  *services.InstitutionService
	Psychologists *services.PsychologistService
	Articles      *services.ArticleService
	Media         *services.MediaService
}

// Mount registers every API route on r. Media routes are only registered
// when object storage is configured.
func Mount(r chi.Router, svc Services, tokens *auth.TokenIssuer, logger *slog.Logger) {
	authHandler := NewAuthHandler(svc.Users, tokens, logger)
	userHandler := NewUserHandler(svc.Users, svc.Media, logger)
	requireAuth := authHandler.RequireAuth

	r.Get("/healthz", Healthz)
	r.Route("/auth", func(r chi.Router) {
		AuthRouter(r, authHandler)
	})
	r.Route("/users", func(r chi.Router) {
		UserRouter(r, userHandler, requireAuth)
	})
	r.Route("/clients", func(r chi.Router) {
		ClientRouter(r, NewClientHandler(svc.Clients, logger), requireAuth)
	})
	r.Route("/institutions", func(r chi.Router) {
		InstitutionRouter(r, NewInstitutionHandler(svc.Institutions, logger), requireAuth)
	})
	r.Route("/psychologists", func(r chi.Router) {
		PsychologistRouter(r, NewPsychologistHandler(svc.Psychologists, logger), requireAuth)
	})
	r.Route("/articles", func(r chi.Router) {
		ArticleRouter(r, NewArticleHandler(svc.Articles, svc.Media, logger), requireAuth)
	})
	r.Route("/admin", func(r chi.Router) {
		AdminRouter(r, NewAdminHandler(svc.Psychologists, svc.Institutions, logger), userHandler, requireAuth)
	})
	if svc.Media.Enabled() {
		r.Route("/media", func(r chi.Router) {
			MediaRouter(r, NewMediaHandler(svc.Media, logger))
		})
	}
}
