package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cbt-marketplace/apiserver/config"
	"github.com/cbt-marketplace/apiserver/internal/auth"
	"github.com/cbt-marketplace/apiserver/internal/db"
	"github.com/cbt-marketplace/apiserver/internal/events"
	"github.com/cbt-marketplace/apiserver/internal/handlers"
	"github.com/cbt-marketplace/apiserver/internal/mq"
	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/cbt-marketplace/apiserver/internal/storage"
	"github.com/cbt-marketplace/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
	objects    *storage.Storage
}

// New connects the configured backends and mounts the API. Without a
// broker, events are handled inline; without object storage, media routes
// are not registered.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenIssuer(cfg.Auth)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	clientRepo := store.NewClientRepository(dbConn)
	institutionRepo := store.NewInstitutionRepository(dbConn)
	psychologistRepo := store.NewPsychologistRepository(dbConn)
	articleRepo := store.NewArticleRepository(dbConn)

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var publisher events.Publisher
	if queue != nil {
		publisher = events.NewBrokerPublisher(queue)
		logger.Info("publishing events", "backend", cfg.MQ.Backend, "channel", queue.Channel())
	} else {
		publisher = events.NewInlinePublisher(events.NewConsumer(institutionRepo, logger))
		logger.Info("handling events inline")
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		closeQueue(queue)
		return nil, err
	}
	var objectStore services.ObjectStore
	if objects != nil {
		objectStore = objects
		logger.Info("media uploads enabled", "backend", cfg.Storage.Backend, "bucket", objects.Bucket())
	}

	pol := policy.New(nil)
	svc := handlers.Services{
		Users:         services.NewUserService(userRepo, pol, publisher, logger),
		Clients:       services.NewClientService(clientRepo, pol),
		Institutions:  services.NewInstitutionService(institutionRepo, pol, publisher, logger),
		Psychologists: services.NewPsychologistService(psychologistRepo, userRepo, pol, publisher, logger),
		Articles:      services.NewArticleService(articleRepo, pol, publisher, logger),
		Media:         services.NewMediaService(objectStore, articleRepo, userRepo, pol, cfg.Storage.PublicBaseURL, logger),
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	handlers.Mount(router, svc, tokens, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
		objects:    objects,
	}, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires and releases the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	closeQueue(s.queue)
	if s.objects != nil {
		_ = s.objects.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}

func closeQueue(queue *mq.MQ) {
	if queue != nil {
		_ = queue.Close()
	}
}
