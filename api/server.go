package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/hundred-days/config"
	"github.com/rpupo63/hundred-days/database"
	"github.com/rpupo63/hundred-days/services"
)

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(database database.Database, c map[string]string, opts ...RouterOption) (Server, error) {
	port := config.GetString(c, "PORT", "8080")
	address := fmt.Sprintf("0.0.0.0:%s", port)

	startupTime := time.Now()

	opts = append([]RouterOption{WithConfig(c), withStartupTime(startupTime)}, opts...)
	router, err := newRouter(database, opts...)
	if err != nil {
		return Server{}, err
	}

	readTimeout := time.Duration(config.GetInt(c, "READ_TIMEOUT_SECONDS", 180)) * time.Second
	writeTimeout := time.Duration(config.GetInt(c, "WRITE_TIMEOUT_SECONDS", 180)) * time.Second
	idleTimeout := time.Duration(config.GetInt(c, "IDLE_TIMEOUT_SECONDS", 180)) * time.Second

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return Server{server, startupTime}, nil
}

type router struct {
	config      map[string]string
	startupTime time.Time
	uploader    services.ImageUploader
	events      projectNotifier
	registry    *prometheus.Registry
}

type RouterOption func(*router)

func WithConfig(c map[string]string) RouterOption {
	return func(r *router) {
		r.config = c
	}
}

func withStartupTime(startupTime time.Time) RouterOption {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

// WithUploader sets the media backend used by create and edit. Without one,
// submitting an image fails the request.
func WithUploader(u services.ImageUploader) RouterOption {
	return func(r *router) {
		r.uploader = u
	}
}

// WithEvents publishes create, update and delete notifications.
func WithEvents(e *services.ProjectEvents) RouterOption {
	return func(r *router) {
		r.events = e
	}
}

// WithRegistry exposes metrics from reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) RouterOption {
	return func(r *router) {
		r.registry = reg
	}
}

func newRouter(database database.Database, opts ...RouterOption) (*chi.Mux, error) {
	var router router
	for _, opt := range opts {
		opt(&router)
	}
	if router.registry == nil {
		router.registry = prometheus.NewRegistry()
		router.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	views, err := newViews()
	if err != nil {
		return nil, err
	}
	sessions := newSessionStore(
		config.GetString(router.config, config.SecretKey, config.DefaultSecretKey),
		config.GetBool(router.config, "COOKIE_SECURE", false),
	)
	responder := NewResponder(log.With().Str("handlerName", "router").Logger(), views, sessions)

	adminPassword := config.GetString(router.config, config.AdminPassword, config.DefaultAdminPassword)
	handlers := initializeHandlers(database, responder, adminPassword, router.uploader, router.events)
	authMiddleware := newAuthMiddleware()
	metrics := newHTTPMetrics(router.registry)

	chiRouter := chi.NewRouter()
	chiRouter.Use(LogInternalServerErrors)
	chiRouter.Use(metrics.middleware)

	if origins := parseOrigins(config.GetString(router.config, "ACCEPTED_ORIGINS", "")); len(origins) > 0 {
		chiRouter.Use(corsMiddleware(origins))
	}

	setupOpsRoutes(chiRouter, handlers, metrics.handler)

	maxBody := config.GetInt64(router.config, config.MaxContentLength, config.DefaultMaxContentLength)
	chiRouter.Group(func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)
		r.Use(limitBody(responder, maxBody))
		r.Use(sessionMiddleware(sessions))

		// unmatched paths render through the same logging and session chain
		r.NotFound(func(w http.ResponseWriter, req *http.Request) {
			responder.WriteError(w, req, errNotFoundPage)
		})

		setupPublicRoutes(r, handlers)
		setupAdminRoutes(r, handlers, authMiddleware)
	})

	return chiRouter, nil
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msgf("HttpServer gracefully shut down after %s uptime", time.Since(s.startupTime).Round(time.Second))
	}
}
