package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rpupo63/hundred-days/errs"
)

var errNotFoundPage = errs.NewNotFoundError("page")

// setupPublicRoutes registers the pages anyone can see
func setupPublicRoutes(r chi.Router, handlers *routeHandlers) {
	r.Get("/", handlers.projectHandler.listProjects())
	r.Get("/project/{slug}", handlers.projectHandler.getProject())
	r.Get("/about", handlers.projectHandler.about())

	r.Get("/admin/login", handlers.authHandler.loginForm())
	r.Post("/admin/login", handlers.authHandler.login())
	r.Get("/admin/logout", handlers.authHandler.logout())
}

// setupAdminRoutes registers the admin area behind requireAuth
func setupAdminRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.requireAuth)

		r.Get("/admin", handlers.adminHandler.dashboard())
		r.Get("/admin/dashboard", handlers.adminHandler.dashboard())
		r.Get("/admin/create", handlers.adminHandler.createForm())
		r.Post("/admin/create", handlers.adminHandler.createProject())
		r.Get("/admin/edit/{id:[0-9]+}", handlers.adminHandler.editForm())
		r.Post("/admin/edit/{id:[0-9]+}", handlers.adminHandler.editProject())
		r.Post("/admin/delete/{id:[0-9]+}", handlers.adminHandler.deleteProject())
	})
}

// setupOpsRoutes registers liveness and metrics, outside the session and
// request logging chain
func setupOpsRoutes(r chi.Router, handlers *routeHandlers, metrics http.Handler) {
	r.Get("/healthz", handlers.healthHandler.healthz())
	r.Method(http.MethodGet, "/metrics", metrics)
}
