package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/hundred-days/database"
)

// projectHandler serves the public pages.
type projectHandler struct {
	responder   Responder
	logger      zerolog.Logger
	projectRepo *database.ProjectRepo
}

func newProjectHandler(responder Responder, projectRepo *database.ProjectRepo) projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()
	responder.logger = logger

	return projectHandler{
		responder:   responder,
		logger:      logger,
		projectRepo: projectRepo,
	}
}

// listProjects renders every project, newest first.
func (h projectHandler) listProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := h.projectRepo.FindAllByRecency(r.Context())
		if err != nil {
			h.responder.WriteError(w, r, err)
			return
		}

		h.responder.Render(w, r, http.StatusOK, pageIndex, viewData{Projects: projects})
	}
}

// getProject renders a single project looked up by slug.
func (h projectHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		project, err := h.projectRepo.FindBySlug(r.Context(), slug)
		if err != nil {
			h.responder.WriteError(w, r, err)
			return
		}

		h.responder.Render(w, r, http.StatusOK, pageProject, viewData{
			Title:   project.Title,
			Project: project,
		})
	}
}

func (h projectHandler) about() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.Render(w, r, http.StatusOK, pageAbout, viewData{Title: "About"})
	}
}
