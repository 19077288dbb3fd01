package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/hundred-days/database"
	"github.com/rpupo63/hundred-days/errs"
	"github.com/rpupo63/hundred-days/models"
	"github.com/rpupo63/hundred-days/services"
)

const missingFieldsMessage = "Title and day number are required."

// projectNotifier is satisfied by *services.ProjectEvents.
type projectNotifier interface {
	Created(p *models.Project) error
	Updated(p *models.Project) error
	Deleted(p *models.Project) error
}

type adminHandler struct {
	responder   Responder
	logger      zerolog.Logger
	projectRepo *database.ProjectRepo
	uploader    services.ImageUploader
	events      projectNotifier
}

func newAdminHandler(responder Responder, projectRepo *database.ProjectRepo, uploader services.ImageUploader, events projectNotifier) adminHandler {
	logger := log.With().Str("handlerName", "adminHandler").Logger()
	responder.logger = logger
	if events == nil {
		events = (*services.ProjectEvents)(nil)
	}

	return adminHandler{
		responder:   responder,
		logger:      logger,
		projectRepo: projectRepo,
		uploader:    uploader,
		events:      events,
	}
}

// createProjectInput is what the create form must carry. A day number of 0
// counts as missing.
type createProjectInput struct {
	Title     string `json:"title"`
	DayNumber int    `json:"day_number"`
}

func (in createProjectInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required),
		validation.Field(&in.DayNumber, validation.Required),
	)
}

// dashboard lists every project by day number, highest first.
func (h adminHandler) dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := h.projectRepo.FindAllByDayDesc(r.Context())
		if err != nil {
			h.responder.WriteError(w, r, err)
			return
		}

		h.responder.Render(w, r, http.StatusOK, pageAdminDashboard, viewData{
			Title:    "Dashboard",
			Projects: projects,
		})
	}
}

func (h adminHandler) createForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.Render(w, r, http.StatusOK, pageAdminEdit, viewData{Title: "New project"})
	}
}

// createProject validates the form, uploads the optional image, derives a
// unique slug and inserts the project. A rejected form persists nothing.
func (h adminHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cleanup, err := parseForm(r)
		defer cleanup()
		if err != nil {
			h.responder.WriteError(w, r, err)
			return
		}
		ctx := r.Context()
		sess := ctxGetSession(ctx)

		input := createProjectInput{
			Title:     strings.TrimSpace(r.PostFormValue("title")),
			DayNumber: formDayNumber(r),
		}
		content := r.PostFormValue("content")

		if err := input.Validate(); err != nil {
			apiErr := missingFieldsError(err)
			h.logger.Debug().Str("field", apiErr.Field).Msg(apiErr.Error())
			sess.AddFlash(flashError, missingFieldsMessage)
			h.responder.Render(w, r, apiErr.StatusCode, pageAdminEdit, viewData{
				Title: "New project",
				Form: projectForm{
					Title:     input.Title,
					DayNumber: r.PostFormValue("day_number"),
					Content:   content,
				},
			})
			return
		}

		imageURL, _, err := h.uploadFormImage(ctx, r)
		if err != nil {
			h.responder.WriteError(w, r, err)
			return
		}

		base := models.UniqueSlug(models.MakeSlug(input.Title), input.DayNumber, false)
		taken, err := h.projectRepo.ExistsBySlug(ctx, base)
		if err != nil {
			h.responder.WriteError(w, r, err)
			return
		}

		project := &models.Project{
			Title:     input.Title,
			Slug:      models.UniqueSlug(base, input.DayNumber, taken),
			DayNumber: input.DayNumber,
			ImageURL:  imageURL,
			Content:   content,
		}
		if err := h.projectRepo.Add(ctx, project); err != nil {
			h.responder.WriteError(w, r, err)
			return
		}
		h.notify(h.events.Created, project)

		h.logger.Info().Uint("projectID", project.ID).Str("slug", project.Slug).Msg("project created")
		sess.AddFlash(flashSuccess, "Project created!")
		h.responder.Redirect(w, r, dashboardPath)
	}
}

func (h adminHandler) editForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := h.findProject(r)
		if err != nil {
			h.responder.WriteError(w, r, err)
			return
		}

		h.responder.Render(w, r, http.StatusOK, pageAdminEdit, viewData{
			Title:   "Edit " + project.Title,
			Project: project,
			Form:    formFromProject(project),
		})
	}
}

// editProject overwrites title, day number and content as submitted and
// replaces the image only when a new file is attached. Unlike create, it
// does not reject empty fields, and an unreadable day number is stored as 0.
func (h adminHandler) editProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := h.findProject(r)
		if err != nil {
			h.responder.WriteError(w, r, err)
			return
		}
		cleanup, err := parseForm(r)
		defer cleanup()
		if err != nil {
			h.responder.WriteError(w, r, err)
			return
		}
		ctx := r.Context()

		project.Title = strings.TrimSpace(r.PostFormValue("title"))
		project.DayNumber = formDayNumber(r)
		project.Content = r.PostFormValue("content")
		fields := []string{models.FieldTitle, models.FieldDayNumber, models.FieldContent}

		imageURL, uploaded, err := h.uploadFormImage(ctx, r)
		if err != nil {
			h.responder.WriteError(w, r, err)
			return
		}
		if uploaded {
			project.ImageURL = imageURL
			fields = append(fields, models.FieldImageURL)
		}

		if err := h.projectRepo.Update(ctx, project, fields...); err != nil {
			h.responder.WriteError(w, r, err)
			return
		}
		h.notify(h.events.Updated, project)

		h.logger.Info().Uint("projectID", project.ID).Msg("project updated")
		ctxGetSession(ctx).AddFlash(flashSuccess, "Project updated!")
		h.responder.Redirect(w, r, dashboardPath)
	}
}

func (h adminHandler) deleteProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := h.findProject(r)
		if err != nil {
			h.responder.WriteError(w, r, err)
			return
		}
		ctx := r.Context()

		if err := h.projectRepo.Delete(ctx, project); err != nil {
			h.responder.WriteError(w, r, err)
			return
		}
		h.notify(h.events.Deleted, project)

		h.logger.Info().Uint("projectID", project.ID).Msg("project deleted")
		ctxGetSession(ctx).AddFlash(flashSuccess, "Project deleted.")
		h.responder.Redirect(w, r, dashboardPath)
	}
}

func (h adminHandler) findProject(r *http.Request) (*models.Project, error) {
	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	return h.projectRepo.FindByID(r.Context(), id)
}

// uploadFormImage sends the "image" file, if any, to the media host. It makes
// one attempt and returns the failure as is.
func (h adminHandler) uploadFormImage(ctx context.Context, r *http.Request) (string, bool, error) {
	file, header, ok, err := formImage(r, "image")
	if err != nil || !ok {
		return "", false, err
	}
	defer file.Close()

	if h.uploader == nil {
		return "", false, errs.NewUploadError("media host", errors.New("no media backend is configured"))
	}
	url, err := h.uploader.Upload(ctx, header.Filename, file)
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

// notify publishes a change event. The write has already happened, so a
// failed publish is logged and otherwise ignored.
func (h adminHandler) notify(publish func(*models.Project) error, project *models.Project) {
	if err := publish(project); err != nil {
		h.logger.Warn().Err(err).Uint("projectID", project.ID).Msg("could not publish project event")
	}
}

// missingFieldsError turns ozzo validation output into the 422 reported for
// the first missing field.
func missingFieldsError(err error) *errs.ApiErr {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for _, field := range []string{models.FieldTitle, models.FieldDayNumber} {
			if fieldErr, ok := verrs[field]; ok && fieldErr != nil {
				return errs.NewMissingRequiredFieldError(field, missingFieldsMessage)
			}
		}
	}
	return errs.NewMissingRequiredFieldError("", missingFieldsMessage)
}
