package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/rpupo63/hundred-days/errs"
)

type Responder struct {
	logger   zerolog.Logger
	views    *views
	sessions *sessionStore
}

func NewResponder(logger zerolog.Logger, views *views, sessions *sessionStore) Responder {
	return Responder{logger: logger, views: views, sessions: sessions}
}

// Render writes a full HTML page. Pending flashes are consumed and the
// session is persisted before the status line goes out.
func (r Responder) Render(w http.ResponseWriter, req *http.Request, status int, page string, data viewData) {
	r.render(w, req, status, page, data, true)
}

// render leaves flashes in the session when popFlashes is false, so they
// reach the next regular page.
func (r Responder) render(w http.ResponseWriter, req *http.Request, status int, page string, data viewData, popFlashes bool) {
	sess := ctxGetSession(req.Context())
	data.LoggedIn = sess.LoggedIn
	if popFlashes {
		data.Flashes = sess.PopFlashes()
	}

	var buf bytes.Buffer
	if err := r.views.render(&buf, page, data); err != nil {
		r.logger.Error().Err(err).Str("page", page).Msg("error rendering page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	r.saveSession(w, sess)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

// Redirect persists the session and sends the browser to url with 303 See Other.
func (r Responder) Redirect(w http.ResponseWriter, req *http.Request, url string) {
	r.saveSession(w, ctxGetSession(req.Context()))
	http.Redirect(w, req, url, http.StatusSeeOther)
}

// WriteError renders the error page. Unexpected errors are logged in full and
// shown to the visitor as a generic failure. Pending flashes are kept.
func (r Responder) WriteError(w http.ResponseWriter, req *http.Request, err error) {
	status := errs.StatusCode(err)

	var apiErr *errs.ApiErr
	switch {
	case !errors.As(err, &apiErr):
		r.logger.Error().Err(err).Str("path", req.URL.Path).Msg("unexpected error")
	case status >= http.StatusInternalServerError:
		r.logger.Error().Str("path", req.URL.Path).Msg(apiErr.GetFullError())
	default:
		r.logger.Debug().Str("path", req.URL.Path).Int("status", status).Msg(apiErr.Error())
	}

	r.render(w, req, status, pageError, viewData{
		Title:   http.StatusText(status),
		Status:  status,
		Message: errorMessage(status),
	}, false)
}

func errorMessage(status int) string {
	switch status {
	case http.StatusNotFound:
		return "The page you were looking for does not exist."
	case http.StatusRequestEntityTooLarge:
		return "The upload is too large."
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "The request could not be understood."
	case http.StatusUnauthorized, http.StatusForbidden:
		return "You are not allowed to do that."
	default:
		return "Something went wrong on our side. Please try again later."
	}
}

func (r Responder) saveSession(w http.ResponseWriter, sess *Session) {
	if r.sessions == nil {
		return
	}
	if err := r.sessions.Save(w, sess); err != nil {
		r.logger.Error().Err(err).Msg("error saving session")
	}
}
