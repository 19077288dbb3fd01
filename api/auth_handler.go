package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/hundred-days/errs"
)

const dashboardPath = "/admin/dashboard"

type authHandler struct {
	responder     Responder
	logger        zerolog.Logger
	adminPassword string
}

func newAuthHandler(responder Responder, adminPassword string) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()
	responder.logger = logger

	return authHandler{
		responder:     responder,
		logger:        logger,
		adminPassword: adminPassword,
	}
}

func (h authHandler) loginForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.Render(w, r, http.StatusOK, pageLogin, viewData{Title: "Log in"})
	}
}

// login compares the submitted password with ADMIN_PASSWORD. The password is
// stored and compared in plaintext; there is a single admin and no accounts.
func (h authHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cleanup, err := parseForm(r)
		defer cleanup()
		if err != nil {
			h.responder.WriteError(w, r, err)
			return
		}

		sess := ctxGetSession(r.Context())
		password := r.PostFormValue("password")
		if subtle.ConstantTimeCompare([]byte(password), []byte(h.adminPassword)) != 1 {
			err := errs.NewInvalidPasswordError()
			h.logger.Info().Str("remote_addr", r.RemoteAddr).Msg(err.Error())
			sess.AddFlash(flashError, "Invalid password.")
			h.responder.Render(w, r, err.StatusCode, pageLogin, viewData{Title: "Log in"})
			return
		}

		sess.Login()
		h.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("admin logged in")
		h.responder.Redirect(w, r, dashboardPath)
	}
}

func (h authHandler) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctxGetSession(r.Context()).Logout()
		h.responder.Redirect(w, r, "/")
	}
}
