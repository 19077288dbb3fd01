package api

import (
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/hundred-days/errs"
)

const loginPath = "/admin/login"

type authMiddleware struct {
	logger zerolog.Logger
}

func newAuthMiddleware() authMiddleware {
	return authMiddleware{
		logger: log.With().Str("handlerName", "authMiddleware").Logger(),
	}
}

// requireAuth lets the request through only when the session carries the
// logged-in flag. Otherwise it redirects to the login form without touching
// the session or calling next.
func (m authMiddleware) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ctxGetSession(r.Context()).LoggedIn {
			m.logger.Debug().Str("path", r.URL.Path).Msg("redirecting anonymous request to login")
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionMiddleware decodes the session cookie once and hands the result to
// the rest of the chain through the request context.
func sessionMiddleware(store *sessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := store.Load(r)
			next.ServeHTTP(w, r.WithContext(ctxWithSession(r.Context(), sess)))
		})
	}
}

// limitBody rejects a declared Content-Length over maxBytes up front and caps
// the body of every other request at maxBytes.
func limitBody(responder Responder, maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				responder.WriteError(w, r, errs.NewMaxBodySizeExceededError(maxBytes))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware is only installed when ACCEPTED_ORIGINS is set.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

func parseOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// statusResponseWriter records what a handler wrote so the logging and
// metrics middleware can report it afterwards.
type statusResponseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.status = statusCode
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// routePattern is the chi pattern that matched, e.g. /project/{slug}.
// Requests that matched nothing report "unmatched".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// LogInternalServerErrors recovers panics into a plain 500 and logs every
// response that ends in a 500.
func LogInternalServerErrors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srw := newStatusResponseWriter(w)

		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("route", routePattern(r)).
					Interface("panic", err).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic")

				if !srw.wroteHeader {
					http.Error(srw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}
		}()

		next.ServeHTTP(srw, r)

		if srw.status == http.StatusInternalServerError {
			log.Error().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Msg("500 error response")
		}
	})
}

// ColoredHTTPLoggingMiddleware writes one console line per request, levelled
// by status class.
func ColoredHTTPLoggingMiddleware(next http.Handler) http.Handler {
	return coloredHTTPLogging(zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger())(next)
}

func coloredHTTPLogging(requestLogger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			srw := newStatusResponseWriter(w)

			next.ServeHTTP(srw, r)

			var event *zerolog.Event
			switch {
			case srw.status >= 500:
				event = requestLogger.Error()
			case srw.status >= 400:
				event = requestLogger.Warn()
			default:
				event = requestLogger.Info()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Int("status", srw.status).
				Int("bytes", srw.bytes).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP Request")
		})
	}
}
