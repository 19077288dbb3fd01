package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type healthHandler struct {
	logger zerolog.Logger
	db     pinger
}

func newHealthHandler(db pinger) healthHandler {
	return healthHandler{
		logger: log.With().Str("handlerName", "healthHandler").Logger(),
		db:     db,
	}
}

// healthz answers "ok" while the database is reachable.
func (h healthHandler) healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error().Err(err).Msg("health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("unavailable"))
			return
		}
		w.Write([]byte("ok"))
	}
}
