package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/hundred-days/errs"
)

const (
	sessionCookieName = "session"
	sessionLifetime   = 31 * 24 * time.Hour
)

// Flash categories understood by the templates.
const (
	flashSuccess = "success"
	flashError   = "error"
)

type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Session is the caller's request-scoped state. Handlers read and mutate it
// through the request context; Responder writes it back before responding.
type Session struct {
	LoggedIn bool
	Flashes  []Flash
	dirty    bool
}

func (s *Session) Login() {
	s.LoggedIn = true
	s.dirty = true
}

func (s *Session) Logout() {
	s.LoggedIn = false
	s.dirty = true
}

func (s *Session) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
	s.dirty = true
}

// PopFlashes returns pending flashes and forgets them.
func (s *Session) PopFlashes() []Flash {
	flashes := s.Flashes
	if len(flashes) > 0 {
		s.Flashes = nil
		s.dirty = true
	}
	return flashes
}

type sessionClaims struct {
	LoggedIn bool    `json:"logged_in,omitempty"`
	Flashes  []Flash `json:"flashes,omitempty"`
	jwt.RegisteredClaims
}

// sessionStore keeps the whole session in an HS256-signed cookie.
type sessionStore struct {
	secret []byte
	secure bool
	now    func() time.Time
	logger zerolog.Logger
}

func newSessionStore(secret string, secure bool) *sessionStore {
	return &sessionStore{
		secret: []byte(secret),
		secure: secure,
		now:    time.Now,
		logger: log.With().Str("handlerName", "sessionStore").Logger(),
	}
}

// Load never fails: a missing, expired or tampered cookie yields an empty
// session.
func (s *sessionStore) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return &Session{}
	}

	claims, err := s.decode(cookie.Value)
	if err != nil {
		s.logger.Debug().Err(err).Msg("discarding session cookie")
		return &Session{dirty: true}
	}
	return &Session{LoggedIn: claims.LoggedIn, Flashes: claims.Flashes}
}

// Save writes the session cookie when the session changed during the request.
func (s *sessionStore) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil || !sess.dirty {
		return nil
	}

	if !sess.LoggedIn && len(sess.Flashes) == 0 {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		sess.dirty = false
		return nil
	}

	token, err := s.encode(sess)
	if err != nil {
		return errs.NewInternalErrorWithCause("could not sign session", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	sess.dirty = false
	return nil
}

func (s *sessionStore) encode(sess *Session) (string, error) {
	now := s.now()
	claims := sessionClaims{
		LoggedIn: sess.LoggedIn,
		Flashes:  sess.Flashes,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionLifetime)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *sessionStore) decode(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, errs.NewInvalidSessionError(err)
	}
	if !parsed.Valid {
		return nil, errs.NewInvalidSessionError(errors.New("token is not valid"))
	}
	return claims, nil
}
