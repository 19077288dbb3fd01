package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithCookies(cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestSessionStore_RoundTrip(t *testing.T) {
	store := newSessionStore("secret", false)

	sess := &Session{}
	sess.Login()
	sess.AddFlash(flashSuccess, "Project created!")

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	loaded := store.Load(requestWithCookies(cookies))
	assert.True(t, loaded.LoggedIn)
	assert.Equal(t, []Flash{{Category: flashSuccess, Message: "Project created!"}}, loaded.Flashes)
}

func TestSessionStore_UnchangedSessionIsNotWritten(t *testing.T) {
	store := newSessionStore("secret", false)
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, &Session{LoggedIn: true}))
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionStore_RejectsForeignSignature(t *testing.T) {
	sess := &Session{}
	sess.Login()
	rec := httptest.NewRecorder()
	require.NoError(t, newSessionStore("someone-else", false).Save(rec, sess))

	loaded := newSessionStore("secret", false).Load(requestWithCookies(rec.Result().Cookies()))
	assert.False(t, loaded.LoggedIn)
}

func TestSessionStore_RejectsExpired(t *testing.T) {
	store := newSessionStore("secret", false)
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return issued }

	sess := &Session{}
	sess.Login()
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, sess))

	store.now = func() time.Time { return issued.Add(sessionLifetime + time.Hour) }
	loaded := store.Load(requestWithCookies(rec.Result().Cookies()))
	assert.False(t, loaded.LoggedIn)
}

func TestSessionStore_LogoutClearsCookie(t *testing.T) {
	store := newSessionStore("secret", false)
	sess := &Session{LoggedIn: true}
	sess.Logout()

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestSession_PopFlashes(t *testing.T) {
	sess := &Session{}
	assert.Empty(t, sess.PopFlashes())
	assert.False(t, sess.dirty, "popping nothing changes nothing")

	sess.AddFlash(flashError, "Invalid password.")
	sess.dirty = false
	flashes := sess.PopFlashes()
	assert.Equal(t, []Flash{{Category: flashError, Message: "Invalid password."}}, flashes)
	assert.Empty(t, sess.Flashes)
	assert.True(t, sess.dirty)
}

func TestCtxGetSession_NeverNil(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.NotNil(t, ctxGetSession(req.Context()))

	sess := &Session{LoggedIn: true}
	assert.Same(t, sess, ctxGetSession(ctxWithSession(req.Context(), sess)))
}
