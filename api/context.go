package api

import (
	"context"
)

type keyType string

const (
	sessionKey keyType = "session"
)

// ctxWithSession attaches the caller's session to the context
func ctxWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// ctxGetSession returns the session placed by sessionMiddleware. Outside that
// middleware it returns a fresh, unsaved session so callers never see nil.
func ctxGetSession(ctx context.Context) *Session {
	if sess, ok := ctx.Value(sessionKey).(*Session); ok && sess != nil {
		return sess
	}
	return &Session{}
}
