package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/telodox/portal/internal/models"
)

// Session is the verified identity carried by an access token.
type Session struct {
	UserID uuid.UUID
	Email  string
}

type contextKey int

const (
	sessionContextKey contextKey = iota
	profileContextKey
)

// WithSession binds a verified session to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext returns nil for unauthenticated requests.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey).(*Session)
	return s
}

// WithProfile binds the caller's stored profile to ctx.
func WithProfile(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, profileContextKey, u)
}

// ProfileFromContext returns nil when no profile was loaded; the role predicates
// treat that as having no role.
func ProfileFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(profileContextKey).(*models.User)
	return u
}
