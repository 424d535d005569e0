package middleware

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/soundstack/soundstack/internal/app/domain/user"
	"github.com/soundstack/soundstack/internal/app/storage"
	svcerrors "github.com/soundstack/soundstack/internal/errors"
	"github.com/soundstack/soundstack/internal/session"
	"github.com/soundstack/soundstack/pkg/logger"
)

type currentUserKey struct{}

// UserLookup resolves the user a session token was issued for.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (user.User, error)
}

// SessionMiddleware restores the signed-in user from the session cookie. A
// bad or stale token is cleared and the request continues anonymously.
type SessionMiddleware struct {
	sessions *session.Manager
	users    UserLookup
	logger   *logger.Logger
}

// NewSessionMiddleware creates a new session restore middleware
func NewSessionMiddleware(sessions *session.Manager, users UserLookup, log *logger.Logger) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, users: users, logger: log}
}

// Handler returns the session middleware handler
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := Cookie(r, session.CookieName)
		if !ok || token == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.sessions.Parse(token)
		if err != nil {
			m.logger.WithContext(r.Context()).WithError(err).Debug("discarding session token")
			m.sessions.ClearCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		u, err := m.users.GetUser(r.Context(), userID)
		if err != nil {
			if !stderrors.Is(err, storage.ErrNotFound) {
				m.logger.WithContext(r.Context()).WithError(err).Warn("session user lookup failed")
			}
			m.sessions.ClearCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.WithUserID(r.Context(), u.ID)
		ctx = context.WithValue(ctx, currentUserKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CurrentUser returns the restored user, if any.
func CurrentUser(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(currentUserKey{}).(user.User)
	return u, ok
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	return logger.GetUserID(ctx)
}

// RequireAuth rejects requests without a restored user.
func RequireAuth(responder ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := CurrentUser(r.Context()); !ok {
				responder.Respond(w, r, svcerrors.Unauthorized(""))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
