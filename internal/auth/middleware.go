package auth

import (
	"context"
	"net/http"
	"strings"

	"langlearn-server/internal/logger"
	"langlearn-server/internal/models"
	"langlearn-server/pkg/apperr"
	"langlearn-server/pkg/httpx"
)

type ctxKey int

const userKey ctxKey = 1

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// RequireUser resolves the session cookie, falling back to a Bearer token.
// A session found through the header is written back as a cookie.
func RequireUser(sessions *SessionManager, cookies CookieConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token := cookieValue(r, SessionCookie); token != "" {
				user, err := sessions.Resolve(ctx, token)
				if err != nil {
					httpx.WriteError(w, r, log, err)
					return
				}
				if user != nil {
					next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
					return
				}
			}

			if token := BearerToken(r); token != "" {
				user, err := sessions.Resolve(ctx, token)
				if err != nil {
					httpx.WriteError(w, r, log, err)
					return
				}
				if user != nil {
					cookies.SetSession(w, token)
					next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
					return
				}
			}

			httpx.WriteError(w, r, log, apperr.Unauthenticated("authentication required"))
		})
	}
}
