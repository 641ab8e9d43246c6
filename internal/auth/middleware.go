package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-task-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-task-go/internal/user/repo"
)

type ctxKey struct{}

// WithUser attaches the authenticated user to ctx.
func WithUser(ctx context.Context, u *entity.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the user set by the session middleware.
func UserFromContext(ctx context.Context) (*entity.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*entity.User)
	return u, ok && u != nil
}

// Middleware rejects requests without a valid bearer token and otherwise
// re-resolves the user from the store on every request, so a token outlives
// neither its user nor a change to the user's record.
func Middleware(tokens *TokenManager, users userrepo.UserRepository, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				httpx.Fail(w, http.StatusUnauthorized, "Not authorized, no token")
				return
			}
			id, err := tokens.Parse(token)
			if err != nil {
				logger.Debugw("token rejected", "path", r.URL.Path, "err", err)
				httpx.Fail(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}
			u, err := users.GetByID(r.Context(), id)
			if err != nil {
				if !errors.Is(err, userrepo.ErrNotFound) {
					logger.Errorw("resolve token user", "user_id", id, "err", err)
				}
				httpx.Fail(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
