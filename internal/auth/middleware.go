package auth

import (
	"context"
	"net/http"
	"strings"

	errors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/pkg/logger"
)

type contextKey string

const userContextKey contextKey = "auth.user"

func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok
}

func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// Middleware resolves the bearer token into a request identity.
type Middleware struct {
	service ServiceAPI
}

func NewMiddleware(service ServiceAPI) *Middleware {
	return &Middleware{service: service}
}

func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeAuthError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
			return
		}

		claims, err := m.service.ValidateAccessToken(token)
		if err != nil {
			appErr := errors.ErrInvalidToken
			if err == ErrTokenExpired {
				appErr = errors.ErrTokenExpired
			}
			writeAuthError(w, appErr)
			return
		}

		user, err := m.service.GetUser(claims.UserID)
		if err != nil {
			logger.From(r.Context()).Warn("token valid but user lookup failed", "user_id", claims.UserID, "error", err)
			writeAuthError(w, errors.ErrInvalidToken)
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		ctx = logger.With(ctx, "user_id", user.ID, "role", user.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole guards a route group to the given roles. Admins always pass.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				writeAuthError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
				return
			}

			if user.IsAdmin() || user.HasRole(roles...) {
				next.ServeHTTP(w, r)
				return
			}

			writeAuthError(w, errors.NewForbiddenError("insufficient role for this operation", errors.ErrCodeInsufficientRole))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return authHeader[7:]
}

func writeAuthError(w http.ResponseWriter, appErr *errors.AppError) {
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSONBody(w, body)
}
