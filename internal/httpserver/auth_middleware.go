package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"workmatch/internal/domain"
	"workmatch/internal/security"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// WithUser returns a new context carrying the current user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUser extracts the current user from context, if any.
func CurrentUser(r *http.Request) *domain.User {
	if v := r.Context().Value(userContextKey); v != nil {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// AuthMiddleware validates the Bearer token issued by the identity provider
// and attaches the caller's directory entry to the context. Tokens whose
// subject is missing from the directory, or whose role disagrees with it,
// are rejected.
func AuthMiddleware(tokens *security.TokenService, users domain.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if len(authHeader) < len("Bearer ") || !strings.EqualFold(authHeader[:len("Bearer ")], "bearer ") {
				writeError(w, r, fmt.Errorf("missing or invalid Authorization header: %w", domain.ErrUnauthorized))
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			claims, err := tokens.Parse(tokenStr)
			if err != nil {
				loggerFrom(r).Debug("token rejected", zap.Error(err))
				writeError(w, r, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized))
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				writeError(w, r, err)
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if errors.Is(err, domain.ErrNotFound) {
				loggerFrom(r).Info("token subject not in directory", zap.Int64("user_id", userID))
				writeError(w, r, fmt.Errorf("user not found: %w", domain.ErrUnauthorized))
				return
			}
			if err != nil {
				writeError(w, r, fmt.Errorf("load user %d: %w", userID, err))
				return
			}
			if user.Role != claims.Role {
				loggerFrom(r).Warn("token role mismatch",
					zap.Int64("user_id", userID),
					zap.String("token_role", string(claims.Role)),
					zap.String("directory_role", string(user.Role)),
				)
				writeError(w, r, fmt.Errorf("role mismatch: %w", domain.ErrUnauthorized))
				return
			}

			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
