package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"upkeep-backend/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type contextKey string

const userIdKey contextKey = "user_id"

// Middleware validates the Bearer token and injects the user id into the
// request context. The user row is provisioned on first sight so every
// downstream query can rely on the foreign key existing.
func Middleware(secret []byte, db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			userId, err := ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			if _, err := database.GetOrCreateUser(r.Context(), db, userId); err != nil {
				slog.Error("error provisioning user", "user_id", userId, "error", err)
				http.Error(w, "error resolving user", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), userIdKey, userId)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserId returns the authenticated user id stored by Middleware. Handlers
// are only reachable through the middleware, so a missing value is a
// programming error and returns uuid.Nil.
func UserId(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(userIdKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
