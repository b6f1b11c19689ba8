// Package auth carries the acting user through request contexts. Identity
// is taken from the route; verifying it is the job of whatever fronts the
// service.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const UserKey contextKey = "user"

// MaxUserIDLength matches the accounts.user_id column.
const MaxUserIDLength = 128

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserKey, userID)
}

func GetUserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserKey).(string)
	return userID, ok && userID != ""
}

// UserFromPath is chi middleware that reads {userID} from the route and
// stores it in the request context. Empty or oversized ids get a 400.
func UserFromPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(chi.URLParam(r, "userID"))
		if userID == "" || len(userID) > MaxUserIDLength {
			http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
