package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ms-events/internal/logger"
	"ms-events/internal/utils"
)

type contextKey string

const userIDKey contextKey = "user_id"

var ErrForbidden = errors.New("acting on behalf of another user is not allowed")

// Middleware requires a valid bearer token and stores its subject in the
// request context. A nil verifier lets every request through untouched.
func Middleware(v Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if v == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				log.LogSecurity("AUTH_MISSING", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", err)
				return
			}

			sub, err := v.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("AUTH_INVALID", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", fmt.Errorf("invalid token: %w", err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sub)))
		})
	}
}

func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, userIDKey, uid)
}

// UserID returns the authenticated subject, or "" when the request carried none.
func UserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey).(string); ok {
		return uid
	}
	return ""
}

// ActingAs settles which user a request acts for. An authenticated subject wins
// over an empty claim and must equal a non-empty one; without a subject the
// claim stands as given.
func ActingAs(ctx context.Context, claimed string) (string, error) {
	sub := UserID(ctx)
	switch {
	case sub == "":
		return claimed, nil
	case claimed == "" || claimed == sub:
		return sub, nil
	default:
		return "", ErrForbidden
	}
}
