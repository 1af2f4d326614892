package middleware

import (
	"context"
	"net/http"

	"dinesync/internal/auth"
	"dinesync/pkg/response"
)

type contextKey string

const authContextKey contextKey = "authContext"

// AuthContext is the verified identity attached to staff requests.
type AuthContext struct {
	UserID       string
	Role         auth.StaffRole
	RestaurantID string
}

func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	value := ctx.Value(authContextKey)
	if value == nil {
		return nil, false
	}
	ac, ok := value.(*AuthContext)
	return ac, ok
}

// RequireStaff verifies the bearer token and attaches its claims. Board and
// transition endpoints sit behind this; the customer tracking endpoints do
// not (order ids are unguessable and the views carry no secrets).
func RequireStaff(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			claims, err := auth.VerifyAccessToken(token, secret)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "valid staff token required")
				return
			}

			authCtx := &AuthContext{
				UserID:       claims.UserID,
				Role:         claims.Role,
				RestaurantID: claims.RestaurantID,
			}
			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
		})
	}
}
