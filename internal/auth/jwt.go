package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type StaffRole string

const (
	RoleOwner   StaffRole = "OWNER"
	RoleWaiter  StaffRole = "WAITER"
	RoleChef    StaffRole = "CHEF"
	RoleCashier StaffRole = "CASHIER"
)

// Claims is the staff access token payload issued by the platform's auth
// service. RestaurantID scopes every board subscription the holder may open.
type Claims struct {
	UserID       string    `json:"userId"`
	Role         StaffRole `json:"role"`
	RestaurantID string    `json:"restaurantId"`
	Name         *string   `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func ParseBearerToken(authHeader string) string {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func VerifyAccessToken(tokenString string, secret string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token required")
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, errors.New("token expired")
	}
	if claims.RestaurantID == "" {
		return nil, errors.New("token missing restaurant scope")
	}
	return claims, nil
}
