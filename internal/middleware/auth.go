package middleware

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"verbindung/mitgliederamt/internal/auth"
)

const defaultRequiredRole = "mitgliederverwaltung"

// RequiredRole is the role a token must carry to reach the member API
func RequiredRole() string {
	if role := os.Getenv("MITGLIEDER_ROLE"); role != "" {
		return role
	}
	return defaultRequiredRole
}

// AuthMiddleware validates the bearer token and requires the member-admin
// role. Gating only: per-field or per-operation authorization is not
// differentiated here.
func AuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "Unauthorized. Missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := parseToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				http.Error(w, "Unauthorized. Invalid token", http.StatusUnauthorized)
				return
			}

			if !claims.HasRole(RequiredRole()) {
				http.Error(w, "Forbidden. Missing role", http.StatusForbidden)
				return
			}

			ctx := auth.SetUserClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseToken(tokenString string) (*auth.JWTClaims, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	claims := &auth.JWTClaims{}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if username, ok := mapClaims["preferred_username"].(string); ok {
		claims.Username = username
	}
	if roles, ok := mapClaims["roles"].([]any); ok {
		for _, role := range roles {
			if s, ok := role.(string); ok {
				claims.RoleValues = append(claims.RoleValues, s)
			}
		}
	}

	return claims, nil
}
