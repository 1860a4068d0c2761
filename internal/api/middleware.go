package api

import (
	"context"
	"log"
	"net/http"
	"strings"

	"menedzer-sesji/internal/auth"
	"menedzer-sesji/internal/websession"
)

type contextKey string

const userContextKey = contextKey("user")
const requestContextKey = contextKey("requestContext")

func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) != 2 || headerParts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		tokenString := headerParts[1]

		claims, err := auth.VerifyJWT(tokenString, s.config.JWT.Secret)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		rc := websession.NewContext(r, s.sessions.Load(r))

		// Activity bump for the login session backing this request.
		if current, err := s.registry.GetCurrentLoginSession(r.Context(), claims.UserID, rc); err == nil && current != nil {
			if err := s.registry.Touch(r.Context(), current); err != nil {
				log.Printf("WARN: Failed to touch login session %s: %v", current.ID, err)
			}
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims)
		ctx = context.WithValue(ctx, requestContextKey, rc)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetUserFromContext(ctx context.Context) *auth.AppClaims {
	if claims, ok := ctx.Value(userContextKey).(*auth.AppClaims); ok {
		return claims
	}
	return nil
}

func GetRequestContext(ctx context.Context) *websession.Context {
	if rc, ok := ctx.Value(requestContextKey).(*websession.Context); ok {
		return rc
	}
	return nil
}
