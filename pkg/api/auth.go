package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/audiolink/audiolinkd/pkg/logging"
)

// AuthConfig enables bearer-token protection of mutating endpoints. Tokens
// are accepted either as HS256 JWTs signed with JWTSecret or as the static
// admin token whose bcrypt hash is AdminTokenHash. Both mechanisms are
// optional; with Enabled false every request passes through.
type AuthConfig struct {
	Enabled        bool
	JWTSecret      string
	AdminTokenHash string
}

// requireAuth validates the bearer token on mutating endpoints when auth is
// enabled. The token subject is stored in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			s.respondError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if subject, ok := s.validateToken(token); ok {
			ctx := contextWithSubject(r.Context(), subject)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		s.respondError(w, http.StatusUnauthorized, "Invalid or expired token")
	}
}

// validateToken checks the token against the JWT secret first, then against
// the static admin token hash.
func (s *Server) validateToken(token string) (string, bool) {
	if s.auth.JWTSecret != "" {
		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			return []byte(s.auth.JWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err == nil && parsed.Valid {
			subject, _ := parsed.Claims.GetSubject()
			if subject == "" {
				subject = "token"
			}
			return subject, true
		}
		if err != nil {
			s.logger.Debug("JWT validation failed", logging.Error(err))
		}
	}

	if s.auth.AdminTokenHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(s.auth.AdminTokenHash), []byte(token)) == nil {
			return "admin", true
		}
	}

	return "", false
}

func contextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectContextKey, subject)
}

// SubjectFromContext returns the authenticated subject of the request, if
// any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectContextKey).(string)
	return subject, ok
}
