package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/skillmatch/internal/api/apierr"
	"github.com/mcoot/skillmatch/internal/services/auth"
)

type contextKey string

const (
	clientContextKey  contextKey = "client"
	sessionContextKey contextKey = "session"
)

// PlayerAuth requires a valid player session token, sent as a Bearer token or
// in the session cookie. A nil service disables the check.
func PlayerAuth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if authService == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			session, err := authService.ValidateSession(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads the session token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	if cookie, err := r.Cookie("session"); err == nil {
		return cookie.Value
	}
	return ""
}

// GetSession returns the player session from the request context, or nil when
// player auth is off
func GetSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionContextKey).(*auth.Session)
	return session
}

// ClientAuth checks game-server credentials sent as client_id:client_secret,
// either as standard HTTP Basic auth or as a bare base64 token in the
// Authorization header. The secret is compared against a bcrypt hash.
// An empty clientID disables the check.
func ClientAuth(clientID, secretHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if clientID == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, secret, ok := extractCredentials(r)
			if !ok {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			idMatch := subtle.ConstantTimeCompare([]byte(id), []byte(clientID)) == 1
			// always run bcrypt so a wrong id costs the same as a wrong secret
			secretErr := bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(secret))
			if !idMatch || secretErr != nil {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), clientContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractCredentials reads client_id:client_secret from the request
func extractCredentials(r *http.Request) (string, string, bool) {
	if id, secret, ok := r.BasicAuth(); ok {
		return id, secret, true
	}

	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if token == "" {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(decoded), ":")
}

// GetClient returns the authenticated client ID from the request context
func GetClient(ctx context.Context) string {
	client, _ := ctx.Value(clientContextKey).(string)
	return client
}
