// File: internal/middleware/auth.go
package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
)

// TokenValidator returns the subject of a valid token.
type TokenValidator func(token string) (string, error)

// NewJWTMiddleware authenticates requests by bearer token or auth cookie.
func NewJWTMiddleware(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := tokenFromRequest(r)
			if token == "" {
				log.Printf("[AuthMiddleware] Missing credentials for %s", r.URL.Path)
				unauthorized(w)
				return
			}

			userID, err := validate(token)
			if err != nil {
				log.Printf("[AuthMiddleware] Invalid token: %v", err)
				if fromCookie {
					http.SetCookie(w, &http.Cookie{
						Name:     AuthCookieName,
						Value:    "",
						Path:     "/",
						Expires:  time.Unix(0, 0),
						HttpOnly: true,
						Secure:   true,
						SameSite: http.SameSiteLaxMode,
					})
				}
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func tokenFromRequest(r *http.Request) (token string, fromCookie bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		if scheme, value, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value), false
		}
	}
	if cookie, err := r.Cookie(AuthCookieName); err == nil {
		return cookie.Value, true
	}
	return "", false
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized", "kind": "UNAUTHORIZED"})
}
