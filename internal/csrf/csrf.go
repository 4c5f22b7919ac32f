// Package csrf provides CSRF protection using the double-submit cookie pattern.
//
// The double-submit cookie pattern works by:
// 1. Setting a random token in a cookie (not HttpOnly, so the frontend can read it)
// 2. Echoing the same token back in a request header on mutating requests
// 3. On the server, comparing the cookie value with the header value
//
// This is secure because:
// - Attackers can make the browser send cookies with cross-origin requests
// - But attackers cannot read cookies for our domain (same-origin policy)
// - So they cannot include the correct token in the request header
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
)

const (
	// CookieName is the name of the CSRF token cookie.
	CookieName = "csrf_token"

	// HeaderName is the request header carrying the echoed token.
	HeaderName = "X-CSRF-Token"

	// TokenLength is the number of random bytes for the token (32 bytes = 256 bits).
	TokenLength = 32

	// CookieMaxAge is the lifetime of the CSRF cookie (1 hour).
	// This is shorter than session cookies since CSRF tokens should be refreshed.
	CookieMaxAge = 3600
)

// GenerateToken generates a cryptographically secure random token.
//
// The token is 32 bytes of random data, base64 URL-encoded.
// This produces a 43-character string.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ValidateToken compares the cookie token with the header token.
//
// Uses constant-time comparison to prevent timing attacks.
// Returns true if tokens match, false otherwise.
func ValidateToken(cookieToken, headerToken string) bool {
	if cookieToken == "" || headerToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) == 1
}

// ValidateRequest validates the CSRF token from a request by comparing
// the csrf_token cookie with the X-CSRF-Token header.
func ValidateRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return ValidateToken(cookie.Value, r.Header.Get(HeaderName))
}

// SetCookie sets the CSRF token cookie on the response.
//
// The cookie is deliberately not HttpOnly: the frontend reads it and
// echoes the value back in the X-CSRF-Token header.
func SetCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: false,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetTokenFromRequest retrieves the CSRF token from the request cookie.
// Returns empty string if the cookie doesn't exist.
func GetTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// EnsureToken ensures a CSRF token exists for the request.
// If a token cookie exists, it returns that token. Otherwise it
// generates a new token, sets the cookie, and returns it.
func EnsureToken(w http.ResponseWriter, r *http.Request, isSecure bool) (string, error) {
	if existing := GetTokenFromRequest(r); existing != "" {
		return existing, nil
	}
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	SetCookie(w, token, isSecure)
	return token, nil
}
