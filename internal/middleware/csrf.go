package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/adeia-app/adeia/internal/csrf"
	"github.com/adeia-app/adeia/internal/domain"
)

// CSRFMiddleware enforces the double-submit cookie pattern on mutating
// API requests. Safe methods pass through and get a token cookie issued
// when one is missing, so the frontend always has a token to echo.
type CSRFMiddleware struct {
	logger   *slog.Logger
	isSecure bool

	// exemptPrefixes are paths validated by other means, such as the
	// Stripe webhook which carries its own signature.
	exemptPrefixes []string
}

// NewCSRFMiddleware creates a new CSRF middleware.
func NewCSRFMiddleware(logger *slog.Logger, isSecure bool) *CSRFMiddleware {
	return &CSRFMiddleware{
		logger:   logger,
		isSecure: isSecure,
		exemptPrefixes: []string{
			"/webhooks/",
		},
	}
}

// Protect returns middleware that validates CSRF tokens on mutating requests.
func (m *CSRFMiddleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			if _, err := csrf.EnsureToken(w, r, m.isSecure); err != nil {
				m.logger.Error("csrf token generation failed", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		for _, prefix := range m.exemptPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		if !csrf.ValidateRequest(r) {
			m.logger.Warn("csrf validation failed",
				"path", r.URL.Path,
				"method", r.Method,
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"code":    domain.EFORBIDDEN,
					"message": "Invalid or missing CSRF token.",
				},
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
