package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sopami/sopami/internal/platform/httpx"
)

// Middleware verifies bearer credentials and attaches the resolved identity
// to the request context. Verification failure ends the request with 401;
// downstream authorization never runs for unverified callers.
type Middleware struct {
	Verifier TokenVerifier
	Logger   *slog.Logger
}

// RequireIdentity rejects requests without a valid bearer token.
func (m Middleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		const prefix = "Bearer "
		if raw == "" || !strings.HasPrefix(raw, prefix) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		userID, err := m.Verifier.Verify(strings.TrimSpace(raw[len(prefix):]))
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("token verification failed", slog.String("path", r.URL.Path))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), userID)))
	})
}
