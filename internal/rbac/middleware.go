package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sopami/sopami/internal/auth"
	"github.com/sopami/sopami/internal/observability"
	"github.com/sopami/sopami/internal/platform/httpx"
	"github.com/sopami/sopami/internal/shared"
)

// Middleware adapts the Guard for chi routes. The guard itself stays a
// plain component; handlers that need a decision mid-operation can call it
// directly instead of relying on route wiring.
type Middleware struct {
	Guard   *Guard
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Require ensures the current identity holds the named permission before
// the wrapped handler runs.
func (m Middleware) Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			err := m.Guard.HasPermission(r.Context(), userID, perm)
			m.observe(err)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrForbidden):
				httpx.RespondError(w, err)
			default:
				if m.Logger != nil {
					m.Logger.Error("permission check failed", slog.String("permission", perm), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			}
		})
	}
}

func (m Middleware) observe(err error) {
	if m.Metrics == nil {
		return
	}
	switch {
	case err == nil:
		m.Metrics.ObserveAuthzDecision("allow")
	case errors.Is(err, shared.ErrForbidden):
		m.Metrics.ObserveAuthzDecision("deny")
	case errors.Is(err, shared.ErrUnauthenticated):
		m.Metrics.ObserveAuthzDecision("unknown_subject")
	default:
		m.Metrics.ObserveAuthzDecision("error")
	}
}
