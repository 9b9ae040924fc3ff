package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/plant-operations/internal"
	"github.com/frahmantamala/plant-operations/internal/permission"
	"github.com/frahmantamala/plant-operations/internal/user"
	"github.com/frahmantamala/plant-operations/pkg/logger"
)

// RequireModule allows the request when the signed-in user holds at least level on module.
// For plant_operations any category/unit at that level is enough; handlers check the exact scope.
func RequireModule(module permission.Module, level permission.Level) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := user.FromContext(r.Context())
			if !ok || u == nil {
				writeAppError(w, internal.ErrInvalidToken)
				return
			}

			allowed := u.Checker().HasPermission(string(module), level, nil)
			permission.ObserveCheck(string(module), allowed)
			if !allowed {
				logger.From(r.Context()).Warn("access denied: insufficient permission",
					"user_id", u.ID,
					"module", module,
					"required_level", level,
					"held_level", u.Permissions.Level(module))
				writeAppError(w, internal.ErrInsufficientPermission)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin allows only administrator roles. Permission and user management sit behind it.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := user.FromContext(r.Context())
		if !ok || u == nil {
			writeAppError(w, internal.ErrInvalidToken)
			return
		}
		if !u.IsAdmin() {
			logger.From(r.Context()).Warn("access denied: admin required", "user_id", u.ID, "role", u.Role)
			writeAppError(w, internal.ErrAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeAppError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
