package middleware

import (
	"net/http"

	"github.com/frahmantamala/plant-operations/internal/user"
	"github.com/frahmantamala/plant-operations/pkg/logger"
	"github.com/go-chi/chi/middleware"
)

// UserContext tags the request logger with the signed-in username. Requests that skipped
// RequestID get the chi request id instead of a trace id.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if w.Header().Get(TraceHeader) == "" {
			if reqID := middleware.GetReqID(ctx); reqID != "" {
				ctx = logger.With(ctx, "request_id", reqID)
			}
		}
		if u, ok := user.FromContext(ctx); ok {
			ctx = logger.With(ctx, "username", u.Username)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
