package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/web/response"
)

// Recovery creates a middleware that recovers from handler panics, logs
// the stack, and answers 500 instead of dropping the connection.
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err, ok := rec.(error)
					if !ok {
						err = fmt.Errorf("%v", rec)
					}

					logger.Error("panic recovered",
						zap.String("request_id", GetRequestID(r.Context())),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Error(err),
						zap.ByteString("stack", debug.Stack()))

					response.RenderJSON(w, http.StatusInternalServerError, &response.ErrorResponse{
						Error:   "internal_server_error",
						Message: "An unexpected error occurred",
						Code:    "internal_error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
