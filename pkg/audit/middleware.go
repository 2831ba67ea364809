package audit

import (
	"net/http"
)

// Middleware makes logger and the request metadata available to every
// audit call made while serving the request
func Middleware(logger Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLogger(r.Context(), logger)
			ctx = WithRequest(ctx, r)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
