// Package middleware provides HTTP middleware for the car search API.
package middleware

import (
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Thomaz-Klifson/car-search/internal/observability"
)

// TurnIDHeader carries the turn id on requests and responses.
const TurnIDHeader = "X-Turn-ID"

// CORS returns CORS middleware for browser clients.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			for _, o := range allowedOrigins {
				if o == "*" || strings.EqualFold(o, origin) {
					allowed = true
					break
				}
			}

			if allowed {
				if origin == "" {
					origin = "*"
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Connect-Protocol-Version, "+TurnIDHeader)
				w.Header().Set("Access-Control-Expose-Headers", TurnIDHeader)
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			// Handle preflight
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// TurnID tags each request with a turn id, taken from the X-Turn-ID header
// when the client sent one.
func TurnID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		turnID := strings.TrimSpace(r.Header.Get(TurnIDHeader))
		if turnID == "" {
			turnID = uuid.New().String()
		}

		w.Header().Set(TurnIDHeader, turnID)
		ctx := observability.ContextWithTurnID(r.Context(), turnID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request.
func RequestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			evt := logger.Info()
			if status >= http.StatusInternalServerError {
				evt = logger.Error()
			}
			evt.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("turn_id", observability.TurnIDFromContext(r.Context())).
				Dur("latency", time.Since(start)).
				Msg("HTTP request")
		})
	}
}
