package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/guilhermegouw/parley/internal/logging"
	"github.com/guilhermegouw/parley/internal/session"
)

// UserHeader carries the caller's identity. Browsers cannot set headers on a
// websocket handshake, so the user query parameter is accepted as well.
const UserHeader = "X-User-ID"

type ctxKey int

const ctxKeyOwner ctxKey = iota

// withLogging attaches a request-scoped logger and logs each request.
func withLogging(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := middleware.GetReqID(ctx); id != "" {
				ctx = logging.WithRequestID(ctx, id)
			}
			ctx = logging.WithLogger(ctx, base)
			r = r.WithContext(ctx)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logging.FromContext(ctx).DebugContext(ctx, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// requireUser rejects requests without a caller identity.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get(UserHeader)
		if owner == "" {
			owner = r.URL.Query().Get("user")
		}
		if owner == "" {
			respondError(w, http.StatusBadRequest, "missing "+UserHeader+" header")
			return
		}
		if err := session.ValidateOwnerID(owner); err != nil {
			respondErr(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyOwner, owner)))
	})
}

func ownerFrom(r *http.Request) string {
	owner, _ := r.Context().Value(ctxKeyOwner).(string) //nolint:errcheck // type assertion, not an error
	return owner
}

func requestLogger(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context())
}
