package api

import (
	"context"
	"net/http"

	"github.com/warp/finance-engine/ledger"
)

type ctxKey int

const userKey ctxKey = iota

// requireUser resolves the caller from the X-User-ID header. Requests
// without it are rejected before reaching any handler. Real authentication
// is expected to sit in front of this service and inject the header.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User-ID")
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing X-User-ID header"})
			return
		}
		ctx := context.WithValue(r.Context(), userKey, ledger.UserID(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(r *http.Request) ledger.UserID {
	id, _ := r.Context().Value(userKey).(ledger.UserID)
	return id
}
