package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/upb/persona-relay/internal/shared"
)

// RequestIDHeader carries the request ID in and out of the relay
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength caps caller-supplied IDs before they reach the logs
const maxRequestIDLength = 128

// RequestID honours an incoming X-Request-ID or generates a UUID, stores it in
// the request context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		ctx := shared.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
