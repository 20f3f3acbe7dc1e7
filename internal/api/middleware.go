package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ifttt-ssh/internal/logging"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// withRequestLogging attaches a request-scoped logger to the context and logs
// each completed request.
func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		logger := logging.Component("api").With().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(logging.WithContext(r.Context(), logger)))

		logger.Info().
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Dict("headers", headerDict(r.Header)).
			Msg("request")
	})
}

// headerDict renders request headers for the request log with credentials
// replaced by the redaction marker.
func headerDict(header http.Header) *zerolog.Event {
	dict := zerolog.Dict()
	for name, values := range header {
		value := strings.Join(values, ",")
		if logging.IsSensitiveField(name) {
			value = logging.RedactedValue
		}
		dict.Str(name, value)
	}
	return dict
}

// withRecovery turns a panic in a handler into the 500 error envelope.
func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				writeError(w, r, fmt.Errorf("unhandled failure: %v", v))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
