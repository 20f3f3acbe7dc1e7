// Package api serves the IFTTT service endpoints: the run_ssh_command
// action, the test/setup payload and the status probe.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ifttt-ssh/internal/action"
	"ifttt-ssh/internal/logging"
	"ifttt-ssh/internal/security"
	"ifttt-ssh/internal/ssh"
)

// Route paths relative to the configured prefix.
const (
	RouteRunSSHCommand = "/actions/run_ssh_command"
	RouteTestSetup     = "/test/setup"
	RouteStatus        = "/status"
)

// Error messages sent to IFTTT.
const (
	msgUnauthorized    = "Unable to validate IFTTT Service Key"
	msgExceptionPrefix = "Exception: "
)

// maxBodyBytes bounds the request body of run_ssh_command.
const maxBodyBytes = 1 << 20

// Authenticator validates the presented service key.
type Authenticator interface {
	Authenticate(presented string) error
}

// Executor runs a validated action request.
type Executor interface {
	Execute(ctx context.Context, req action.Request) (ssh.Outcome, error)
}

// Handler serves the IFTTT endpoints.
type Handler struct {
	auth     Authenticator
	executor Executor
	prefix   string
}

// NewHandler creates a handler. prefix is prepended to every route and may be empty.
func NewHandler(auth Authenticator, executor Executor, prefix string) *Handler {
	return &Handler{
		auth:     auth,
		executor: executor,
		prefix:   prefix,
	}
}

// Routes returns the HTTP handler for all endpoints. Every route accepts GET
// and POST.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	h.handle(mux, RouteRunSSHCommand, h.runSSHCommand)
	h.handle(mux, RouteTestSetup, h.testSetup)
	h.handle(mux, RouteStatus, h.status)

	return withRequestLogging(withRecovery(mux))
}

func (h *Handler) handle(mux *http.ServeMux, route string, fn http.HandlerFunc) {
	authed := h.authenticated(fn)
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		mux.Handle(method+" "+h.prefix+route, authed)
	}
}

// authenticated rejects the request before fn runs when the service key does
// not match. The body is never read in that case.
func (h *Handler) authenticated(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.auth.Authenticate(r.Header.Get(security.ServiceKeyHeader)); err != nil {
			writeError(w, r, err)
			return
		}
		fn(w, r)
	}
}

func (h *Handler) runSSHCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, fmt.Errorf("failed to read request body: %w", err))
		return
	}

	req, err := action.Parse(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	outcome, err := h.executor.Execute(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger := logging.FromContext(r.Context())
	logger.Debug().
		Bool("skipped", outcome.Skipped).
		Int("exit_status", outcome.ExitStatus).
		Msg("action completed")

	writeJSON(w, http.StatusOK, NewSuccess())
}

func (h *Handler) testSetup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewSetup(ssh.TestHostname))
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "Ok")
}

// StatusFor maps an error to the HTTP status sent to IFTTT.
func StatusFor(err error) int {
	var fieldErr *action.FieldError
	var portErr *action.PortFormatError

	switch {
	case errors.Is(err, security.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &fieldErr), errors.As(err, &portErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// MessageFor returns the message placed in the error envelope for err.
func MessageFor(err error) string {
	switch StatusFor(err) {
	case http.StatusUnauthorized:
		return msgUnauthorized
	case http.StatusBadRequest:
		return err.Error()
	default:
		return msgExceptionPrefix + err.Error()
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	logger := logging.FromContext(r.Context())
	event := logger.Warn()
	if status == http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Int("status", status).Msg("request failed")

	writeJSON(w, status, NewError(MessageFor(err)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
