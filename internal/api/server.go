package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ifttt-ssh/internal/logging"
)

// Serve runs an HTTP server for handler on addr until ctx is cancelled, then
// shuts it down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	logger := logging.Component("api")

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
