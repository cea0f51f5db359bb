// internal/server/timeouts.go
//
// HTTP server helper with explicit timeouts.
//
//   • ReadTimeout   – abort slow-loris headers and bodies
//   • WriteTimeout  – cap total response time; must exceed the longest
//                     delete or parent-move cascade
//   • IdleTimeout   – close keep-alives on idle clients
//
// Values come from the `http` config section; zero falls back to the
// defaults below.

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Timeouts mirrors config.HTTP.
type Timeouts struct {
	Read, Write, Idle, Shutdown time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	or := func(d, def time.Duration) time.Duration {
		if d > 0 {
			return d
		}
		return def
	}
	return Timeouts{
		Read:     or(t.Read, 10*time.Second),
		Write:    or(t.Write, 30*time.Second),
		Idle:     or(t.Idle, 60*time.Second),
		Shutdown: or(t.Shutdown, 15*time.Second),
	}
}

// New constructs an *http.Server.
func New(addr string, handler http.Handler, t Timeouts) *http.Server {
	t = t.withDefaults()
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: t.Read,
		ReadTimeout:       t.Read,
		WriteTimeout:      t.Write,
		IdleTimeout:       t.Idle,
	}
}

// Run serves srv until ctx is cancelled, then drains in-flight requests
// for at most shutdown.
func Run(ctx context.Context, srv *http.Server, shutdown time.Duration, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
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

	log.Info("shutting down", zap.Duration("grace", shutdown))
	sctx, cancel := context.WithTimeout(context.Background(), Timeouts{Shutdown: shutdown}.withDefaults().Shutdown)
	defer cancel()
	return srv.Shutdown(sctx)
}
