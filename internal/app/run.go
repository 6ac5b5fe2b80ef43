package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Aesylwinn/tox-forward/internal/domain"
)

// Drive iterates tr every interval until ctx is done. It is the only
// goroutine that may touch the transport or anything bound to it.
// Iteration errors are logged and do not stop the loop.
func Drive(ctx context.Context, tr domain.Transport, clk clock.Clock, interval time.Duration, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	t := clk.Ticker(interval)
	defer t.Stop()
	for {
		if err := tr.Iterate(ctx); err != nil && ctx.Err() == nil {
			log.Warn("iteration failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Run drives the transport and, when MetricsAddr is set, serves
// /metrics until ctx is cancelled.
func (w *Wire) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return Drive(ctx, w.Transport, w.Clock, time.Duration(w.Config.TickInterval), w.Logger)
	})

	if addr := w.Config.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(w.Registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			w.Logger.Info("metrics listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdown)
		})
	}
	return g.Wait()
}
