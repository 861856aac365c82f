// Package instrument times backend fetches and records their outcome.
package instrument

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/factgrid/factserve/internal/facts"
	"github.com/factgrid/factserve/internal/metrics"
)

// Fetcher wraps an inner fetcher with duration and status metrics.
type Fetcher struct {
	inner   facts.Fetcher
	service string
	logger  *zap.Logger
}

var _ facts.Fetcher = (*Fetcher)(nil)

// New creates an instrumented fetcher for one service.
func New(inner facts.Fetcher, service string, logger *zap.Logger) *Fetcher {
	return &Fetcher{inner: inner, service: service, logger: logger}
}

// Fetch implements facts.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, constants map[string]any) (facts.Record, error) {
	start := time.Now()
	rec, err := f.inner.Fetch(ctx, constants)
	duration := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.BackendFetchDuration.WithLabelValues(f.service, status).Observe(duration.Seconds())

	if err != nil {
		f.logger.Warn("backend fetch failed",
			zap.String("service", f.service),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	f.logger.Debug("backend fetch",
		zap.String("service", f.service),
		zap.Duration("duration", duration),
		zap.Int("properties", len(rec)),
	)
	return rec, nil
}
