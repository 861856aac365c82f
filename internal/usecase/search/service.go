// Package search orchestrates one fact search: validate the pattern, run
// the backend fetch, resolve bindings. One fetch per request, no retries,
// no state across requests.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/factgrid/factserve/internal/facts"
)

// Service resolves fact patterns for one domain schema against one backend.
type Service struct {
	schema  facts.Schema
	fetcher facts.Fetcher
	timeout time.Duration
}

// New creates a search service.
func New(schema facts.Schema, fetcher facts.Fetcher) *Service {
	return &Service{schema: schema, fetcher: fetcher}
}

// WithTimeout bounds the backend fetch. Zero means no request-side bound.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

// Search decodes a pattern from body and resolves it. Validation failures
// and backend failures come back as errors; an unsatisfied resolution is
// not an error, it is the empty envelope.
func (s *Service) Search(ctx context.Context, body io.Reader) (facts.Result, error) {
	entries, err := facts.ParseObject(body)
	if err != nil {
		return facts.Result{}, fmt.Errorf("%w: %w", facts.ErrInvalidPattern, err)
	}

	pattern, err := facts.NewPattern(entries, s.schema)
	if err != nil {
		return facts.Result{}, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	record, err := s.fetcher.Fetch(ctx, pattern.Constants())
	if err != nil {
		if errors.Is(err, facts.ErrBackend) {
			return facts.Result{}, err
		}
		return facts.Result{}, &facts.BackendError{Detail: "fetch", Err: err}
	}

	bindings, ok := facts.Resolve(pattern, record)
	if !ok {
		return facts.EmptyResult(), nil
	}
	return facts.FoundResult(bindings), nil
}
