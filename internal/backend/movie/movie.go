// Package movie wraps an OMDB-style movie database as a fact backend.
// The titleQuery constant is passed through as the raw query string (for
// example "t=True%20Grit&y=1969"); the flat JSON reply becomes the record.
package movie

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/factgrid/factserve/internal/facts"
)

const (
	defaultBaseURL = "http://www.omdbapi.com/"

	maxBodyBytes = 1 << 20
)

// legalProperties are the movie attributes callers may request.
var legalProperties = []string{
	"Actors", "Awards", "Country", "Director", "Genre", "Language",
	"Metascore", "Plot", "Poster", "Rated", "Released", "Response",
	"Runtime", "Title", "Type", "Writer", "Year", "imdbID", "imdbRating",
	"imdbVotes",
}

// DomainSchema describes the movie predicate.
func DomainSchema() facts.Schema {
	return facts.MustSchema(
		[]facts.ConstantSpec{facts.RequiredKey("titleQuery")},
		legalProperties,
	)
}

// Config holds the movie database settings.
type Config struct {
	BaseURL string
	Client  *http.Client
	Logger  *zap.Logger
}

// Backend fetches movie records.
type Backend struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

var _ facts.Fetcher = (*Backend)(nil)

// New creates a movie backend.
func New(cfg Config) *Backend {
	b := &Backend{
		baseURL: cfg.BaseURL,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
	if b.baseURL == "" {
		b.baseURL = defaultBaseURL
	}
	if b.client == nil {
		b.client = http.DefaultClient
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	return b
}

// Fetch implements facts.Fetcher. The upstream reply is passed through as
// the record, including a "Response":"False" error shape; a pattern asking
// for properties such a reply lacks simply resolves to the empty envelope.
func (b *Backend) Fetch(ctx context.Context, constants map[string]any) (facts.Record, error) {
	query, ok := constants["titleQuery"].(string)
	if !ok {
		return nil, &facts.BackendError{Detail: "movie fetch needs a titleQuery constant"}
	}

	uri := b.baseURL + "?" + query
	b.logger.Debug("fetching movie", zap.String("uri", uri))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, &facts.BackendError{Detail: "build movie request", Err: err}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &facts.BackendError{Detail: "movie database request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &facts.BackendError{
			Detail: fmt.Sprintf("movie database returned status %d", resp.StatusCode),
		}
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &facts.BackendError{Detail: "decode movie record", Err: err}
	}

	record := make(facts.Record, len(raw))
	for k, v := range raw {
		record[k] = normalizeValue(v)
	}
	return record, nil
}

// normalizeValue converts decoded numbers to facts.Number so numeric
// attributes serialize under the fixed-point contract.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return facts.Number(f)
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalizeValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = normalizeValue(e)
		}
		return s
	default:
		return v
	}
}
