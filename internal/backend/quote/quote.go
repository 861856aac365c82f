// Package quote wraps a Yahoo-style CSV quote feed as a fact backend.
// One ticker symbol in, five numeric quote properties out.
package quote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/factgrid/factserve/internal/facts"
)

const (
	defaultBaseURL = "http://download.finance.yahoo.com/d/quotes.csv"

	// fieldSpec selects bid, ask, change, percent change, last trade size.
	fieldSpec = "abc1p2k3"

	maxBodyBytes = 1 << 16
)

// csvFields names the quote CSV columns in feed order.
var csvFields = []string{"bid", "ask", "change", "percentChange", "lastTradeSize"}

// feedNoise strips percent signs, quotes, and newlines from the feed line.
var feedNoise = regexp.MustCompile(`[%"\n]+`)

// DomainSchema describes the quote predicate: one required symbol, five
// bindable quote properties.
func DomainSchema() facts.Schema {
	return facts.MustSchema(
		[]facts.ConstantSpec{facts.RequiredKey("symbol")},
		csvFields,
	)
}

// Config holds the quote feed settings.
type Config struct {
	BaseURL string
	Client  *http.Client
	Logger  *zap.Logger
}

// Backend fetches quotes from the CSV feed.
type Backend struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

var _ facts.Fetcher = (*Backend)(nil)

// New creates a quote backend.
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

// Fetch implements facts.Fetcher. It performs one CSV fetch for the symbol
// constant and parses the single quote line into a record.
func (b *Backend) Fetch(ctx context.Context, constants map[string]any) (facts.Record, error) {
	symbol, ok := constants["symbol"].(string)
	if !ok {
		return nil, &facts.BackendError{Detail: "quote fetch needs a symbol constant"}
	}

	uri := fmt.Sprintf("%s?s=%s&f=%s&e=.csv", b.baseURL, url.QueryEscape(symbol), fieldSpec)
	b.logger.Debug("fetching quote", zap.String("symbol", symbol), zap.String("uri", uri))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, &facts.BackendError{Detail: "build quote request", Err: err}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &facts.BackendError{Detail: "quote feed request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &facts.BackendError{
			Detail: fmt.Sprintf("quote feed returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &facts.BackendError{Detail: "read quote feed response", Err: err}
	}

	return parseQuoteLine(string(body))
}

// parseQuoteLine turns one CSV quote line into a record. The feed wraps
// some columns in quotes and percent signs; those are stripped before the
// split, matching what the feed actually sends.
func parseQuoteLine(line string) (facts.Record, error) {
	line = feedNoise.ReplaceAllString(strings.TrimSpace(line), "")
	parts := strings.Split(line, ",")
	if len(parts) < len(csvFields) {
		return nil, &facts.BackendError{
			Detail: fmt.Sprintf("malformed quote line %q: want %d fields, got %d", line, len(csvFields), len(parts)),
		}
	}

	record := make(facts.Record, len(csvFields))
	for i, name := range csvFields {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return nil, &facts.BackendError{
				Detail: fmt.Sprintf("malformed quote field %s in line %q", name, line),
				Err:    err,
			}
		}
		record[name] = facts.Number(v)
	}
	return record, nil
}
