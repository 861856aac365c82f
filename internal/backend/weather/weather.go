// Package weather wraps an OpenWeatherMap-style API as a fact backend.
// One locale string in, the current temperature out.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/factgrid/factserve/internal/facts"
)

const (
	defaultBaseURL = "http://api.openweathermap.org/data/2.5/weather"
	defaultUnits   = "metric"

	maxBodyBytes = 1 << 20
)

// DomainSchema describes the weather predicate: one required locale, the
// temperature as the single bindable property.
func DomainSchema() facts.Schema {
	return facts.MustSchema(
		[]facts.ConstantSpec{facts.RequiredConstant("locale", facts.KindString)},
		[]string{"temp"},
	)
}

// Config holds the weather API settings. APIKey is required and comes from
// configuration, never from a package-level constant.
type Config struct {
	APIKey  string
	BaseURL string
	Units   string
	Client  *http.Client
	Logger  *zap.Logger
}

// Backend fetches current weather reports.
type Backend struct {
	apiKey  string
	baseURL string
	units   string
	client  *http.Client
	logger  *zap.Logger
}

var _ facts.Fetcher = (*Backend)(nil)

// New creates a weather backend.
func New(cfg Config) *Backend {
	b := &Backend{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		units:   cfg.Units,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
	if b.baseURL == "" {
		b.baseURL = defaultBaseURL
	}
	if b.units == "" {
		b.units = defaultUnits
	}
	if b.client == nil {
		b.client = http.DefaultClient
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	return b
}

// report is the slice of the upstream payload we care about. Temp is a
// pointer so a report without main.temp is distinguishable from 0 degrees.
type report struct {
	Main struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Message string `json:"message"`
}

// Fetch implements facts.Fetcher. It queries the current weather for the
// locale constant and extracts main.temp into the record.
func (b *Backend) Fetch(ctx context.Context, constants map[string]any) (facts.Record, error) {
	locale, ok := constants["locale"].(string)
	if !ok {
		return nil, &facts.BackendError{Detail: "weather fetch needs a locale constant"}
	}

	uri := fmt.Sprintf("%s?appid=%s&units=%s&q=%s",
		b.baseURL, url.QueryEscape(b.apiKey), url.QueryEscape(b.units), url.QueryEscape(locale))
	b.logger.Debug("fetching weather", zap.String("locale", locale))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, &facts.BackendError{Detail: "build weather request", Err: err}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &facts.BackendError{Detail: "weather API request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var rep report
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&rep); err != nil {
		return nil, &facts.BackendError{Detail: "decode weather report", Err: err}
	}

	if rep.Main.Temp == nil {
		detail := "weather report has no main.temp"
		if rep.Message != "" {
			detail = fmt.Sprintf("%s (upstream says: %s)", detail, rep.Message)
		}
		return nil, &facts.BackendError{Detail: detail}
	}

	return facts.Record{"temp": facts.Number(*rep.Main.Temp)}, nil
}
