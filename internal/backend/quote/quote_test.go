package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factgrid/factserve/internal/facts"
)

func TestFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte("1.0,1.5,-0.25,\"-0.58%\",100\n"))
	}))
	defer srv.Close()

	b := New(Config{BaseURL: srv.URL, Client: srv.Client()})
	rec, err := b.Fetch(context.Background(), map[string]any{"symbol": "CMCSA"})
	require.NoError(t, err)

	assert.Equal(t, "s=CMCSA&f=abc1p2k3&e=.csv", gotQuery)
	assert.Equal(t, facts.Record{
		"bid":           facts.Number(1.0),
		"ask":           facts.Number(1.5),
		"change":        facts.Number(-0.25),
		"percentChange": facts.Number(-0.58),
		"lastTradeSize": facts.Number(100),
	}, rec)
}

func TestFetch_FeedErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "truncated line",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("1.0,1.5\n"))
			},
		},
		{
			name: "non-numeric field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("N/A,N/A,N/A,N/A,N/A\n"))
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			b := New(Config{BaseURL: srv.URL, Client: srv.Client()})
			_, err := b.Fetch(context.Background(), map[string]any{"symbol": "CMCSA"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, facts.ErrBackend))
		})
	}
}

func TestFetch_MissingSymbolConstant(t *testing.T) {
	b := New(Config{})
	_, err := b.Fetch(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, facts.ErrBackend))
}

func TestParseQuoteLine_StripsFeedNoise(t *testing.T) {
	rec, err := parseQuoteLine(`32.15,32.20,"0.35","+1.10%",500` + "\n")
	require.NoError(t, err)
	assert.Equal(t, facts.Number(1.10), rec["percentChange"])
	assert.Equal(t, facts.Number(500), rec["lastTradeSize"])
}
