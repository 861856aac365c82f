package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/factgrid/factserve/internal/db"
	"github.com/factgrid/factserve/internal/facts"
)

// --- Mocks ---

type fakeStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.lastTTL = ttl
	return nil
}

type countingFetcher struct {
	record facts.Record
	err    error
	calls  int
}

func (c *countingFetcher) Fetch(_ context.Context, _ map[string]any) (facts.Record, error) {
	c.calls++
	return c.record, c.err
}

// --- Tests ---

func TestFetch_MissThenHit(t *testing.T) {
	store := newFakeStore()
	inner := &countingFetcher{record: facts.Record{"bid": facts.Number(1.0), "symbol": "CMCSA"}}
	cached := New(inner, store, "quote", time.Minute, nil, zap.NewNop())
	constants := map[string]any{"symbol": "CMCSA"}

	first, err := cached.Fetch(context.Background(), constants)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, time.Minute, store.lastTTL)

	second, err := cached.Fetch(context.Background(), constants)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "second fetch must be served from cache")
	assert.Equal(t, first, second)
}

func TestFetch_NumberSurvivesRoundTrip(t *testing.T) {
	store := newFakeStore()
	inner := &countingFetcher{record: facts.Record{"ask": facts.Number(1.5), "lastTradeSize": facts.Number(100)}}
	cached := New(inner, store, "quote", time.Minute, nil, zap.NewNop())
	constants := map[string]any{"symbol": "CMCSA"}

	_, err := cached.Fetch(context.Background(), constants)
	require.NoError(t, err)

	rec, err := cached.Fetch(context.Background(), constants)
	require.NoError(t, err)
	assert.Equal(t, facts.Number(1.5), rec["ask"])
	assert.Equal(t, facts.Number(100), rec["lastTradeSize"])
}

func TestFetch_DistinctConstantsDistinctEntries(t *testing.T) {
	store := newFakeStore()
	inner := &countingFetcher{record: facts.Record{"bid": facts.Number(1.0)}}
	cached := New(inner, store, "quote", time.Minute, nil, zap.NewNop())

	_, err := cached.Fetch(context.Background(), map[string]any{"symbol": "CMCSA"})
	require.NoError(t, err)
	_, err = cached.Fetch(context.Background(), map[string]any{"symbol": "IBM"})
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Len(t, store.data, 2)
}

func TestFetch_StoreFailureDegradesToFetch(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection reset")
	inner := &countingFetcher{record: facts.Record{"bid": facts.Number(1.0)}}
	cached := New(inner, store, "quote", time.Minute, nil, zap.NewNop())

	rec, err := cached.Fetch(context.Background(), map[string]any{"symbol": "CMCSA"})
	require.NoError(t, err)
	assert.Equal(t, inner.record, rec)
	assert.Equal(t, 1, inner.calls)
}

func TestFetch_BackendErrorsAreNotCached(t *testing.T) {
	store := newFakeStore()
	inner := &countingFetcher{err: &facts.BackendError{Detail: "feed down"}}
	cached := New(inner, store, "quote", time.Minute, nil, zap.NewNop())

	_, err := cached.Fetch(context.Background(), map[string]any{"symbol": "CMCSA"})
	require.Error(t, err)
	assert.Empty(t, store.data)

	_, err = cached.Fetch(context.Background(), map[string]any{"symbol": "CMCSA"})
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}
