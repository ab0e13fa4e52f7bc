package fetch

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/grant-triage/internal/storage"
)

func newStore(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFetcher_FreshThenFallback(t *testing.T) {
	api := &fakeAPI{hits: makeHits(3)}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	store := newStore(t)
	f := NewFetcher(newTestClient(srv.URL), store, nil)
	fixed := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return fixed }
	q := Query{Keyword: "energy", Max: 10}

	fresh, err := f.Fetch(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, SourceFresh, fresh.Source)
	assert.Len(t, fresh.Records, 3)
	assert.Nil(t, fresh.Err)

	api.setFail(true)
	cached, err := f.Fetch(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, SourceCachedFallback, cached.Source)
	assert.Equal(t, fresh.Records, cached.Records)
	assert.True(t, cached.FetchedAt.Equal(fixed))
	require.Error(t, cached.Err)
	assert.Contains(t, cached.Err.Error(), "status 502")
}

func TestFetcher_NoSnapshot(t *testing.T) {
	api := &fakeAPI{fail: true}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	f := NewFetcher(newTestClient(srv.URL), newStore(t), nil)
	_, err := f.Fetch(context.Background(), Query{Keyword: "never"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cached snapshot")
}

func TestFetcher_NoStore(t *testing.T) {
	api := &fakeAPI{fail: true}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	_, err := NewFetcher(newTestClient(srv.URL), nil, nil).Fetch(context.Background(), Query{Keyword: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, storage.ErrNoSnapshot))
}

func TestFetcher_Enriches(t *testing.T) {
	api := &fakeAPI{
		hits:    makeHits(1),
		details: map[int]string{1000: `{"synopsisDesc":"text","awardCeiling":10,"awardFloor":1,"costSharing":false}`},
	}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	client := newTestClient(srv.URL)
	res, err := NewFetcher(client, nil, NewEnricher(client, 2)).Fetch(context.Background(), Query{Keyword: "x"})
	require.NoError(t, err)
	require.NotNil(t, res.Details["1000"])
	assert.Equal(t, "10", res.Details["1000"].AwardCeiling)
}
