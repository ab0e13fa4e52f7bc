package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/grant-triage/internal/logger"
	"github.com/pfrederiksen/grant-triage/internal/storage"
)

// Source tells where a Result came from.
type Source string

const (
	SourceFresh          Source = "fresh"
	SourceCachedFallback Source = "cached-fallback"
)

// Result is the outcome of Fetcher.Fetch. Err carries the live failure when
// Source is SourceCachedFallback.
type Result struct {
	Records   []Hit              `json:"records"`
	Details   map[string]*Detail `json:"-"`
	Source    Source             `json:"source"`
	FetchedAt time.Time          `json:"fetched_at"`
	Err       error              `json:"-"`
}

// Fetcher runs a live search and keeps the snapshot cache current.
type Fetcher struct {
	client   *Client
	enricher *Enricher
	store    *storage.Storage
	now      func() time.Time
}

// NewFetcher wires a client to an optional cache and enricher. Either may be nil.
func NewFetcher(client *Client, store *storage.Storage, enricher *Enricher) *Fetcher {
	return &Fetcher{
		client:   client,
		enricher: enricher,
		store:    store,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Fetch searches the API. On success the hits are cached under q.Key(). On
// failure the cached snapshot for the same query is returned instead; with
// no snapshot the live error is returned.
func (f *Fetcher) Fetch(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()
	defer func() { logger.RecordTiming("fetch.total", time.Since(start)) }()

	key := q.Key()
	hits, liveErr := f.client.Search(ctx, q)
	if liveErr == nil {
		res := &Result{Records: hits, Source: SourceFresh, FetchedAt: f.now()}
		f.save(ctx, key, res)
		if f.enricher != nil && len(hits) > 0 {
			details, err := f.enricher.Enrich(ctx, hits)
			if err != nil {
				return nil, err
			}
			res.Details = details
		}
		logger.Info("fetched opportunities", logger.Fields{"count": len(hits), "source": string(res.Source)})
		return res, nil
	}

	if f.store == nil {
		return nil, fmt.Errorf("fetching opportunities: %w", liveErr)
	}
	snap, err := f.store.LoadSnapshot(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNoSnapshot) {
			return nil, fmt.Errorf("fetching opportunities (no cached snapshot): %w", liveErr)
		}
		return nil, fmt.Errorf("fetching opportunities: %w (cache: %v)", liveErr, err)
	}

	var cached []Hit
	if err := json.Unmarshal(snap.Payload, &cached); err != nil {
		return nil, fmt.Errorf("fetching opportunities: %w (decoding cache: %v)", liveErr, err)
	}

	logger.IncrCounter("fetch.cache_fallback")
	logger.Warn("fetch fell back to cache", logger.Fields{
		"query":      key,
		"count":      len(cached),
		"fetched_at": snap.FetchedAt.Format(time.RFC3339),
		"error":      liveErr.Error(),
	})
	return &Result{
		Records:   cached,
		Source:    SourceCachedFallback,
		FetchedAt: snap.FetchedAt,
		Err:       liveErr,
	}, nil
}

func (f *Fetcher) save(ctx context.Context, key string, res *Result) {
	if f.store == nil {
		return
	}
	payload, err := json.Marshal(res.Records)
	if err != nil {
		logger.Warn("encoding snapshot failed", logger.Fields{"error": err.Error()})
		return
	}
	snap := &storage.Snapshot{Key: key, Payload: payload, Count: len(res.Records), FetchedAt: res.FetchedAt}
	if err := f.store.SaveSnapshot(ctx, snap); err != nil {
		logger.Warn("saving snapshot failed", logger.Fields{"error": err.Error()})
	}
}
