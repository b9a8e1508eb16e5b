// Package pipeline runs one fetch, classify and persist cycle.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"langpulse/tracker/internal/hn"
	"langpulse/tracker/internal/models"
	"langpulse/tracker/internal/store"
)

// Fetcher returns the raw hits of the most recent pages.
type Fetcher interface {
	FetchRecent(ctx context.Context, pages int) ([]hn.Hit, error)
}

// RowBuilder turns hits into classified rows.
type RowBuilder interface {
	Build(hits []hn.Hit) []models.Post
}

// StoreResult is the merge outcome for one store.
type StoreResult struct {
	Store string
	store.MergeResult
}

// Stats summarizes one run.
type Stats struct {
	RunID    string
	Hits     int
	Rows     int
	Skipped  int
	Stores   []StoreResult
	Duration time.Duration
}

// Runner fetches a batch and merges it into every store, in order.
type Runner struct {
	fetcher Fetcher
	builder RowBuilder
	stores  []store.PostStore
	pages   int
}

// NewRunner creates a runner. Stores are written in the order given.
func NewRunner(fetcher Fetcher, builder RowBuilder, pages int, stores ...store.PostStore) *Runner {
	return &Runner{
		fetcher: fetcher,
		builder: builder,
		stores:  stores,
		pages:   pages,
	}
}

// Run performs one cycle. A fetch failure aborts before any store is read
// or written. An empty batch leaves every store untouched. A failure while
// writing a later store leaves the earlier stores already updated.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	stats := Stats{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", stats.RunID).Logger()
	start := time.Now()

	logger.Info().Int("pages", r.pages).Msg("Starting fetch run")

	hits, err := r.fetcher.FetchRecent(ctx, r.pages)
	if err != nil {
		return stats, fmt.Errorf("fetching posts: %w", err)
	}
	stats.Hits = len(hits)

	rows := r.builder.Build(hits)
	stats.Rows = len(rows)
	stats.Skipped = stats.Hits - stats.Rows

	if len(rows) == 0 {
		stats.Duration = time.Since(start)
		logger.Info().Int("hits", stats.Hits).Msg("No posts fetched")
		return stats, nil
	}

	for _, s := range r.stores {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		res, err := store.MergeInto(ctx, s, rows)
		if err != nil {
			return stats, err
		}
		stats.Stores = append(stats.Stores, StoreResult{Store: s.Name(), MergeResult: res})
	}

	stats.Duration = time.Since(start)
	logger.Info().
		Int("hits", stats.Hits).
		Int("rows", stats.Rows).
		Int("skipped", stats.Skipped).
		Dur("duration", stats.Duration).
		Msg("Fetch run finished")

	return stats, nil
}
