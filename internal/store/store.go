// Package store persists posts in two interchangeable representations and
// reconciles new batches into them.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"langpulse/tracker/internal/models"
)

// ErrStoreMissing is returned by the adapters' low-level readers when the
// backing file or table does not exist yet. ReadAll treats it as empty.
var ErrStoreMissing = errors.New("store does not exist")

// Columns is the persisted column order shared by both adapters.
var Columns = []string{
	"objectID", "title", "url", "author", "points",
	"num_comments", "created_at", "language", "sentiment",
}

// PostStore is a full-table representation of the post collection.
// WriteAll replaces the whole contents atomically.
type PostStore interface {
	Name() string
	ReadAll(ctx context.Context) ([]models.Post, error)
	WriteAll(ctx context.Context, posts []models.Post) error
}

// TagSet is the closed set of language tags a store keeps.
type TagSet interface {
	Has(tag string) bool
}

// MergeResult summarizes one merge.
type MergeResult struct {
	Added    int // ids not present before
	Replaced int // ids overwritten by the new batch
	Total    int // rows after the merge
}

// Merge appends incoming to existing, keeps the last row seen for every id
// and sorts by created_at ascending, ties broken by id.
func Merge(existing, incoming []models.Post) ([]models.Post, MergeResult) {
	before := make(map[string]bool, len(existing))
	for _, p := range existing {
		before[p.ObjectID] = true
	}

	var res MergeResult
	counted := make(map[string]bool, len(incoming))
	for _, p := range incoming {
		if counted[p.ObjectID] {
			continue
		}
		counted[p.ObjectID] = true
		if before[p.ObjectID] {
			res.Replaced++
		} else {
			res.Added++
		}
	}

	combined := make([]models.Post, 0, len(existing)+len(incoming))
	combined = append(combined, existing...)
	combined = append(combined, incoming...)

	merged := dedupeKeepLast(combined)
	sortPosts(merged)

	res.Total = len(merged)
	return merged, res
}

func dedupeKeepLast(posts []models.Post) []models.Post {
	seen := make(map[string]bool, len(posts))
	out := make([]models.Post, 0, len(posts))
	for i := len(posts) - 1; i >= 0; i-- {
		if seen[posts[i].ObjectID] {
			continue
		}
		seen[posts[i].ObjectID] = true
		out = append(out, posts[i])
	}
	slices.Reverse(out)
	return out
}

func sortPosts(posts []models.Post) {
	slices.SortFunc(posts, func(a, b models.Post) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ObjectID, b.ObjectID)
	})
}

// MergeInto reads s, merges incoming into it and writes the result back.
func MergeInto(ctx context.Context, s PostStore, incoming []models.Post) (MergeResult, error) {
	existing, err := s.ReadAll(ctx)
	if err != nil {
		return MergeResult{}, fmt.Errorf("reading %s store: %w", s.Name(), err)
	}

	merged, res := Merge(existing, incoming)

	if err := s.WriteAll(ctx, merged); err != nil {
		return MergeResult{}, fmt.Errorf("writing %s store: %w", s.Name(), err)
	}

	log.Info().
		Str("store", s.Name()).
		Int("existing", len(existing)).
		Int("added", res.Added).
		Int("replaced", res.Replaced).
		Int("total", res.Total).
		Msg("Merged posts into store")

	return res, nil
}

// Resync replaces the contents of to with the contents of from. The copy is
// deduplicated and sorted on the way, so to always satisfies the store
// invariants even when from had drifted.
func Resync(ctx context.Context, from, to PostStore) (int, error) {
	posts, err := from.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading %s store: %w", from.Name(), err)
	}

	posts, _ = Merge(posts, nil)

	if err := to.WriteAll(ctx, posts); err != nil {
		return 0, fmt.Errorf("writing %s store: %w", to.Name(), err)
	}

	log.Info().
		Str("from", from.Name()).
		Str("to", to.Name()).
		Int("rows", len(posts)).
		Msg("Resynced store")

	return len(posts), nil
}

// Clean removes superseded duplicates from s and restores the sort order.
func Clean(ctx context.Context, s PostStore) (before, after int, err error) {
	posts, err := s.ReadAll(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("reading %s store: %w", s.Name(), err)
	}

	cleaned, _ := Merge(posts, nil)

	if err := s.WriteAll(ctx, cleaned); err != nil {
		return 0, 0, fmt.Errorf("writing %s store: %w", s.Name(), err)
	}

	log.Info().
		Str("store", s.Name()).
		Int("before", len(posts)).
		Int("after", len(cleaned)).
		Msg("Cleaned store")

	return len(posts), len(cleaned), nil
}

// parseCount reads a stored count, tolerating "12.0" and blanks.
func parseCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return int(f)
}

// sentimentValue drops values outside the three categories.
func sentimentValue(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !models.Sentiment(s).Valid() {
		return ""
	}
	return s
}

// languageValue normalizes a stored tag and drops tags outside tags. A nil
// set accepts any tag.
func languageValue(tags TagSet, s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", true
	}
	if tags != nil && !tags.Has(s) {
		return "", false
	}
	return s, true
}
