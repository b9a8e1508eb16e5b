// Package posts turns raw search hits into normalized, classified rows.
package posts

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"langpulse/tracker/internal/classify"
	"langpulse/tracker/internal/hn"
	"langpulse/tracker/internal/models"
)

// Classifier tags a title with a language and a sentiment.
type Classifier interface {
	Classify(title string) classify.Result
}

// Builder converts hits into Post rows.
type Builder struct {
	classifier Classifier
	now        func() time.Time
}

// NewBuilder creates a builder that stamps unparseable timestamps with the current time.
func NewBuilder(classifier Classifier) *Builder {
	return &Builder{classifier: classifier, now: time.Now}
}

// Build returns one row per usable hit, in input order. Hits without a
// title (after falling back to story_title) or without an objectID are skipped.
func (b *Builder) Build(hits []hn.Hit) []models.Post {
	rows := make([]models.Post, 0, len(hits))
	skipped := 0

	for _, hit := range hits {
		post, ok := b.buildOne(hit)
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, post)
	}

	log.Debug().
		Int("hits", len(hits)).
		Int("rows", len(rows)).
		Int("skipped", skipped).
		Msg("Built rows from hits")

	return rows
}

func (b *Builder) buildOne(hit hn.Hit) (models.Post, bool) {
	title := strings.TrimSpace(hit.Title)
	if title == "" {
		title = strings.TrimSpace(hit.StoryTitle)
	}
	if title == "" {
		return models.Post{}, false
	}

	id := strings.TrimSpace(hit.ObjectID)
	if id == "" {
		log.Warn().Str("title", title).Msg("Skipping hit without objectID")
		return models.Post{}, false
	}

	createdAt, err := models.ParseTime(hit.CreatedAt)
	if err != nil {
		createdAt = b.now().UTC()
		log.Debug().Err(err).Str("objectID", id).Msg("Unparseable created_at, using current time")
	}

	result := b.classifier.Classify(title)

	return models.Post{
		ObjectID:    id,
		Title:       title,
		URL:         models.NullString(strings.TrimSpace(hit.URL)),
		Author:      models.NullString(strings.TrimSpace(hit.Author)),
		Points:      toCount(hit.Points),
		NumComments: toCount(hit.NumComments),
		CreatedAt:   createdAt,
		Language:    models.NullString(result.Language),
		Sentiment:   models.NullString(string(result.Sentiment)),
	}, true
}

// toCount coerces a JSON number to a non-negative int. Missing or
// malformed values count as zero; fractions are truncated.
func toCount(n json.Number) int {
	if n == "" {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return clampCount(float64(i))
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return clampCount(math.Trunc(f))
}

func clampCount(v float64) int {
	if v < 0 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}
