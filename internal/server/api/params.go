package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"langpulse/tracker/internal/models"
	"langpulse/tracker/internal/server/storage"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	dateFormat   = "2006-01-02"
)

// parseFilter reads from, to, language and sentiment. A date-only 'to'
// covers the whole day.
func parseFilter(query url.Values) (storage.Filter, error) {
	var f storage.Filter

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		ts, _, err := parseTimeParam(v)
		if err != nil {
			return f, fmt.Errorf("invalid 'from' parameter: %w", err)
		}
		f.From = ts
	}

	if v := strings.TrimSpace(query.Get("to")); v != "" {
		ts, dateOnly, err := parseTimeParam(v)
		if err != nil {
			return f, fmt.Errorf("invalid 'to' parameter: %w", err)
		}
		if dateOnly {
			f.Before = ts.AddDate(0, 0, 1)
		} else {
			// Stored timestamps have millisecond precision.
			f.Before = ts.Truncate(time.Millisecond).Add(time.Millisecond)
		}
	}

	if !f.From.IsZero() && !f.Before.IsZero() && !f.From.Before(f.Before) {
		return f, fmt.Errorf("'from' must be before 'to'")
	}

	for _, lang := range query["language"] {
		if lang = strings.ToLower(strings.TrimSpace(lang)); lang != "" {
			f.Languages = append(f.Languages, lang)
		}
	}

	if v := strings.ToLower(strings.TrimSpace(query.Get("sentiment"))); v != "" {
		if !models.Sentiment(v).Valid() {
			return f, fmt.Errorf("invalid 'sentiment' parameter: must be positive, neutral or negative")
		}
		f.Sentiment = v
	}

	return f, nil
}

// parseTimeParam accepts RFC3339 or YYYY-MM-DD and reports which one it got.
func parseTimeParam(v string) (time.Time, bool, error) {
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		return ts.UTC(), false, nil
	}
	ts, err := time.Parse(dateFormat, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("use RFC3339 (2024-05-01T15:00:00Z) or YYYY-MM-DD")
	}
	return ts, true, nil
}

func parseLimit(v string) (int, error) {
	if v == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit <= 0 || limit > maxLimit {
		return 0, fmt.Errorf("invalid 'limit' parameter: must be between 1 and %d", maxLimit)
	}
	return limit, nil
}
