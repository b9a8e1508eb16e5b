package api

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name       string
		query      url.Values
		wantFrom   time.Time
		wantBefore time.Time
		wantLangs  []string
		wantSent   string
	}{
		{
			name:  "empty",
			query: url.Values{},
		},
		{
			name:       "date-only to covers the day",
			query:      url.Values{"from": {"2024-05-01"}, "to": {"2024-05-02"}},
			wantFrom:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			wantBefore: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "timestamp to is inclusive",
			query:      url.Values{"to": {"2024-05-02T12:00:00+02:00"}},
			wantBefore: time.Date(2024, 5, 2, 10, 0, 0, int(time.Millisecond), time.UTC),
		},
		{
			name:      "languages and sentiment",
			query:     url.Values{"language": {" Go ", "", "rust"}, "sentiment": {"Negative"}},
			wantLangs: []string{"go", "rust"},
			wantSent:  "negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFilter(tt.query)
			require.NoError(t, err)
			assert.True(t, tt.wantFrom.Equal(f.From), "from = %v", f.From)
			assert.True(t, tt.wantBefore.Equal(f.Before), "before = %v", f.Before)
			assert.Equal(t, tt.wantLangs, f.Languages)
			assert.Equal(t, tt.wantSent, f.Sentiment)
		})
	}
}

func TestParseLimit(t *testing.T) {
	limit, err := parseLimit("")
	require.NoError(t, err)
	assert.Equal(t, defaultLimit, limit)

	limit, err = parseLimit("1000")
	require.NoError(t, err)
	assert.Equal(t, 1000, limit)

	for _, bad := range []string{"0", "-5", "1001", "abc"} {
		_, err := parseLimit(bad)
		assert.Error(t, err, bad)
	}
}
