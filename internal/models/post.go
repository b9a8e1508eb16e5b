package models

import (
	"database/sql"
	"time"
)

// TimeLayout is the serialized form of created_at in both stores.
// Fixed width keeps lexical order equal to chronological order.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Sentiment is the polarity category of a post title.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Valid reports whether s is one of the three sentiment categories.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// Post represents a row in the 'posts' table and in the CSV store
type Post struct {
	ObjectID    string         `db:"objectID"`
	Title       string         `db:"title"`
	URL         sql.NullString `db:"url"`
	Author      sql.NullString `db:"author"`
	Points      int            `db:"points"`
	NumComments int            `db:"num_comments"`
	CreatedAt   time.Time      `db:"created_at"`
	Language    sql.NullString `db:"language"`
	Sentiment   sql.NullString `db:"sentiment"`
}

// FormatTime renders t in the store layout, always in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NullString wraps s, treating the empty string as null.
func NullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
