package classify

import (
	"langpulse/tracker/internal/models"
)

// SentimentScorer turns a title into a sentiment category.
type SentimentScorer interface {
	Sentiment(title string) models.Sentiment
}

// Result is the classification of one title. Language is empty when no
// rule matched.
type Result struct {
	Language  string
	Sentiment models.Sentiment
}

// Classifier combines language tagging and sentiment scoring.
type Classifier struct {
	languages *LanguageTable
	sentiment SentimentScorer
}

func New(languages *LanguageTable, sentiment SentimentScorer) *Classifier {
	return &Classifier{languages: languages, sentiment: sentiment}
}

func (c *Classifier) Classify(title string) Result {
	lang, _ := c.languages.Classify(title)
	return Result{
		Language:  lang,
		Sentiment: c.sentiment.Sentiment(title),
	}
}
