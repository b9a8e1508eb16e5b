package classify

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"langpulse/tracker/internal/models"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

const (
	negationWindow = 3
	negationDamp   = -0.5
)

// Lexicon scores titles against a word polarity table. The score is the
// mean polarity of the polar words found, clamped to [-1, 1].
type Lexicon struct {
	Words        map[string]float64 `yaml:"words"`
	Negators     []string           `yaml:"negators"`
	Intensifiers map[string]float64 `yaml:"intensifiers"`

	negators map[string]bool
}

// NewLexicon returns the embedded default lexicon.
func NewLexicon() (*Lexicon, error) {
	return ParseLexicon(defaultLexicon)
}

// ParseLexicon loads a lexicon from a YAML document.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}
	if len(lex.Words) == 0 {
		return nil, fmt.Errorf("lexicon has no words")
	}
	for word, polarity := range lex.Words {
		if polarity < -1 || polarity > 1 {
			return nil, fmt.Errorf("polarity of %q out of range: %v", word, polarity)
		}
	}

	lex.negators = make(map[string]bool, len(lex.Negators))
	for _, n := range lex.Negators {
		lex.negators[strings.ToLower(n)] = true
	}
	return &lex, nil
}

// Score returns the polarity of title in [-1, 1]; zero when no polar word is found.
func (l *Lexicon) Score(title string) float64 {
	var (
		sum       float64
		count     int
		intensity = 1.0
		negateFor int
	)

	for _, token := range tokenize(title) {
		if l.isNegator(token) {
			negateFor = negationWindow
			continue
		}
		if factor, ok := l.Intensifiers[token]; ok {
			intensity *= factor
			continue
		}

		polarity, ok := l.Words[token]
		if !ok {
			intensity = 1.0
			if negateFor > 0 {
				negateFor--
			}
			continue
		}

		value := clamp(polarity * intensity)
		if negateFor > 0 {
			value *= negationDamp
		}
		sum += value
		count++

		intensity = 1.0
		negateFor = 0
	}

	if count == 0 {
		return 0
	}
	return clamp(sum / float64(count))
}

// Sentiment maps the sign of Score to a category.
func (l *Lexicon) Sentiment(title string) models.Sentiment {
	score := l.Score(title)
	switch {
	case score > 0:
		return models.SentimentPositive
	case score < 0:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func (l *Lexicon) isNegator(token string) bool {
	return l.negators[token] || strings.HasSuffix(token, "n't")
}

// tokenize lower-cases s and splits it into words, keeping apostrophes
// inside words so contractions like "isn't" survive.
func tokenize(s string) []string {
	s = strings.ToLower(strings.ReplaceAll(s, "’", "'"))
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
