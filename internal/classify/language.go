// Package classify tags post titles with a programming language and a
// sentiment category. Everything here is pure and safe to share.
package classify

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"langpulse/tracker/internal/config"
)

// Tokens start at the title edge or after anything that is not a letter,
// digit or underscore. After a token only letters and underscores block a
// match, so version suffixes work ("c++20", "go1.22"). Single-letter tokens
// keep the strict boundary on both sides.
const (
	boundaryBefore = `(?:^|[^\p{L}\p{N}_])`
	boundaryAfter  = `(?:$|[^\p{L}_])`
	strictAfter    = `(?:$|[^\p{L}\p{N}_])`
)

type languageRule struct {
	tag      string
	patterns []*regexp.Regexp
}

// LanguageTable is an ordered keyword table; the first matching rule wins.
type LanguageTable struct {
	rules []languageRule
	tags  map[string]bool
}

// NewLanguageTable compiles rules in declaration order.
func NewLanguageTable(rules []config.LanguageRule) (*LanguageTable, error) {
	if err := config.ValidateLanguages(rules); err != nil {
		return nil, err
	}

	table := &LanguageTable{
		rules: make([]languageRule, 0, len(rules)),
		tags:  make(map[string]bool, len(rules)),
	}
	for _, rule := range rules {
		tag := strings.ToLower(strings.TrimSpace(rule.Tag))
		compiled := languageRule{tag: tag}
		for _, pattern := range rule.Patterns {
			token := strings.ToLower(strings.TrimSpace(pattern))
			after := boundaryAfter
			if utf8.RuneCountInString(token) == 1 {
				after = strictAfter
			}
			re, err := regexp.Compile(boundaryBefore + regexp.QuoteMeta(token) + after)
			if err != nil {
				return nil, fmt.Errorf("compiling pattern %q for %q: %w", pattern, tag, err)
			}
			compiled.patterns = append(compiled.patterns, re)
		}
		table.rules = append(table.rules, compiled)
		table.tags[tag] = true
	}
	return table, nil
}

// Classify returns the tag of the first rule with a pattern in title.
func (t *LanguageTable) Classify(title string) (string, bool) {
	lowered := strings.ToLower(title)
	if strings.TrimSpace(lowered) == "" {
		return "", false
	}
	for _, rule := range t.rules {
		for _, re := range rule.patterns {
			if re.MatchString(lowered) {
				return rule.tag, true
			}
		}
	}
	return "", false
}

// Has reports whether tag belongs to the table's closed set.
func (t *LanguageTable) Has(tag string) bool {
	return t.tags[tag]
}

// Tags returns the tags in declaration order.
func (t *LanguageTable) Tags() []string {
	tags := make([]string, len(t.rules))
	for i, rule := range t.rules {
		tags[i] = rule.tag
	}
	return tags
}
