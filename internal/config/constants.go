package config

import "time"

// Constants defining default values for application configuration
const (
	DefaultCSVPath = "./data/hn_data.csv"
	DefaultDBPath  = "./data/hn_data.sqlite"

	DefaultAPIURL         = "https://hn.algolia.com/api/v1/search_by_date"
	DefaultHitsPerPage    = 100
	DefaultPages          = 10
	DefaultPageDelay      = time.Second
	DefaultRequestTimeout = 15 * time.Second
	DefaultUserAgent      = "langpulse-tracker/1.0"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultInterval = 0 // Minutes between fetch runs, 0 means one-shot

	DefaultLogLevel = "info"
)

// DefaultLanguages is the ordered keyword table. The first rule that
// matches a title wins, so more specific names come before the names
// they contain (javascript before java, c++ and c# before c).
func DefaultLanguages() []LanguageRule {
	return []LanguageRule{
		{Tag: "python", Patterns: []string{"python"}},
		{Tag: "javascript", Patterns: []string{"javascript", "js", "node", "nodejs", "node.js"}},
		{Tag: "java", Patterns: []string{"java"}},
		{Tag: "c++", Patterns: []string{"c++", "cpp"}},
		{Tag: "c#", Patterns: []string{"c#", "c sharp", "csharp"}},
		{Tag: "c", Patterns: []string{"c"}},
		{Tag: "go", Patterns: []string{"golang", "go"}},
		{Tag: "rust", Patterns: []string{"rust"}},
		{Tag: "typescript", Patterns: []string{"typescript", "ts"}},
		{Tag: "ruby", Patterns: []string{"ruby"}},
		{Tag: "php", Patterns: []string{"php"}},
		{Tag: "swift", Patterns: []string{"swift"}},
		{Tag: "kotlin", Patterns: []string{"kotlin"}},
		{Tag: "scala", Patterns: []string{"scala"}},
		{Tag: "r", Patterns: []string{"r"}},
		{Tag: "dart", Patterns: []string{"dart"}},
		{Tag: "haskell", Patterns: []string{"haskell"}},
		{Tag: "perl", Patterns: []string{"perl"}},
		{Tag: "shell", Patterns: []string{"bash", "shell", "sh", "zsh"}},
		{Tag: "sql", Patterns: []string{"sql"}},
	}
}
