package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	CSVPath string `yaml:"csv_path"`
	DBPath  string `yaml:"db_path"`

	// Remote API settings
	Fetch FetchConfig `yaml:"fetch"`

	// Ordered keyword table used for language tagging
	Languages []LanguageRule `yaml:"languages"`

	// Server settings
	ServerHost string `yaml:"server_host"`
	ServerPort int    `yaml:"server_port"`

	// Interval between fetch runs, zero for one-shot mode
	Interval time.Duration `yaml:"interval"`

	// Log settings
	LogLevel zerolog.Level `yaml:"-"`
}

// FetchConfig describes how posts are pulled from the search API.
type FetchConfig struct {
	APIURL         string        `yaml:"api_url"`
	HitsPerPage    int           `yaml:"hits_per_page"`
	Pages          int           `yaml:"pages"`
	PageDelay      time.Duration `yaml:"page_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	UserAgent      string        `yaml:"user_agent"`
}

// LanguageRule maps a language tag to the tokens that identify it in a title.
type LanguageRule struct {
	Tag      string   `yaml:"tag"`
	Patterns []string `yaml:"patterns"`
}

// DefaultConfig returns an initial configuration with hardcoded defaults.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		CSVPath: DefaultCSVPath,
		DBPath:  DefaultDBPath,
		Fetch: FetchConfig{
			APIURL:         DefaultAPIURL,
			HitsPerPage:    DefaultHitsPerPage,
			Pages:          DefaultPages,
			PageDelay:      DefaultPageDelay,
			RequestTimeout: DefaultRequestTimeout,
			UserAgent:      DefaultUserAgent,
		},
		Languages:  DefaultLanguages(),
		ServerHost: DefaultServerHost,
		ServerPort: DefaultServerPort,
		Interval:   time.Duration(DefaultInterval) * time.Minute,
		LogLevel:   logLevel,
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// Validate checks the settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Fetch.APIURL == "" {
		return fmt.Errorf("fetch.api_url must not be empty")
	}
	if c.Fetch.Pages <= 0 {
		return fmt.Errorf("fetch.pages must be positive, got %d", c.Fetch.Pages)
	}
	if c.Fetch.HitsPerPage <= 0 {
		return fmt.Errorf("fetch.hits_per_page must be positive, got %d", c.Fetch.HitsPerPage)
	}
	if c.Fetch.PageDelay < 0 {
		return fmt.Errorf("fetch.page_delay must not be negative")
	}
	return ValidateLanguages(c.Languages)
}

// ValidateLanguages rejects empty or duplicate tags and rules without patterns.
func ValidateLanguages(rules []LanguageRule) error {
	if len(rules) == 0 {
		return fmt.Errorf("language table is empty")
	}

	seen := make(map[string]bool, len(rules))
	for i, rule := range rules {
		tag := strings.TrimSpace(rule.Tag)
		if tag == "" {
			return fmt.Errorf("language rule %d has an empty tag", i)
		}
		if seen[tag] {
			return fmt.Errorf("language tag %q declared twice", tag)
		}
		seen[tag] = true

		if len(rule.Patterns) == 0 {
			return fmt.Errorf("language %q has no patterns", tag)
		}
		for _, p := range rule.Patterns {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("language %q has an empty pattern", tag)
			}
		}
	}
	return nil
}
