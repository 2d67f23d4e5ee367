package config

import (
	"encoding/json"
	"errors"
	"slices"

	"github.com/harun/pasokh/pkg/fallback"
	"github.com/harun/pasokh/pkg/matcher"
	"github.com/harun/pasokh/pkg/store"
)

// Config represents the main Pasokh configuration
type Config struct {
	Corpus   CorpusConfig   `json:"corpus" mapstructure:"corpus"`
	Matcher  MatcherConfig  `json:"matcher" mapstructure:"matcher"`
	Fallback FallbackConfig `json:"fallback" mapstructure:"fallback"`
	Typing   TypingConfig   `json:"typing" mapstructure:"typing"`
	Storage  StorageConfig  `json:"storage" mapstructure:"storage"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	Metrics  MetricsConfig  `json:"metrics" mapstructure:"metrics"`
	UI       UIConfig       `json:"ui" mapstructure:"ui"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// CorpusConfig locates the knowledge base. An empty path uses the built-in corpus.
type CorpusConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// MatcherConfig tunes fuzzy matching
type MatcherConfig struct {
	ScanThreshold   float64 `json:"scan_threshold" mapstructure:"scan_threshold"`
	AcceptThreshold float64 `json:"accept_threshold" mapstructure:"accept_threshold"`
	Distance        int     `json:"distance" mapstructure:"distance"`
	Location        int     `json:"location" mapstructure:"location"`
	KeywordInQuery  bool    `json:"keyword_in_query" mapstructure:"keyword_in_query"`
}

// FallbackConfig holds reply templates for unmatched queries
type FallbackConfig struct {
	Templates []string `json:"templates" mapstructure:"templates"`
	Seed      uint64   `json:"seed" mapstructure:"seed"` // 0 seeds from the clock
}

// TypingConfig controls the simulated typing delay
type TypingConfig struct {
	TickMillis int `json:"tick_ms" mapstructure:"tick_ms"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Backend    string      `json:"backend" mapstructure:"backend"` // file, sqlite, redis, memory
	Path       string      `json:"path" mapstructure:"path"`
	SQLitePath string      `json:"sqlite_path" mapstructure:"sqlite_path"`
	Redis      RedisConfig `json:"redis" mapstructure:"redis"`
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
	Prefix   string `json:"prefix" mapstructure:"prefix"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig exposes prometheus metrics over HTTP
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// UIConfig holds presentation settings
type UIConfig struct {
	Theme        string   `json:"theme" mapstructure:"theme"`
	Themes       []string `json:"themes" mapstructure:"themes"`
	QuickReplies []string `json:"quick_replies" mapstructure:"quick_replies"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	mo := matcher.DefaultOptions()
	return &Config{
		Matcher: MatcherConfig{
			ScanThreshold:   mo.ScanThreshold,
			AcceptThreshold: mo.AcceptThreshold,
			Distance:        mo.Distance,
			Location:        mo.Location,
			KeywordInQuery:  mo.KeywordInQuery,
		},
		Fallback: FallbackConfig{
			Templates: append([]string(nil), fallback.DefaultTemplates...),
		},
		Typing: TypingConfig{
			TickMillis: 15,
		},
		Storage: StorageConfig{
			Backend: store.BackendFile,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "pasokh:",
			},
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   10,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
		UI: UIConfig{
			Theme:  "blue",
			Themes: []string{"blue", "green", "purple"},
			QuickReplies: []string{
				"ساعت کاری",
				"قیمت",
				"تماس با پشتیبانی",
			},
		},
	}
}

// MatcherOptions converts the matcher section
func (c *Config) MatcherOptions() matcher.Options {
	return matcher.Options{
		ScanThreshold:   c.Matcher.ScanThreshold,
		AcceptThreshold: c.Matcher.AcceptThreshold,
		Distance:        c.Matcher.Distance,
		Location:        c.Matcher.Location,
		KeywordInQuery:  c.Matcher.KeywordInQuery,
	}
}

// StoreOptions converts the storage section
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:    c.Storage.Backend,
		Dir:        c.Storage.Path,
		SQLitePath: c.Storage.SQLitePath,
		Redis: store.RedisOptions{
			Addr:     c.Storage.Redis.Addr,
			Password: c.Storage.Redis.Password,
			DB:       c.Storage.Redis.DB,
			Prefix:   c.Storage.Redis.Prefix,
		},
	}
}

// HasTheme reports whether name is a configured theme
func (c *Config) HasTheme(name string) bool {
	return slices.Contains(c.UI.Themes, name)
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid, joining every problem found
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}
