package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/harun/pasokh/pkg/fallback"
	"github.com/harun/pasokh/pkg/store"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if slices.Contains(validLevels, level) {
		return nil
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateCorpusPath checks that a configured corpus file exists and has a
// supported extension. An empty path selects the built-in corpus.
func (v *Validator) ValidateCorpusPath(path string) error {
	if path == "" {
		return nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
	default:
		return fmt.Errorf("corpus file must be .json, .yaml or .yml: %s", path)
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("corpus file: %w", err)
	}
	return nil
}

// ValidateTemplates checks the fallback template set
func (v *Validator) ValidateTemplates(templates []string) error {
	if len(templates) == 0 {
		return fmt.Errorf("fallback: %w", fallback.ErrNoTemplates)
	}
	for i, tpl := range templates {
		if !strings.Contains(tpl, fallback.Placeholder) {
			return fmt.Errorf("fallback template %d: %w", i, fallback.ErrMissingPlaceholder)
		}
	}
	return nil
}

// ValidateBackend checks the storage backend name
func (v *Validator) ValidateBackend(backend string) error {
	if slices.Contains(store.Backends(), strings.ToLower(backend)) {
		return nil
	}
	return fmt.Errorf("%w: %q (must be one of: %s)", store.ErrUnknownBackend,
		backend, strings.Join(store.Backends(), ", "))
}

// ValidateAddr checks a host:port address
func (v *Validator) ValidateAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	return nil
}

// ValidateTheme checks that name is one of the configured themes
func (v *Validator) ValidateTheme(cfg *Config, name string) error {
	if cfg.HasTheme(name) {
		return nil
	}
	return fmt.Errorf("unknown theme %q (must be one of: %s)", name, strings.Join(cfg.UI.Themes, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errs []error

	if err := cfg.MatcherOptions().Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := v.ValidateCorpusPath(cfg.Corpus.Path); err != nil {
		errs = append(errs, err)
	}

	if err := v.ValidateTemplates(cfg.Fallback.Templates); err != nil {
		errs = append(errs, err)
	}

	if cfg.Typing.TickMillis < 0 {
		errs = append(errs, fmt.Errorf("typing.tick_ms must be >= 0, got %d", cfg.Typing.TickMillis))
	}

	if err := v.ValidateBackend(cfg.Storage.Backend); err != nil {
		errs = append(errs, err)
	}
	if strings.EqualFold(cfg.Storage.Backend, store.BackendRedis) {
		if err := v.ValidateAddr(cfg.Storage.Redis.Addr); err != nil {
			errs = append(errs, fmt.Errorf("storage.redis.addr: %w", err))
		}
		if cfg.Storage.Redis.DB < 0 {
			errs = append(errs, fmt.Errorf("storage.redis.db must be >= 0"))
		}
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	if cfg.Metrics.Enabled {
		if err := v.ValidateAddr(cfg.Metrics.Addr); err != nil {
			errs = append(errs, fmt.Errorf("metrics.addr: %w", err))
		}
	}

	if len(cfg.UI.Themes) == 0 {
		errs = append(errs, fmt.Errorf("at least one theme must be configured"))
	} else if err := v.ValidateTheme(cfg, cfg.UI.Theme); err != nil {
		errs = append(errs, fmt.Errorf("ui.theme: %w", err))
	}

	return errs
}
