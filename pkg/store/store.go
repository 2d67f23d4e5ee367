package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/pasokh/internal/observability"
	"github.com/harun/pasokh/internal/tracing"
	"github.com/harun/pasokh/pkg/history"
)

// Persisted keys
const (
	KeyMessages = "chatMessages"
	KeyDarkMode = "darkMode"
	KeyTheme    = "chatTheme"
)

const tracerName = "pasokh/store"

// State is what a session restores on start
type State struct {
	Messages []history.Message
	DarkMode bool
	Theme    string
}

// Store maps conversation state onto KV keys
type Store struct {
	kv           KV
	logger       zerolog.Logger
	defaultTheme string
}

// New wraps kv; defaultTheme is used when no theme has been saved
func New(kv KV, logger zerolog.Logger, defaultTheme string) *Store {
	return &Store{
		kv:           kv,
		logger:       logger.With().Str("component", "store").Str("backend", kv.Name()).Logger(),
		defaultTheme: defaultTheme,
	}
}

// Backend returns the backend name
func (s *Store) Backend() string {
	return s.kv.Name()
}

// Load restores state. Unreadable or corrupt entries are logged and replaced
// by defaults; Load itself never fails.
func (s *Store) Load(ctx context.Context) State {
	ctx, span := tracing.StartSpan(ctx, tracerName, "store.load")
	defer span.End()

	state := State{
		Messages: []history.Message{},
		Theme:    s.defaultTheme,
	}

	if raw, ok := s.read(ctx, KeyMessages); ok {
		msgs, skipped, err := history.Decode([]byte(raw))
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Str("key", KeyMessages).Msg("Discarding corrupt message log")
			observability.RecordStoreRecovered(KeyMessages)
		default:
			if skipped > 0 {
				s.logger.Warn().Int("skipped", skipped).Str("key", KeyMessages).Msg("Skipped invalid messages")
				observability.RecordStoreRecovered(KeyMessages)
			}
			state.Messages = msgs
		}
	}

	if raw, ok := s.read(ctx, KeyDarkMode); ok {
		dark, err := strconv.ParseBool(raw)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", KeyDarkMode).Msg("Ignoring invalid dark mode flag")
			observability.RecordStoreRecovered(KeyDarkMode)
		} else {
			state.DarkMode = dark
		}
	}

	if raw, ok := s.read(ctx, KeyTheme); ok {
		if raw == "" {
			observability.RecordStoreRecovered(KeyTheme)
		} else {
			state.Theme = raw
		}
	}

	s.logger.Debug().
		Int("messages", len(state.Messages)).
		Bool("dark_mode", state.DarkMode).
		Str("theme", state.Theme).
		Msg("State loaded")

	return state
}

// read returns ok=false for absent keys and for read errors (logged)
func (s *Store) read(ctx context.Context, key string) (string, bool) {
	var (
		value string
		found bool
	)
	err := s.observe(ctx, "get", func(ctx context.Context) error {
		var err error
		value, found, err = s.kv.Get(ctx, key)
		return err
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to read state, using default")
		observability.RecordStoreRecovered(key)
		return "", false
	}
	return value, found
}

// SaveMessages overwrites the persisted message log
func (s *Store) SaveMessages(ctx context.Context, msgs []history.Message) error {
	data, err := history.Encode(msgs)
	if err != nil {
		return err
	}
	return s.write(ctx, KeyMessages, string(data))
}

// SaveDarkMode persists the dark-mode flag as "true"/"false"
func (s *Store) SaveDarkMode(ctx context.Context, dark bool) error {
	return s.write(ctx, KeyDarkMode, strconv.FormatBool(dark))
}

// SaveTheme persists the theme name
func (s *Store) SaveTheme(ctx context.Context, theme string) error {
	return s.write(ctx, KeyTheme, theme)
}

// ClearMessages removes the persisted message log
func (s *Store) ClearMessages(ctx context.Context) error {
	return s.observe(ctx, "delete", func(ctx context.Context) error {
		if err := s.kv.Delete(ctx, KeyMessages); err != nil {
			return fmt.Errorf("clear messages: %w", err)
		}
		return nil
	})
}

// Close releases the backend
func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) write(ctx context.Context, key, value string) error {
	return s.observe(ctx, "set", func(ctx context.Context) error {
		if err := s.kv.Set(ctx, key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	})
}

func (s *Store) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "store."+op)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	observability.RecordStoreOp(s.kv.Name(), op, time.Since(start), err)
	if err != nil {
		tracing.Fail(span, err)
	}
	return err
}
