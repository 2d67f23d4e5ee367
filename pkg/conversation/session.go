package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harun/pasokh/internal/observability"
	"github.com/harun/pasokh/internal/tracing"
	"github.com/harun/pasokh/pkg/history"
	"github.com/harun/pasokh/pkg/matcher"
	"github.com/harun/pasokh/pkg/store"
	"github.com/harun/pasokh/pkg/typing"
)

const tracerName = "pasokh/conversation"

var (
	// ErrReplyPending is returned by Send while the previous reply is still typing
	ErrReplyPending = errors.New("a reply is still pending")
	// ErrPersist wraps store failures reported through OnWarning
	ErrPersist = errors.New("failed to persist conversation state")
	// ErrClosed is returned by Send after Close
	ErrClosed = errors.New("session is closed")
)

// Matcher resolves a query to a corpus answer
type Matcher interface {
	Lookup(query string) (matcher.Match, bool)
}

// Fallback renders a reply for queries without a match
type Fallback interface {
	Pick(query string) string
}

// Typist schedules the delayed reply
type Typist interface {
	Start(textLength int, fn func()) *typing.Pending
}

// Store persists session state
type Store interface {
	Load(ctx context.Context) store.State
	SaveMessages(ctx context.Context, msgs []history.Message) error
	SaveDarkMode(ctx context.Context, dark bool) error
	SaveTheme(ctx context.Context, theme string) error
	ClearMessages(ctx context.Context) error
}

// Config wires a session's collaborators
type Config struct {
	Matcher  Matcher
	Fallback Fallback
	Typing   Typist
	Store    Store
	Logger   zerolog.Logger

	// OnChange receives a snapshot after every state change. Snapshots from
	// concurrent changes may arrive out of order; compare Version.
	OnChange func(Snapshot)
	// OnWarning receives non-fatal persistence errors.
	OnWarning func(error)

	// ResumeUnanswered answers a restored log's trailing user message, left
	// behind when a previous process exited while the reply was typing.
	ResumeUnanswered bool
}

func (c Config) validate() error {
	switch {
	case c.Matcher == nil:
		return fmt.Errorf("matcher is required")
	case c.Fallback == nil:
		return fmt.Errorf("fallback is required")
	case c.Typing == nil:
		return fmt.Errorf("typing simulator is required")
	case c.Store == nil:
		return fmt.Errorf("store is required")
	}
	return nil
}

// Snapshot is a point-in-time copy of session state for rendering
type Snapshot struct {
	ID       string
	Version  uint64
	Messages []history.Message
	Pending  bool
	DarkMode bool
	Theme    string
}

// Session is a single local conversation. It is safe for concurrent use.
type Session struct {
	id       string
	matcher  Matcher
	fallback Fallback
	typist   Typist
	store    Store
	logger   zerolog.Logger

	onChange  func(Snapshot)
	onWarning func(error)

	mu         sync.Mutex
	messages   []history.Message
	pending    *Turn
	generation uint64
	version    uint64
	darkMode   bool
	theme      string
	closed     bool
}

// New restores persisted state and returns an idle session, or one already
// typing the reply to an unanswered query when ResumeUnanswered is set.
func New(ctx context.Context, cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	ctx = tracing.WithSessionID(ctx, id)
	ctx, span := tracing.StartSpan(ctx, tracerName, "conversation.restore",
		attribute.String("session_id", id))
	defer span.End()

	state := cfg.Store.Load(ctx)

	s := &Session{
		id:        id,
		matcher:   cfg.Matcher,
		fallback:  cfg.Fallback,
		typist:    cfg.Typing,
		store:     cfg.Store,
		logger:    cfg.Logger.With().Str("component", "conversation").Str("session_id", id).Logger(),
		onChange:  cfg.OnChange,
		onWarning: cfg.OnWarning,
		messages:  history.Clone(state.Messages),
		darkMode:  state.DarkMode,
		theme:     state.Theme,
	}

	span.SetAttributes(attribute.Int("messages", len(s.messages)))
	s.logger.Info().Int("messages", len(s.messages)).Msg("Session restored")

	if n := len(s.messages); cfg.ResumeUnanswered && n > 0 && s.messages[n-1].Role == history.RoleUser {
		query := s.messages[n-1].Text
		ctx = tracing.WithTurnID(ctx, tracing.NewTurnID())

		s.mu.Lock()
		turn := s.scheduleLocked(ctx, query)
		s.mu.Unlock()

		span.SetAttributes(attribute.Bool("resumed", true))
		logger := tracing.LoggerFromContext(ctx, s.logger)
		logger.Info().
			Bool("matched", turn.Matched).
			Msg("Answering unanswered query from previous run")
	}

	return s, nil
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// Send appends the user message and schedules the reply. A blank query is
// ignored and yields a nil Turn and nil error.
func (s *Session) Send(ctx context.Context, query string) (*Turn, error) {
	text := strings.TrimSpace(query)
	if text == "" {
		return nil, nil
	}

	ctx = tracing.WithSessionID(ctx, s.id)
	ctx = tracing.WithTurnID(ctx, tracing.NewTurnID())
	ctx, span := tracing.StartSpan(ctx, tracerName, "conversation.send",
		attribute.String("session_id", s.id))
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, s.logger)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		tracing.Fail(span, ErrClosed)
		return nil, ErrClosed
	}
	if s.pending != nil {
		s.mu.Unlock()
		observability.RecordRejectedSend()
		tracing.Fail(span, ErrReplyPending)
		logger.Debug().Msg("Send rejected, reply pending")
		return nil, ErrReplyPending
	}

	s.messages = append(s.messages, history.User(text))
	observability.RecordMessage(string(history.RoleUser))
	warn := s.persistMessagesLocked(ctx)

	turn := s.scheduleLocked(ctx, text)
	span.SetAttributes(
		attribute.Bool("matched", turn.Matched),
		attribute.Float64("score", turn.Score),
	)

	snap := s.snapshotLocked()
	s.mu.Unlock()

	logger.Debug().
		Bool("matched", turn.Matched).
		Float64("score", turn.Score).
		Dur("delay", turn.pending.Duration()).
		Msg("Reply scheduled")

	s.warn(warn)
	s.notify(snap)
	return turn, nil
}

// scheduleLocked resolves the reply for query and starts the typing delay.
func (s *Session) scheduleLocked(ctx context.Context, query string) *Turn {
	turn := s.resolve(ctx, query)

	gen := s.generation
	replyCtx := tracing.Detach(ctx)
	s.pending = turn
	turn.pending = s.typist.Start(utf8.RuneCountInString(turn.Answer), func() {
		s.deliver(replyCtx, gen, turn)
	})
	observability.AddPendingReplies(1)
	return turn
}

// resolve picks the reply text. Matcher and fallback are pure so it is safe
// under the lock.
func (s *Session) resolve(ctx context.Context, query string) *Turn {
	_, span := tracing.StartSpan(ctx, tracerName, "conversation.lookup")
	defer span.End()

	turn := &Turn{ID: tracing.GetTurnID(ctx), Query: query, Index: -1}

	start := time.Now()
	m, ok := s.matcher.Lookup(query)
	observability.RecordLookup(time.Since(start), ok, m.Score)

	if ok {
		turn.Answer = m.Answer
		turn.Matched = true
		turn.Index = m.Index
		turn.Score = m.Score
		return turn
	}
	turn.Answer = s.fallback.Pick(query)
	return turn
}

// deliver appends the reply for generation gen. Replies from before a Clear
// or after Close are dropped.
func (s *Session) deliver(ctx context.Context, gen uint64, turn *Turn) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "conversation.reply")
	defer span.End()

	s.mu.Lock()
	if gen != s.generation || s.closed {
		s.mu.Unlock()
		observability.RecordDiscardedReply()
		span.SetAttributes(attribute.Bool("discarded", true))
		return
	}

	s.messages = append(s.messages, history.Bot(turn.Answer))
	s.pending = nil
	turn.delivered.Store(true)
	observability.AddPendingReplies(-1)
	observability.RecordMessage(string(history.RoleBot))
	warn := s.persistMessagesLocked(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.warn(warn)
	s.notify(snap)
}

// Clear empties the conversation when confirmed and reports whether it did.
// An outstanding reply is cancelled and never appended.
func (s *Session) Clear(ctx context.Context, confirmed bool) bool {
	if !confirmed {
		return false
	}

	ctx = tracing.WithSessionID(ctx, s.id)
	ctx, span := tracing.StartSpan(ctx, tracerName, "conversation.clear",
		attribute.String("session_id", s.id))
	defer span.End()

	s.mu.Lock()
	s.generation++
	s.cancelPendingLocked()
	s.messages = []history.Message{}

	var warn error
	if err := s.store.ClearMessages(ctx); err != nil {
		warn = fmt.Errorf("%w: %w", ErrPersist, err)
		tracing.Fail(span, err)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info().Msg("Conversation cleared")
	s.warn(warn)
	s.notify(snap)
	return true
}

func (s *Session) cancelPendingLocked() {
	if s.pending == nil {
		return
	}
	// A callback that already started sees the new generation and drops itself.
	if s.pending.pending.Cancel() {
		observability.RecordDiscardedReply()
	}
	observability.AddPendingReplies(-1)
	s.pending = nil
}

// Messages returns a copy of the log in insertion order
func (s *Session) Messages() []history.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return history.Clone(s.messages)
}

// Pending returns the turn whose reply is being typed, or nil
func (s *Session) Pending() *Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// IsPending reports whether a reply is being typed
func (s *Session) IsPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// DarkMode returns the dark-mode flag
func (s *Session) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.darkMode
}

// SetDarkMode sets and persists the dark-mode flag
func (s *Session) SetDarkMode(ctx context.Context, dark bool) {
	s.mu.Lock()
	warn := s.setDarkModeLocked(ctx, dark)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.warn(warn)
	s.notify(snap)
}

// ToggleDarkMode flips the dark-mode flag and returns the new value
func (s *Session) ToggleDarkMode(ctx context.Context) bool {
	s.mu.Lock()
	dark := !s.darkMode
	warn := s.setDarkModeLocked(ctx, dark)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.warn(warn)
	s.notify(snap)
	return dark
}

func (s *Session) setDarkModeLocked(ctx context.Context, dark bool) error {
	s.darkMode = dark
	if err := s.store.SaveDarkMode(ctx, dark); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Theme returns the current theme name
func (s *Session) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme sets and persists the theme name. Validation of known themes is
// left to the caller.
func (s *Session) SetTheme(ctx context.Context, theme string) {
	s.mu.Lock()
	s.theme = theme
	var warn error
	if err := s.store.SaveTheme(ctx, theme); err != nil {
		warn = fmt.Errorf("%w: %w", ErrPersist, err)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.warn(warn)
	s.notify(snap)
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotWithoutBump()
}

// Close cancels any pending reply. Later Sends return ErrClosed. The store
// is not closed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.generation++
	s.cancelPendingLocked()
	s.logger.Debug().Msg("Session closed")
	return nil
}

func (s *Session) persistMessagesLocked(ctx context.Context) error {
	if err := s.store.SaveMessages(ctx, s.messages); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (s *Session) snapshotLocked() Snapshot {
	s.version++
	return s.snapshotWithoutBump()
}

func (s *Session) snapshotWithoutBump() Snapshot {
	return Snapshot{
		ID:       s.id,
		Version:  s.version,
		Messages: history.Clone(s.messages),
		Pending:  s.pending != nil,
		DarkMode: s.darkMode,
		Theme:    s.theme,
	}
}

func (s *Session) warn(err error) {
	if err == nil {
		return
	}
	s.logger.Warn().Err(err).Msg("Persistence failed, keeping in-memory state")
	if s.onWarning != nil {
		s.onWarning(err)
	}
}

func (s *Session) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}
