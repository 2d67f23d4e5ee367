// Package app wires configuration into a ready conversation session.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/pasokh/internal/config"
	"github.com/harun/pasokh/internal/observability"
	"github.com/harun/pasokh/internal/tracing"
	"github.com/harun/pasokh/pkg/conversation"
	"github.com/harun/pasokh/pkg/corpus"
	"github.com/harun/pasokh/pkg/fallback"
	"github.com/harun/pasokh/pkg/matcher"
	"github.com/harun/pasokh/pkg/store"
	"github.com/harun/pasokh/pkg/typing"
)

// Options are runtime hooks that do not belong in the config file
type Options struct {
	OnChange  func(conversation.Snapshot)
	OnWarning func(error)
	// Source overrides the fallback random source.
	Source fallback.Source
	// ResumeUnanswered answers a query the previous run left unanswered.
	ResumeUnanswered bool
}

// App owns every long-lived component
type App struct {
	config *config.Config
	logger zerolog.Logger

	corpus    *corpus.Corpus
	matcher   *matcher.Matcher
	selector  *fallback.Selector
	simulator *typing.Simulator
	kv        store.KV
	store     *store.Store
	session   *conversation.Session

	metricsServer *http.Server
	metricsWG     sync.WaitGroup

	tracingEnabled bool
	closeOnce      sync.Once
}

// New builds the components in dependency order
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	observability.EnsureRegistered()

	a := &App{
		config: cfg,
		logger: log.With().Str("component", "app").Logger(),
	}

	if err := tracing.InitOpenTelemetry("pasokh"); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
	} else {
		a.tracingEnabled = true
	}

	if err := a.initializeCore(opts); err != nil {
		a.shutdownTracing()
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	if err := a.initializeSession(ctx, log, opts); err != nil {
		a.shutdownTracing()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	return a, nil
}

func (a *App) initializeCore(opts Options) error {
	var err error
	if a.config.Corpus.Path == "" {
		a.corpus = corpus.Default()
		a.logger.Info().Int("entries", a.corpus.Len()).Msg("Built-in corpus loaded")
	} else {
		a.corpus, err = corpus.Load(a.config.Corpus.Path)
		if err != nil {
			return err
		}
		a.logger.Info().Str("path", a.config.Corpus.Path).Int("entries", a.corpus.Len()).Msg("Corpus loaded")
	}

	a.matcher, err = matcher.New(a.corpus, a.config.MatcherOptions())
	if err != nil {
		return err
	}
	a.logger.Debug().Interface("options", a.matcher.Options()).Msg("Matcher initialized")

	src := opts.Source
	if src == nil {
		src = newSource(a.config.Fallback.Seed)
	}
	a.selector, err = fallback.New(a.config.Fallback.Templates, src)
	if err != nil {
		return err
	}

	a.simulator = typing.New(time.Duration(a.config.Typing.TickMillis) * time.Millisecond)
	return nil
}

func (a *App) initializeSession(ctx context.Context, log zerolog.Logger, opts Options) error {
	kv, err := store.Open(ctx, a.config.StoreOptions())
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", a.config.Storage.Backend, err)
	}
	a.kv = kv
	a.store = store.New(kv, log, a.config.UI.Theme)
	a.logger.Info().Str("backend", kv.Name()).Msg("Store initialized")

	a.session, err = conversation.New(ctx, conversation.Config{
		Matcher:   a.matcher,
		Fallback:  a.selector,
		Typing:    a.simulator,
		Store:     a.store,
		Logger:    log,
		OnChange:  opts.OnChange,
		OnWarning: opts.OnWarning,

		ResumeUnanswered: opts.ResumeUnanswered,
	})
	if err != nil {
		kv.Close()
		return err
	}
	return nil
}

// newSource seeds from the clock when seed is zero
func newSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Config returns the active configuration
func (a *App) Config() *config.Config { return a.config }

// Session returns the conversation session
func (a *App) Session() *conversation.Session { return a.session }

// Matcher returns the corpus matcher
func (a *App) Matcher() *matcher.Matcher { return a.matcher }

// Fallback returns the fallback selector
func (a *App) Fallback() *fallback.Selector { return a.selector }

// Store returns the persistence store
func (a *App) Store() *store.Store { return a.store }

// Corpus returns the loaded corpus
func (a *App) Corpus() *corpus.Corpus { return a.corpus }

// StartMetrics serves /metrics on addr until Close. It returns the bound
// address, which differs from addr when addr uses port 0.
func (a *App) StartMetrics(addr string) (string, error) {
	if a.metricsServer != nil {
		return "", errors.New("metrics server already running")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	a.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.metricsWG.Add(1)
	go func() {
		defer a.metricsWG.Done()
		if err := a.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	a.logger.Info().Str("addr", ln.Addr().String()).Msg("Metrics server started")
	return ln.Addr().String(), nil
}

// Close stops the session, metrics server, store and tracing, in that order
func (a *App) Close(ctx context.Context) error {
	var errs []error
	a.closeOnce.Do(func() {
		if a.session != nil {
			errs = append(errs, a.session.Close())
		}

		if a.metricsServer != nil {
			if err := a.metricsServer.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("metrics server: %w", err))
			}
			a.metricsWG.Wait()
		}

		if a.kv != nil {
			if err := a.kv.Close(); err != nil {
				errs = append(errs, fmt.Errorf("store: %w", err))
			}
		}

		a.shutdownTracing()
		a.logger.Debug().Msg("App closed")
	})
	return errors.Join(errs...)
}

func (a *App) shutdownTracing() {
	if !a.tracingEnabled {
		return
	}
	if err := tracing.ShutdownOpenTelemetry(context.Background()); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to shut down tracing")
	}
	a.tracingEnabled = false
}
