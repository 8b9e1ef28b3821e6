// Package research ties note parsing, classification, prompt building, the
// xAI request and the note update into one user-triggered action.
package research

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/suykerbuyk/vault-research/internal/config"
	"github.com/suykerbuyk/vault-research/internal/history"
	"github.com/suykerbuyk/vault-research/internal/notice"
	"github.com/suykerbuyk/vault-research/internal/xai"
)

var (
	ErrNoAPIKey   = errors.New("xAI API key is not set")
	ErrNoNote     = errors.New("no active note")
	ErrNotStarted = errors.New("plugin not started")
)

// Completer sends a prompt and returns the completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*xai.Completion, error)
}

// Options carries the collaborators of a Plugin. Nil fields get defaults.
type Options struct {
	Notifier notice.Notifier
	Logger   *zap.Logger
	// Client overrides the xAI client built from the config.
	Client Completer
}

// Plugin runs research for notes in one vault. Create it with New, call
// Start before Run, and Stop when done.
type Plugin struct {
	cfg    config.Config
	client Completer
	notify notice.Notifier
	log    *zap.Logger

	mu      sync.Mutex // one research at a time
	started bool
	history *history.Store
	closers []func() error
}

func New(cfg config.Config, opts Options) *Plugin {
	p := &Plugin{
		cfg:    cfg,
		client: opts.Client,
		notify: opts.Notifier,
		log:    opts.Logger,
	}
	if p.notify == nil {
		p.notify = &notice.Recorder{}
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	return p
}

// Start marks the plugin ready. The history database is opened on the
// first recorded run, so starting never writes to the vault.
func (p *Plugin) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}
	p.started = true

	p.log.Debug("plugin started", zap.String("vault", p.cfg.VaultPath))
	return nil
}

// Register adds a cleanup function that Stop runs. Cleanups run in reverse
// registration order.
func (p *Plugin) Register(closer func() error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closers = append(p.closers, closer)
}

// Stop releases every registered resource. It is safe to call more than once.
func (p *Plugin) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	p.history = nil
	p.started = false

	p.log.Debug("plugin stopped")
	return errors.Join(errs...)
}

// History returns the history store, or nil until a run has been recorded.
func (p *Plugin) History() *history.Store {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history
}

// openHistory returns the history store, opening it on first use. Without
// create it only opens a database that already exists. It returns nil when
// there is nothing to open or the open fails. Callers hold p.mu.
func (p *Plugin) openHistory(create bool) *history.Store {
	if p.history != nil {
		return p.history
	}
	if !p.vaultExists() {
		return nil
	}
	path := p.cfg.HistoryPath()
	if !create {
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}

	store, err := history.Open(path)
	if err != nil {
		p.log.Warn("open history", zap.String("path", path), zap.Error(err))
		return nil
	}
	p.history = store
	p.closers = append(p.closers, store.Close)
	p.log.Debug("history opened", zap.String("path", store.Path()))
	return store
}

func (p *Plugin) vaultExists() bool {
	if p.cfg.VaultPath == "" {
		return false
	}
	info, err := os.Stat(p.cfg.VaultPath)
	return err == nil && info.IsDir()
}

func (p *Plugin) completer(apiKey string) Completer {
	if p.client != nil {
		return p.client
	}
	return xai.NewClient(apiKey, xai.Options{
		BaseURL:    p.cfg.XAI.BaseURL,
		Model:      p.cfg.XAI.Model,
		SearchMode: p.cfg.XAI.SearchMode,
		Timeout:    time.Duration(p.cfg.XAI.TimeoutSeconds) * time.Second,
	})
}
