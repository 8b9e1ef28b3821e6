// Package watch researches notes as they are saved. It follows every
// directory of the vault except hidden ones and hands each settled,
// tagged, not yet researched note to a Runner.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/suykerbuyk/vault-research/internal/classify"
	"github.com/suykerbuyk/vault-research/internal/noteparse"
	"github.com/suykerbuyk/vault-research/internal/research"
)

// DefaultDebounce is used when a Watcher is built with a non-positive delay.
const DefaultDebounce = 1500 * time.Millisecond

// Runner is the part of research.Plugin the watcher drives.
type Runner interface {
	Researched(ctx context.Context, path string, n *noteparse.Note, kind classify.Classification) (bool, error)
	Run(ctx context.Context, path string, opts research.RunOptions) (*research.Result, error)
}

// Watcher turns file events under a vault into research runs.
type Watcher struct {
	root     string
	debounce time.Duration
	runner   Runner
	log      *zap.Logger
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}
	once    sync.Once
}

// New watches root and every non-hidden directory below it.
func New(root string, debounce time.Duration, runner Runner, log *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:     filepath.Clean(root),
		debounce: debounce,
		runner:   runner,
		log:      log,
		fsw:      fsw,
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string, 64),
		done:     make(chan struct{}),
	}
	if _, err := w.addTree(w.root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching. Run returns once the event channels close.
func (w *Watcher) Close() error {
	w.stop()
	return w.fsw.Close()
}

// Run processes events until ctx is cancelled or the watcher is closed.
// Notes are researched one at a time, in the order they settle.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	w.log.Info("watching vault", zap.String("root", w.root), zap.Duration("debounce", w.debounce))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		case path := <-w.ready:
			w.process(ctx, path)
		}
	}
}

func (w *Watcher) stop() {
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		for path, t := range w.pending {
			t.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if w.hidden(ev.Name) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// Notes can land in a new directory before it is watched.
			notes, err := w.addTree(ev.Name)
			if err != nil {
				w.log.Warn("watch directory", zap.String("dir", ev.Name), zap.Error(err))
			}
			for _, n := range notes {
				w.schedule(n)
			}
			return
		}
	}

	if !IsNote(ev.Name) || !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	w.schedule(ev.Name)
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) process(ctx context.Context, path string) {
	log := w.log.With(zap.String("note", path))

	n, err := noteparse.ParseFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("note vanished")
		} else {
			log.Warn("parse note", zap.Error(err))
		}
		return
	}

	kind, err := classify.FromFrontmatter(n.Frontmatter)
	if err != nil {
		log.Debug("skip untagged note")
		return
	}

	done, err := w.runner.Researched(ctx, path, n, kind)
	if err != nil {
		log.Warn("check history", zap.Error(err))
		return
	}
	if done {
		log.Debug("skip researched note")
		return
	}

	if _, err := w.runner.Run(ctx, path, research.RunOptions{}); err != nil {
		log.Info("research failed", zap.Error(err))
	}
}

// addTree watches dir and its non-hidden subdirectories and returns the
// notes already inside them.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var notes []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != w.root && w.hidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if IsNote(path) {
			notes = append(notes, path)
		}
		return nil
	})
	return notes, err
}

// hidden reports whether any element of path below the root starts with a
// dot. That covers .obsidian, .trash and the plugin's own state directory.
func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}

// IsNote reports whether path names a markdown note.
func IsNote(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}
