// Package watch implements a filesystem watcher that turns raw fsnotify
// events into debounced, gitignore-filtered batches suitable for driving
// incremental re-indexing of a registered tree.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/eidetic-labs/eideticmcp/internal/gitignore"
)

// Operation classifies a filesystem change.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Event is one coalesced filesystem change, relative to the watched root.
type Event struct {
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Watcher watches a directory tree recursively, emitting debounced
// batches of events until Stop is called or the context is cancelled.
type Watcher interface {
	Start(ctx context.Context, path string) error
	Stop() error
	Events() <-chan []Event
	Errors() <-chan error
}

// Options configures a Watcher.
type Options struct {
	DebounceWindow  time.Duration
	EventBufferSize int
	IgnorePatterns  []string
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		EventBufferSize: 1000,
	}
}

// WithDefaults fills zero-value fields with DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = d.DebounceWindow
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = d.EventBufferSize
	}
	return o
}

// FSWatcher implements Watcher on top of fsnotify, filtering paths through
// the tree's root .gitignore, Options.IgnorePatterns and a built-in .git
// exclusion. The scanner's default ignore globs, nested .gitignore files
// and extension allow-list are not applied, so changes to files the
// scanner skips still produce events.
type FSWatcher struct {
	fsw       *fsnotify.Watcher
	debouncer *debouncer
	gitignore *gitignore.Matcher
	events    chan []Event
	errors    chan error
	stopCh    chan struct{}
	rootPath  string
	opts      Options
	mu        sync.RWMutex
	stopped   bool
}

// NewFSWatcher constructs an FSWatcher. The underlying fsnotify watcher
// is opened lazily in Start.
func NewFSWatcher(opts Options) *FSWatcher {
	opts = opts.WithDefaults()
	return &FSWatcher{
		debouncer: newDebouncer(opts.DebounceWindow),
		gitignore: gitignore.New(),
		events:    make(chan []Event, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}
}

// Start begins watching path recursively.
func (w *FSWatcher) Start(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.rootPath = abs

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	w.loadGitignore()

	if err := w.addRecursive(w.rootPath); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	go w.forwardDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *FSWatcher) handleEvent(ev fsnotify.Event) {
	relPath, err := filepath.Rel(w.rootPath, ev.Name)
	if err != nil {
		relPath = ev.Name
	}

	isDir := false
	if info, err := os.Stat(ev.Name); err == nil {
		isDir = info.IsDir()
	}

	if w.shouldIgnore(relPath, isDir) {
		return
	}

	if filepath.Base(ev.Name) == ".gitignore" {
		w.loadGitignore()
	}

	var op Operation
	switch {
	case ev.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			_ = w.fsw.Add(ev.Name)
		}
	case ev.Op&fsnotify.Write != 0:
		op = OpModify
	case ev.Op&fsnotify.Remove != 0:
		op = OpDelete
	case ev.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	w.debouncer.add(Event{Path: relPath, Operation: op, IsDir: isDir, Timestamp: time.Now()})
}

func (w *FSWatcher) forwardDebounced(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.debouncer.output():
			if !ok {
				return
			}
			if len(batch) == 0 {
				continue
			}
			w.emitEvents(batch)
		}
	}
}

func (w *FSWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		relPath, _ := filepath.Rel(w.rootPath, path)
		if relPath == "." {
			return w.fsw.Add(path)
		}
		if w.shouldIgnoreDir(relPath) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *FSWatcher) shouldIgnoreDir(relPath string) bool {
	if strings.HasPrefix(relPath, ".git") || relPath == ".git" {
		return true
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.gitignore.Match(relPath, true)
}

func (w *FSWatcher) shouldIgnore(relPath string, isDir bool) bool {
	if relPath == "." || relPath == "" {
		return true
	}
	if strings.HasPrefix(relPath, ".git/") || relPath == ".git" {
		return true
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.gitignore.Match(relPath, isDir)
}

func (w *FSWatcher) loadGitignore() {
	w.mu.Lock()
	defer w.mu.Unlock()

	m := gitignore.New()
	for _, p := range w.opts.IgnorePatterns {
		m.AddPattern(p)
	}
	gitignorePath := filepath.Join(w.rootPath, ".gitignore")
	if err := m.AddFromFile(gitignorePath, ""); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .gitignore", slog.String("path", gitignorePath), slog.String("error", err.Error()))
	}
	w.gitignore = m
}

func (w *FSWatcher) emitEvents(batch []Event) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}
	select {
	case w.events <- batch:
	default:
		slog.Warn("watch event buffer full, dropping batch", slog.Int("batch_size", len(batch)))
	}
}

func (w *FSWatcher) emitError(err error) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher. Safe to call multiple times.
func (w *FSWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.stop()
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of debounced event batches.
func (w *FSWatcher) Events() <-chan []Event { return w.events }

// Errors returns the channel of non-fatal watcher errors.
func (w *FSWatcher) Errors() <-chan error { return w.errors }
