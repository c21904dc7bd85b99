package watcher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultPattern matches every importable file name.
const DefaultPattern = "*.{xlsx,xls,csv,tsv,txt}"

// Event represents a change to a matching file in the inbox directory.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher monitors an inbox directory for files matching a pattern.
type Watcher struct {
	fsw     *fsnotify.Watcher
	log     *zap.Logger
	Events  chan Event
	dir     string
	pattern string
}

// New creates a Watcher on dir. Only files whose base name matches the
// doublestar pattern are reported.
func New(dir, pattern string, log *zap.Logger) (*Watcher, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid inbox pattern %q", pattern)
	}
	if log == nil {
		log = zap.NewNop()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(abs); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("cannot watch %s: %w", abs, err)
	}

	return &Watcher{
		fsw:     fsw,
		log:     log,
		Events:  make(chan Event, 256),
		dir:     abs,
		pattern: pattern,
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Matches reports whether path's base name matches the watcher pattern.
func (w *Watcher) Matches(path string) bool {
	ok, err := doublestar.Match(w.pattern, filepath.Base(path))
	return err == nil && ok
}

// Existing returns the matching files already present in the directory.
func (w *Watcher) Existing() ([]string, error) {
	return doublestar.FilepathGlob(
		filepath.Join(w.dir, w.pattern),
		doublestar.WithFilesOnly(),
		doublestar.WithFailOnIOErrors(),
	)
}

// Start begins listening for file events. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.Events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.Matches(ev.Name) {
				continue
			}
			select {
			case w.Events <- Event{Path: ev.Name, Op: ev.Op}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}
