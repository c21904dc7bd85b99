package inbox

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atikulmunna/vislog/internal/importer"
	"github.com/atikulmunna/vislog/internal/metrics"
	"github.com/atikulmunna/vislog/internal/model"
	"github.com/atikulmunna/vislog/internal/watcher"
)

// DefaultSettle is how long a file must stay quiet before it is imported.
const DefaultSettle = 500 * time.Millisecond

const minPoll = time.Millisecond

// Sink receives imported entries.
type Sink interface {
	SetLogs([]model.LogEntry) (model.State, error)
	AppendLogs([]model.LogEntry) (model.State, error)
}

// Outcome reports the result of importing one inbox file.
type Outcome struct {
	Path   string
	Result *importer.Result
	Err    error
}

// Config controls how settled files are applied.
type Config struct {
	Append bool          // append to the store instead of replacing it
	Settle time.Duration // quiet period before a file is imported
}

type stamp struct {
	size    int64
	modTime time.Time
}

// Inbox imports files reported by a Watcher once their writes have settled.
type Inbox struct {
	w    *watcher.Watcher
	im   *importer.Importer
	sink Sink
	cfg  Config
	log  *zap.Logger

	mu      sync.Mutex
	pending map[string]time.Time
	seen    map[string]stamp

	out chan Outcome
}

// New creates an Inbox.
func New(w *watcher.Watcher, im *importer.Importer, sink Sink, cfg Config, log *zap.Logger) *Inbox {
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Inbox{
		w:       w,
		im:      im,
		sink:    sink,
		cfg:     cfg,
		log:     log,
		pending: make(map[string]time.Time),
		seen:    make(map[string]stamp),
		out:     make(chan Outcome, 64),
	}
}

// Outcomes returns the channel where import results are sent. It is closed
// when Start returns.
func (in *Inbox) Outcomes() <-chan Outcome {
	return in.out
}

// Start imports files already in the inbox, then every settled file reported
// by the watcher. Blocks until the context is cancelled.
func (in *Inbox) Start(ctx context.Context) {
	defer close(in.out)

	existing, err := in.w.Existing()
	if err != nil {
		in.log.Warn("cannot list inbox", zap.String("dir", in.w.Dir()), zap.Error(err))
	}
	sort.Strings(existing)
	for _, p := range existing {
		in.process(ctx, p)
	}

	ticker := time.NewTicker(pollInterval(in.cfg.Settle))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in.w.Events:
			if !ok {
				return
			}
			in.mu.Lock()
			in.pending[ev.Path] = time.Now()
			in.mu.Unlock()
		case <-ticker.C:
			for _, p := range in.settled() {
				in.process(ctx, p)
			}
		}
	}
}

// pollInterval is half the settle period, but never below minPoll.
func pollInterval(settle time.Duration) time.Duration {
	if tick := settle / 2; tick > minPoll {
		return tick
	}
	return minPoll
}

// settled returns, in name order, the pending paths quiet for the settle interval.
func (in *Inbox) settled() []string {
	in.mu.Lock()
	defer in.mu.Unlock()

	cutoff := time.Now().Add(-in.cfg.Settle)
	var ready []string
	for p, last := range in.pending {
		if last.Before(cutoff) {
			ready = append(ready, p)
			delete(in.pending, p)
		}
	}
	sort.Strings(ready)
	return ready
}

// process imports one file unless it is unchanged since its last import.
func (in *Inbox) process(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		in.log.Debug("inbox file vanished", zap.String("path", path), zap.Error(err))
		return
	}
	st := stamp{size: info.Size(), modTime: info.ModTime()}

	in.mu.Lock()
	prev, ok := in.seen[path]
	in.seen[path] = st
	in.mu.Unlock()
	if ok && prev == st {
		return
	}

	res, err := in.im.ImportFile(ctx, path)
	if err == nil {
		if in.cfg.Append {
			_, err = in.sink.AppendLogs(res.Entries)
		} else {
			_, err = in.sink.SetLogs(res.Entries)
		}
	}
	if err != nil {
		metrics.InboxFailures.Inc()
		in.log.Warn("inbox import failed", zap.String("path", path), zap.Error(err))
	} else {
		in.log.Info("inbox file imported", zap.String("path", path), zap.Int("entries", len(res.Entries)))
	}

	select {
	case in.out <- Outcome{Path: path, Result: res, Err: err}:
	default:
		in.log.Debug("inbox outcome dropped", zap.String("path", path))
	}
}
