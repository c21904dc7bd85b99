package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/atikulmunna/vislog/internal/metrics"
	"github.com/atikulmunna/vislog/internal/model"
)

// DefaultFileName is the name of the persisted state entry.
const DefaultFileName = "egain-visitor-logs.json"

// ErrCorruptState is returned when the persisted state cannot be decoded.
// The file has to be cleared before the store can be opened again.
var ErrCorruptState = errors.New("stored state is unreadable; run `vislog clear` to reset it")

// Listener is notified after every committed mutation.
type Listener func(model.Event)

// Store owns the imported log entries, the active filters and the derived
// filtered view. Every mutation is persisted before it returns.
type Store struct {
	mu       sync.RWMutex
	path     string // empty for an in-memory store
	state    model.State
	listener Listener
}

// Open loads the state at path, or starts empty if the file does not exist.
// An empty path gives a store that is never written to disk.
func Open(path string) (*Store, error) {
	s := &Store{path: path, state: emptyState()}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read state: %w", err)
	}

	if err := json.Unmarshal(raw, &s.state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if s.state.Logs == nil {
		s.state.Logs = []model.LogEntry{}
	}
	if s.state.FilteredLogs == nil {
		s.state.FilteredLogs = []model.LogEntry{}
	}
	metrics.StoreEntries.Set(float64(len(s.state.Logs)))
	return s, nil
}

// Reset overwrites the state at path with an empty state without reading it.
func Reset(path string) error {
	return writeAtomic(path, emptyState())
}

// OnChange registers the listener for mutation events.
func (s *Store) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string { return s.path }

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() model.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyState(s.state)
}

// SetLogs replaces all entries. The filtered view is reset to the full set.
func (s *Store) SetLogs(logs []model.LogEntry) (model.State, error) {
	return s.mutate(model.EventSet, func(st *model.State) bool {
		st.Logs = cloneEntries(logs)
		st.FilteredLogs = cloneEntries(logs)
		return true
	})
}

// AppendLogs adds entries after the existing ones and re-applies the filters.
func (s *Store) AppendLogs(logs []model.LogEntry) (model.State, error) {
	return s.mutate(model.EventAppend, func(st *model.State) bool {
		st.Logs = append(st.Logs, logs...)
		st.FilteredLogs = Apply(st.Logs, st.Filters)
		return true
	})
}

// UpdateLog replaces the first entry with the same IP, timestamp and page as
// old. It reports false and changes nothing when no entry matches.
func (s *Store) UpdateLog(old, updated model.LogEntry) (model.State, bool, error) {
	found := false
	st, err := s.mutate(model.EventUpdate, func(st *model.State) bool {
		for i, e := range st.Logs {
			if e.IP == old.IP && e.Timestamp == old.Timestamp && e.PageURL == old.PageURL {
				st.Logs[i] = updated
				st.FilteredLogs = Apply(st.Logs, st.Filters)
				found = true
				return true
			}
		}
		return false
	})
	return st, found, err
}

// UpdateAt replaces the entry at index of the full list. It reports false
// and changes nothing when index is out of range.
func (s *Store) UpdateAt(index int, updated model.LogEntry) (model.State, bool, error) {
	found := false
	st, err := s.mutate(model.EventUpdate, func(st *model.State) bool {
		if index < 0 || index >= len(st.Logs) {
			return false
		}
		st.Logs[index] = updated
		st.FilteredLogs = Apply(st.Logs, st.Filters)
		found = true
		return true
	})
	return st, found, err
}

// DeleteLogs removes the entries at the given indices of the full list.
// Out-of-range and repeated indices are ignored.
func (s *Store) DeleteLogs(indices []int) (model.State, error) {
	return s.mutate(model.EventDelete, func(st *model.State) bool {
		drop := make(map[int]struct{}, len(indices))
		for _, i := range indices {
			if i >= 0 && i < len(st.Logs) {
				drop[i] = struct{}{}
			}
		}
		if len(drop) == 0 {
			return false
		}
		kept := make([]model.LogEntry, 0, len(st.Logs)-len(drop))
		for i, e := range st.Logs {
			if _, ok := drop[i]; !ok {
				kept = append(kept, e)
			}
		}
		st.Logs = kept
		st.FilteredLogs = Apply(st.Logs, st.Filters)
		return true
	})
}

// FilterLogs stores f and recomputes the filtered view.
func (s *Store) FilterLogs(f model.LogFilters) (model.State, error) {
	return s.mutate(model.EventFilter, func(st *model.State) bool {
		st.Filters = f
		st.FilteredLogs = Apply(st.Logs, f)
		return true
	})
}

// ResetFilters clears every filter.
func (s *Store) ResetFilters() (model.State, error) {
	return s.mutate(model.EventReset, func(st *model.State) bool {
		st.Filters = model.LogFilters{}
		st.FilteredLogs = cloneEntries(st.Logs)
		return true
	})
}

// ClearDatabase removes all entries and filters.
func (s *Store) ClearDatabase() (model.State, error) {
	return s.mutate(model.EventClear, func(st *model.State) bool {
		*st = emptyState()
		return true
	})
}

// mutate applies fn to a working copy and commits it when fn reports a change.
// The previous state is kept if persisting fails.
func (s *Store) mutate(kind model.EventKind, fn func(*model.State) bool) (model.State, error) {
	s.mu.Lock()
	next := copyState(s.state)
	if !fn(&next) {
		s.mu.Unlock()
		return next, nil
	}
	if s.path != "" {
		if err := writeAtomic(s.path, next); err != nil {
			s.mu.Unlock()
			return copyState(s.state), err
		}
	}
	s.state = next
	listener := s.listener
	ev := model.Event{
		ID:       uuid.NewString(),
		Kind:     kind,
		Total:    len(next.Logs),
		Filtered: len(next.FilteredLogs),
		At:       time.Now().UTC(),
	}
	out := copyState(next)
	s.mu.Unlock()

	metrics.StoreEntries.Set(float64(ev.Total))
	if listener != nil {
		listener(ev)
	}
	return out, nil
}

// writeAtomic writes the state to a temp file first, then renames it into place.
func writeAtomic(path string, st model.State) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, path)
}

func emptyState() model.State {
	return model.State{
		Logs:         []model.LogEntry{},
		FilteredLogs: []model.LogEntry{},
	}
}

func copyState(st model.State) model.State {
	return model.State{
		Logs:         cloneEntries(st.Logs),
		FilteredLogs: cloneEntries(st.FilteredLogs),
		Filters:      st.Filters,
	}
}

func cloneEntries(in []model.LogEntry) []model.LogEntry {
	out := make([]model.LogEntry, len(in))
	copy(out, in)
	return out
}
