package inbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/vislog/internal/importer"
	"github.com/atikulmunna/vislog/internal/store"
	"github.com/atikulmunna/vislog/internal/watcher"
)

const csvBody = "IP,Domain,Page URL\n10.0.0.1,acme.com,/pricing\n10.0.0.2,globex.com,/contact\n"

func waitOutcome(t *testing.T, in *Inbox) Outcome {
	t.Helper()
	select {
	case o := <-in.Outcomes():
		return o
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for inbox outcome")
		return Outcome{}
	}
}

func TestInboxImportsExistingAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte(csvBody), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

	w, err := watcher.New(dir, "", nil)
	require.NoError(t, err)

	st, err := store.Open("")
	require.NoError(t, err)

	in := New(w, importer.New(), st, Config{Append: true, Settle: 50 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	go in.Start(ctx)

	first := waitOutcome(t, in)
	require.NoError(t, first.Err)
	assert.Equal(t, "a.csv", filepath.Base(first.Path))
	assert.Len(t, st.Snapshot().Logs, 2)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.tsv"), []byte("IP\tDomain\n10.0.0.9\tinitech.com\n"), 0o644))

	second := waitOutcome(t, in)
	require.NoError(t, second.Err)
	assert.Equal(t, "b.tsv", filepath.Base(second.Path))

	logs := st.Snapshot().Logs
	require.Len(t, logs, 3)
	assert.Equal(t, "initech.com", logs[2].Domain)

	cancel()
	time.Sleep(100 * time.Millisecond)
}

func TestInboxReportsFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.csv"), []byte("Foo,Bar\n1,2\n"), 0o644))

	w, err := watcher.New(dir, "*.csv", nil)
	require.NoError(t, err)
	st, err := store.Open("")
	require.NoError(t, err)

	in := New(w, importer.New(), st, Config{Settle: 50 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	go in.Start(ctx)

	o := waitOutcome(t, in)
	assert.ErrorIs(t, o.Err, importer.ErrMissingColumns)
	assert.Empty(t, st.Snapshot().Logs)

	cancel()
	time.Sleep(100 * time.Millisecond)
}

func TestPollInterval(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, pollInterval(DefaultSettle))
	assert.Equal(t, time.Millisecond, pollInterval(time.Nanosecond))
	assert.Equal(t, time.Millisecond, pollInterval(time.Millisecond))
}

func TestInboxTinySettle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte(csvBody), 0o644))

	w, err := watcher.New(dir, "", nil)
	require.NoError(t, err)
	st, err := store.Open("")
	require.NoError(t, err)

	in := New(w, importer.New(), st, Config{Settle: time.Nanosecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	go in.Start(ctx)

	o := waitOutcome(t, in)
	require.NoError(t, o.Err)
	assert.Len(t, st.Snapshot().Logs, 2)

	cancel()
	time.Sleep(100 * time.Millisecond)
}

func TestWatcherRejectsInvalidPattern(t *testing.T) {
	_, err := watcher.New(t.TempDir(), "[", nil)
	assert.Error(t, err)
}
