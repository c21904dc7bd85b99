package cmd

import (
	"context"
	"fmt"

	"github.com/atikulmunna/vislog/internal/aggregator"
	"github.com/atikulmunna/vislog/internal/hub"
	"github.com/atikulmunna/vislog/internal/inbox"
	"github.com/atikulmunna/vislog/internal/importer"
	"github.com/atikulmunna/vislog/internal/store"
	"github.com/atikulmunna/vislog/internal/watcher"
)

// pipeline wires the store to the event hub and the stats aggregator.
type pipeline struct {
	store    *store.Store
	importer *importer.Importer
	hub      *hub.Hub
	agg      *aggregator.Aggregator
}

// startPipeline opens the store and starts the hub and aggregator. They run
// until ctx is cancelled.
func startPipeline(ctx context.Context) (*pipeline, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}

	h := hub.New(log)
	st.OnChange(h.Publish)
	agg := aggregator.New(st, h.Subscribe(), cfg.Stats.TopN)

	go h.Start(ctx)
	go agg.Start(ctx)

	return &pipeline{store: st, importer: newImporter(), hub: h, agg: agg}, nil
}

// newInbox watches dir and imports settled files into the pipeline's store.
func (p *pipeline) newInbox(dir, pattern string, appendMode bool) (*watcher.Watcher, *inbox.Inbox, error) {
	w, err := watcher.New(dir, pattern, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	in := inbox.New(w, p.importer, p.store, inbox.Config{
		Append: appendMode,
		Settle: cfg.Inbox.Settle,
	}, log)
	return w, in, nil
}
