package hub

import (
	"context"
	"testing"

	"github.com/atikulmunna/vislog/internal/model"
)

// BenchmarkHubBroadcast measures fan-out to several draining subscribers.
func BenchmarkHubBroadcast(b *testing.B) {
	h := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 4; i++ {
		sub := h.Subscribe()
		go func() {
			for range sub {
			}
		}()
	}
	go h.Start(ctx)

	ev := model.Event{Kind: model.EventSet, Total: 1000}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h.broadcast(ev)
	}
}
