package bus

import (
	"context"
	"sync"

	"github.com/yungbote/neurobridge-mastery/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	StartForwarder(ctx context.Context, onMsg func(ev realtime.Event)) error
	Close() error
}

// memoryBus fans events out in-process. It backs single-node deployments and
// tests when no redis address is configured.
type memoryBus struct {
	mu   sync.RWMutex
	subs []func(realtime.Event)
}

func NewMemoryBus() Bus {
	return &memoryBus{}
}

func (b *memoryBus) Publish(_ context.Context, ev realtime.Event) error {
	b.mu.RLock()
	subs := append([]func(realtime.Event){}, b.subs...)
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onMsg func(ev realtime.Event)) error {
	if onMsg == nil {
		return nil
	}
	b.mu.Lock()
	idx := len(b.subs)
	b.subs = append(b.subs, onMsg)
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if idx < len(b.subs) {
			b.subs[idx] = func(realtime.Event) {}
		}
		b.mu.Unlock()
	}()
	return nil
}

func (b *memoryBus) Close() error { return nil }
