package engine

import "sync"

// Bus is the publish/subscribe seam behind the broadcast hub. Rooms publish
// every broadcast frame to it in addition to their local fan-out, so a
// distributed backend can mirror session streams to other processes without
// touching the state machine or the registry. Subscribers must not block.
type Bus interface {
	Publish(sessionID uint, data []byte)
	Subscribe(sessionID uint, fn func(data []byte)) (unsubscribe func())
}

// MemoryBus is the in-process Bus implementation.
type MemoryBus struct {
	mu   sync.RWMutex
	next int
	subs map[uint]map[int]func(data []byte)
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[uint]map[int]func(data []byte))}
}

func (b *MemoryBus) Publish(sessionID uint, data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.subs[sessionID] {
		fn(data)
	}
}

func (b *MemoryBus) Subscribe(sessionID uint, fn func(data []byte)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[int]func(data []byte))
	}
	b.subs[sessionID][id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[sessionID], id)
		if len(b.subs[sessionID]) == 0 {
			delete(b.subs, sessionID)
		}
	}
}
