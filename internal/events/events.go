// Package events carries progress from the polling worker to whatever
// presentation layer is attached. The worker publishes plain data; it
// never touches presentation state directly.
package events

import (
	"context"
	"sync"
)

type ProgressEvent struct {
	ResearchID string `json:"research_id"`
	Seq        int64  `json:"seq"`
	Type       string `json:"type"`
	Ts         string `json:"ts"`
	Text       string `json:"text"`
}

const (
	TypeStatus    = "status"
	TypeReasoning = "reasoning"
	TypeCitation  = "citation"
	TypeResult    = "result"
	TypeError     = "error"
)

type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan ProgressEvent]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: map[string]map[chan ProgressEvent]struct{}{},
	}
}

func (b *Broker) Subscribe(ctx context.Context, researchID string) <-chan ProgressEvent {
	ch := make(chan ProgressEvent, 16)

	b.mu.Lock()
	if b.subscribers[researchID] == nil {
		b.subscribers[researchID] = map[chan ProgressEvent]struct{}{}
	}
	b.subscribers[researchID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if b.subscribers[researchID] != nil {
			delete(b.subscribers[researchID], ch)
			if len(b.subscribers[researchID]) == 0 {
				delete(b.subscribers, researchID)
			}
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish never blocks; a slow subscriber drops events rather than stalling
// the polling worker.
func (b *Broker) Publish(event ProgressEvent) {
	b.mu.RLock()
	subscribers := b.subscribers[event.ResearchID]
	chans := make([]chan ProgressEvent, 0, len(subscribers))
	for ch := range subscribers {
		chans = append(chans, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chans {
		select {
		case ch <- event:
		default:
		}
	}
}
