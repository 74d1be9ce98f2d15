package api

import "sync"

// Event is one solve pipeline notification fanned out to watchers of that
// solve id.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Broker is the in-process event fanout used when no Redis is configured.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // solveId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(solveID string) chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	if b.subs[solveID] == nil {
		b.subs[solveID] = map[chan Event]struct{}{}
	}
	b.subs[solveID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(solveID string, ch chan Event) {
	b.mu.Lock()
	if m := b.subs[solveID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, solveID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

// Publish delivers evt to every subscriber of solveID. Slow subscribers drop
// events rather than blocking the pipeline.
func (b *Broker) Publish(solveID string, evt Event) {
	b.mu.Lock()
	for ch := range b.subs[solveID] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
