package inventory

import (
	"sync"
)

// ChangeNote describes a committed mutation on an event's inventory.
type ChangeNote struct {
	EventID   uint   `json:"event_id"`
	ReleaseID uint   `json:"release_id,omitempty"`
	SaleID    uint   `json:"sale_id,omitempty"`
	Kind      string `json:"kind"`
}

// Bus is the in-process change feed. Subscribers are only notified after
// the mutating transaction has committed, never before.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[uint]map[int]chan ChangeNote
}

var bus *Bus

func GetBus() *Bus {
	if bus != nil {
		return bus
	}
	bus = &Bus{subs: make(map[uint]map[int]chan ChangeNote)}
	return bus
}

func NewBus(b *Bus) *Bus {
	bus = b
	return bus
}

// Subscribe registers for change notes on one event. The returned cancel
// func unregisters and closes the channel.
func (b *Bus) Subscribe(eventId uint) (<-chan ChangeNote, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[eventId] == nil {
		b.subs[eventId] = make(map[int]chan ChangeNote)
	}
	id := b.next
	b.next++
	ch := make(chan ChangeNote, 16)
	b.subs[eventId][id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[eventId][id]; ok {
			delete(b.subs[eventId], id)
			close(sub)
		}
	}
	return ch, cancel
}

// Notify fans a note out to the event's subscribers. Slow subscribers are
// skipped rather than blocking the mutation path.
func (b *Bus) Notify(note ChangeNote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[note.EventID] {
		select {
		case ch <- note:
		default:
		}
	}
}
