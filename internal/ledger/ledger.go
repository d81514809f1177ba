// Package ledger implements the append-only inventory event log and its
// background reconciler.
package ledger

import (
	"sync"
	"time"

	"github.com/fairyhunter13/commerce-core/internal/model"
)

// Ledger records every stock-affecting event. Records are append-only:
// nothing mutates or deletes an event once stored.
type Ledger struct {
	mu     sync.RWMutex
	events []model.InventoryEvent
	seq    Sequencer
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append assigns the next event id, stamps the event time if unset, and
// stores the record. It returns the stored event.
func (l *Ledger) Append(ev model.InventoryEvent) model.InventoryEvent {
	ev.ID = l.seq.Next()
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	return ev
}

// Events returns a copy of all events in append order.
func (l *Ledger) Events() []model.InventoryEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.InventoryEvent, len(l.events))
	copy(out, l.events)
	return out
}

// EventsForProduct returns all events for one product in append order.
func (l *Ledger) EventsForProduct(productID string) []model.InventoryEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.InventoryEvent
	for _, ev := range l.events {
		if ev.ProductID == productID {
			out = append(out, ev)
		}
	}
	return out
}

// EventsForOrder returns all events recorded on behalf of one order.
func (l *Ledger) EventsForOrder(orderID string) []model.InventoryEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.InventoryEvent
	for _, ev := range l.events {
		if ev.OrderID == orderID {
			out = append(out, ev)
		}
	}
	return out
}

// DeltaSum returns the sum of deltas recorded for a product. For a
// consistent store this equals current stock minus the seed quantity.
func (l *Ledger) DeltaSum(productID string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var sum int64
	for _, ev := range l.events {
		if ev.ProductID == productID {
			sum += ev.Delta
		}
	}
	return sum
}

// Len returns the number of recorded events.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
