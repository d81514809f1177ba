// Package catalog implements the product store. All stock mutation routes
// through AdjustStock; nothing else writes stock quantities.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fairyhunter13/commerce-core/internal/ledger"
	"github.com/fairyhunter13/commerce-core/internal/model"
)

type productEntry struct {
	mu      sync.Mutex
	p       model.Product
	initial int64
}

// Store holds product records keyed by id. The outer RWMutex guards the map
// itself; each entry carries its own mutex so stock adjustments on distinct
// products never contend.
type Store struct {
	mu  sync.RWMutex
	m   map[string]*productEntry
	led *ledger.Ledger
}

// New creates an empty Store appending its inventory events to led.
func New(led *ledger.Ledger) *Store {
	return &Store{m: make(map[string]*productEntry), led: led}
}

// Put seeds a product or replaces the definition of an existing one.
// For an existing product the stock quantity is left untouched: stock
// changes go through AdjustStock only.
func (s *Store) Put(p model.Product) error {
	if p.ID == "" {
		return fmt.Errorf("product id is required: %w", model.ErrInvalidInput)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("price must be >= 0: %w", model.ErrInvalidInput)
	}
	if p.StockQuantity < 0 {
		return fmt.Errorf("stock must be >= 0: %w", model.ErrInvalidInput)
	}
	p.Tags = cloneTags(p.Tags)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[p.ID]; ok {
		e.mu.Lock()
		p.StockQuantity = e.p.StockQuantity
		e.p = p
		e.mu.Unlock()
		return nil
	}
	s.m[p.ID] = &productEntry{p: p, initial: p.StockQuantity}
	return nil
}

// Get returns a copy of the product with the given id.
func (s *Store) Get(id string) (model.Product, error) {
	e, ok := s.entry(id)
	if !ok {
		return model.Product{}, fmt.Errorf("product %q: %w", id, model.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyProduct(e.p), nil
}

// AdjustStock atomically applies delta to a product's stock and appends
// exactly one inventory event. It fails with ErrInsufficientStock, and
// records nothing, when the adjustment would drive stock negative. The
// commit reason is bookkeeping only and must carry a zero delta.
func (s *Store) AdjustStock(productID string, delta int64, reason model.EventReason, orderID string) (int64, error) {
	if !model.ValidReason(reason) {
		return 0, fmt.Errorf("unknown reason %q: %w", reason, model.ErrInvalidInput)
	}
	if reason == model.ReasonCommit {
		if delta != 0 {
			return 0, fmt.Errorf("commit events carry no delta: %w", model.ErrInvalidInput)
		}
	} else if delta == 0 {
		return 0, fmt.Errorf("zero delta: %w", model.ErrInvalidInput)
	}
	e, ok := s.entry(productID)
	if !ok {
		return 0, fmt.Errorf("product %q: %w", productID, model.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.p.StockQuantity + delta
	if next < 0 {
		return e.p.StockQuantity, fmt.Errorf("product %q has %d, need %d: %w",
			productID, e.p.StockQuantity, -delta, model.ErrInsufficientStock)
	}
	e.p.StockQuantity = next
	// Appended under the entry lock so the event order matches the
	// order adjustments were applied in.
	s.led.Append(model.InventoryEvent{
		ProductID: productID,
		Delta:     delta,
		Reason:    reason,
		OrderID:   orderID,
	})
	return next, nil
}

// Filter selects products by conjunctive predicates. Zero values match
// everything.
type Filter struct {
	Category model.Category
	Tag      string
	Text     string
}

func (f Filter) matches(p model.Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range p.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	return true
}

// List returns copies of products matching the filter, ordered by id.
// Re-listing reflects the current state, not a frozen snapshot.
func (s *Store) List(f Filter) []model.Product {
	out := s.collect(func(p model.Product) bool { return f.matches(p) })
	return out
}

// Snapshot returns copies of every product, ordered by id.
func (s *Store) Snapshot() []model.Product {
	return s.collect(func(model.Product) bool { return true })
}

// InitialQuantity returns the seed quantity recorded when the product was
// first put into the store.
func (s *Store) InitialQuantity(id string) (int64, bool) {
	e, ok := s.entry(id)
	if !ok {
		return 0, false
	}
	return e.initial, true
}

// KnownCategory reports whether any product currently carries the category.
func (s *Store) KnownCategory(c model.Category) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.m {
		e.mu.Lock()
		match := e.p.Category == c
		e.mu.Unlock()
		if match {
			return true
		}
	}
	return false
}

func (s *Store) entry(id string) (*productEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.m[id]
	return e, ok
}

func (s *Store) collect(keep func(model.Product) bool) []model.Product {
	s.mu.RLock()
	entries := make([]*productEntry, 0, len(s.m))
	for _, e := range s.m {
		entries = append(entries, e)
	}
	s.mu.RUnlock()
	out := make([]model.Product, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		p := copyProduct(e.p)
		e.mu.Unlock()
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyProduct(p model.Product) model.Product {
	p.Tags = cloneTags(p.Tags)
	return p
}

func cloneTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
