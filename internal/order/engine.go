// Package order drives the order lifecycle state machine and coordinates
// stock reservation with the catalog.
package order

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/commerce-core/internal/catalog"
	"github.com/fairyhunter13/commerce-core/internal/model"
	"github.com/fairyhunter13/commerce-core/internal/obs"
)

// LineInput is the caller-supplied part of a line item. Unit prices are
// never taken from input; they are snapshotted from the catalog.
type LineInput struct {
	ProductID string
	Quantity  int64
}

type orderEntry struct {
	mu sync.Mutex
	o  model.Order
}

// Engine owns every order it creates. Transitions serialize per order;
// stock movement routes through the catalog's atomic adjustment.
type Engine struct {
	mu     sync.RWMutex
	orders map[string]*orderEntry
	store  *catalog.Store
}

// NewEngine constructs an Engine over the given catalog store.
func NewEngine(store *catalog.Store) *Engine {
	return &Engine{orders: make(map[string]*orderEntry), store: store}
}

// Create validates the requested lines, snapshots unit prices from the
// catalog, and produces a draft order. Stock is untouched.
func (e *Engine) Create(userID string, lines []LineInput) (model.Order, error) {
	if userID == "" {
		return model.Order{}, fmt.Errorf("user id is required: %w", model.ErrInvalidInput)
	}
	if len(lines) == 0 {
		return model.Order{}, fmt.Errorf("order needs at least one line item: %w", model.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(lines))
	items := make([]model.LineItem, 0, len(lines))
	total := decimal.Zero
	for _, in := range lines {
		if in.Quantity <= 0 {
			return model.Order{}, fmt.Errorf("quantity for %q must be > 0: %w", in.ProductID, model.ErrInvalidInput)
		}
		if _, dup := seen[in.ProductID]; dup {
			return model.Order{}, fmt.Errorf("duplicate product %q: %w", in.ProductID, model.ErrInvalidInput)
		}
		seen[in.ProductID] = struct{}{}
		p, err := e.store.Get(in.ProductID)
		if err != nil {
			return model.Order{}, err
		}
		items = append(items, model.LineItem{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			UnitPrice: p.Price,
		})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(in.Quantity)))
	}
	now := time.Now().UTC()
	o := model.Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		Lines:      items,
		Status:     model.StatusDraft,
		TotalPrice: total,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	e.mu.Lock()
	e.orders[o.ID] = &orderEntry{o: o}
	e.mu.Unlock()
	obs.Logger.Info("order_created", "order_id", o.ID, "user_id", userID, "lines", len(items))
	return copyOrder(o), nil
}

// Reserve decrements stock for every line item, all or nothing. Lines are
// adjusted in ascending product-id order; on the first insufficient-stock
// failure every adjustment already applied is released again and the order
// transitions to failed. A partial reservation is never left behind.
func (e *Engine) Reserve(orderID string) (model.Order, error) {
	entry, err := e.entry(orderID)
	if err != nil {
		return model.Order{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.o.Status != model.StatusDraft {
		return copyOrder(entry.o), transitionError(entry.o, model.StatusReserved)
	}
	lines := make([]model.LineItem, len(entry.o.Lines))
	copy(lines, entry.o.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	applied := make([]model.LineItem, 0, len(lines))
	for _, li := range lines {
		_, aerr := e.store.AdjustStock(li.ProductID, -li.Quantity, model.ReasonReserve, orderID)
		if aerr == nil {
			applied = append(applied, li)
			continue
		}
		e.rollback(orderID, applied)
		if isInsufficient(aerr) {
			entry.o.Status = model.StatusFailed
			entry.o.FailReason = model.FailInsufficientStock
			entry.o.UpdatedAt = time.Now().UTC()
			obs.Logger.Info("order_failed",
				"order_id", orderID, "reason", entry.o.FailReason, "product_id", li.ProductID)
			return copyOrder(entry.o), fmt.Errorf("reserve order %q: %w", orderID, aerr)
		}
		return copyOrder(entry.o), aerr
	}
	entry.o.Status = model.StatusReserved
	entry.o.UpdatedAt = time.Now().UTC()
	obs.Logger.Info("order_reserved", "order_id", orderID)
	return copyOrder(entry.o), nil
}

// Confirm records a successful payment outcome. No stock moves; stock was
// already decremented at reservation time.
func (e *Engine) Confirm(orderID string) (model.Order, error) {
	return e.transition(orderID, model.StatusReserved, model.StatusConfirmed, nil)
}

// Fail records a payment failure reported by the caller and releases the
// reserved stock.
func (e *Engine) Fail(orderID string) (model.Order, error) {
	return e.transition(orderID, model.StatusReserved, model.StatusFailed, func(o *model.Order) {
		o.FailReason = model.FailPayment
		e.releaseAll(o)
	})
}

// Fulfill marks a confirmed order delivered and appends one commit event
// per line for the audit trail.
func (e *Engine) Fulfill(orderID string) (model.Order, error) {
	return e.transition(orderID, model.StatusConfirmed, model.StatusFulfilled, func(o *model.Order) {
		for _, li := range o.Lines {
			if _, err := e.store.AdjustStock(li.ProductID, 0, model.ReasonCommit, o.ID); err != nil {
				obs.Logger.Error("commit_event_failed", "order_id", o.ID, "product_id", li.ProductID, "error", err)
			}
		}
	})
}

// Cancel is allowed from draft or reserved. From reserved the held stock is
// released first; from draft there is nothing to release. Cancelling an
// already-terminal order is an invalid transition, never a double release.
func (e *Engine) Cancel(orderID string) (model.Order, error) {
	entry, err := e.entry(orderID)
	if err != nil {
		return model.Order{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	switch entry.o.Status {
	case model.StatusReserved:
		e.releaseAll(&entry.o)
	case model.StatusDraft:
	default:
		return copyOrder(entry.o), transitionError(entry.o, model.StatusCancelled)
	}
	entry.o.Status = model.StatusCancelled
	entry.o.UpdatedAt = time.Now().UTC()
	obs.Logger.Info("order_cancelled", "order_id", orderID)
	return copyOrder(entry.o), nil
}

// Get returns a copy of the order with the given id.
func (e *Engine) Get(orderID string) (model.Order, error) {
	entry, err := e.entry(orderID)
	if err != nil {
		return model.Order{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return copyOrder(entry.o), nil
}

// ListByUser returns copies of the user's orders, oldest first.
func (e *Engine) ListByUser(userID string) []model.Order {
	out := e.collect(func(o model.Order) bool { return o.UserID == userID })
	return out
}

// CompletedSince returns orders whose payment has succeeded (confirmed or
// fulfilled) and that were last updated at or after t. The recommendation
// engine consumes this as its read-only purchase history.
func (e *Engine) CompletedSince(t time.Time) []model.Order {
	return e.collect(func(o model.Order) bool {
		if o.Status != model.StatusConfirmed && o.Status != model.StatusFulfilled {
			return false
		}
		return !o.UpdatedAt.Before(t)
	})
}

func (e *Engine) transition(orderID string, from, to model.OrderStatus, action func(*model.Order)) (model.Order, error) {
	entry, err := e.entry(orderID)
	if err != nil {
		return model.Order{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.o.Status != from {
		return copyOrder(entry.o), transitionError(entry.o, to)
	}
	if action != nil {
		action(&entry.o)
	}
	entry.o.Status = to
	entry.o.UpdatedAt = time.Now().UTC()
	obs.Logger.Info("order_transition", "order_id", orderID, "from", from, "to", to)
	return copyOrder(entry.o), nil
}

// rollback releases already-applied reservations in reverse order.
func (e *Engine) rollback(orderID string, applied []model.LineItem) {
	for i := len(applied) - 1; i >= 0; i-- {
		li := applied[i]
		if _, err := e.store.AdjustStock(li.ProductID, li.Quantity, model.ReasonRelease, orderID); err != nil {
			obs.Logger.Error("rollback_failed", "order_id", orderID, "product_id", li.ProductID, "error", err)
		}
	}
}

func (e *Engine) releaseAll(o *model.Order) {
	for _, li := range o.Lines {
		if _, err := e.store.AdjustStock(li.ProductID, li.Quantity, model.ReasonRelease, o.ID); err != nil {
			obs.Logger.Error("release_failed", "order_id", o.ID, "product_id", li.ProductID, "error", err)
		}
	}
}

func (e *Engine) entry(orderID string) (*orderEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %q: %w", orderID, model.ErrNotFound)
	}
	return entry, nil
}

func (e *Engine) collect(keep func(model.Order) bool) []model.Order {
	e.mu.RLock()
	entries := make([]*orderEntry, 0, len(e.orders))
	for _, entry := range e.orders {
		entries = append(entries, entry)
	}
	e.mu.RUnlock()
	var out []model.Order
	for _, entry := range entries {
		entry.mu.Lock()
		o := copyOrder(entry.o)
		entry.mu.Unlock()
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func transitionError(o model.Order, to model.OrderStatus) error {
	return fmt.Errorf("order %q is %s, cannot become %s: %w", o.ID, o.Status, to, model.ErrInvalidTransition)
}

func isInsufficient(err error) bool {
	return errors.Is(err, model.ErrInsufficientStock)
}
