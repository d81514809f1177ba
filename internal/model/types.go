// Package model defines domain types used by the commerce core.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies a product. The set is open; the facade checks
// incoming filter values against the categories currently in the catalog.
type Category string

// Product represents a catalog entry with its current stock level.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Category      Category        `json:"category"`
	Tags          []string        `json:"tags"`
	StockQuantity int64           `json:"stock_quantity"`
}

// TagSet returns the product's tags plus its category as a set.
// Content similarity is computed over this set.
func (p Product) TagSet() map[string]struct{} {
	s := make(map[string]struct{}, len(p.Tags)+1)
	for _, t := range p.Tags {
		s[t] = struct{}{}
	}
	if p.Category != "" {
		s[string(p.Category)] = struct{}{}
	}
	return s
}

// EventReason explains why a stock-affecting event was recorded.
type EventReason string

const (
	ReasonReserve EventReason = "reserve"
	ReasonRelease EventReason = "release"
	ReasonCommit  EventReason = "commit"
	ReasonRestock EventReason = "restock"
)

// ValidReason reports whether r is a recognized event reason.
func ValidReason(r EventReason) bool {
	switch r {
	case ReasonReserve, ReasonRelease, ReasonCommit, ReasonRestock:
		return true
	}
	return false
}

// InventoryEvent is one append-only record of a stock-affecting operation.
// Events are never mutated or deleted; for every product the sum of deltas
// equals its current stock minus its seed quantity.
type InventoryEvent struct {
	ID        uint64      `json:"id"`
	ProductID string      `json:"product_id"`
	Delta     int64       `json:"delta"`
	Reason    EventReason `json:"reason"`
	OrderID   string      `json:"order_id,omitempty"`
	At        time.Time   `json:"at"`
}

// OrderStatus is a state in the order lifecycle.
type OrderStatus string

const (
	StatusDraft     OrderStatus = "draft"
	StatusReserved  OrderStatus = "reserved"
	StatusConfirmed OrderStatus = "confirmed"
	StatusFulfilled OrderStatus = "fulfilled"
	StatusCancelled OrderStatus = "cancelled"
	StatusFailed    OrderStatus = "failed"
)

// Terminal reports whether no further transition is permitted from s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFulfilled, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// FailReason explains why an order reached the failed state.
type FailReason string

const (
	FailInsufficientStock FailReason = "insufficient_stock"
	FailPayment           FailReason = "payment_failed"
)

// LineItem is one product/quantity pair within an order. UnitPrice is
// snapshotted from the catalog at creation time; later price changes never
// retroactively affect the order.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Order is owned by the lifecycle engine once created. UserID is a
// reference supplied by the auth collaborator, not an ownership relation.
type Order struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Lines      []LineItem      `json:"line_items"`
	Status     OrderStatus     `json:"status"`
	FailReason FailReason      `json:"fail_reason,omitempty"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// RecommendationRequest is an ephemeral query; it is never persisted.
type RecommendationRequest struct {
	UserID           string
	ContextProductID string
	Limit            int
	IncludePurchased bool
}
