package recommend

import "github.com/fairyhunter13/commerce-core/internal/model"

// History is an immutable aggregation of completed orders used during one
// scoring pass.
type History struct {
	purchases   map[string]map[string]struct{} // user id -> product ids bought
	buyers      map[string]map[string]struct{} // product id -> user ids who bought it
	orderCounts map[string]int                 // product id -> completed order count
	maxOrders   int
}

// BuildHistory aggregates purchase signals from completed orders.
func BuildHistory(orders []model.Order) *History {
	h := &History{
		purchases:   make(map[string]map[string]struct{}),
		buyers:      make(map[string]map[string]struct{}),
		orderCounts: make(map[string]int),
	}
	for _, o := range orders {
		for _, li := range o.Lines {
			userSet, ok := h.purchases[o.UserID]
			if !ok {
				userSet = make(map[string]struct{})
				h.purchases[o.UserID] = userSet
			}
			userSet[li.ProductID] = struct{}{}

			buyerSet, ok := h.buyers[li.ProductID]
			if !ok {
				buyerSet = make(map[string]struct{})
				h.buyers[li.ProductID] = buyerSet
			}
			buyerSet[o.UserID] = struct{}{}

			h.orderCounts[li.ProductID]++
			if h.orderCounts[li.ProductID] > h.maxOrders {
				h.maxOrders = h.orderCounts[li.ProductID]
			}
		}
	}
	return h
}

// Purchases returns the set of product ids the user bought in the window.
func (h *History) Purchases(userID string) map[string]struct{} {
	return h.purchases[userID]
}

// Buyers returns the set of user ids that bought the product in the window.
func (h *History) Buyers(productID string) map[string]struct{} {
	return h.buyers[productID]
}

// OrderCount returns how many completed orders contained the product.
func (h *History) OrderCount(productID string) int {
	return h.orderCounts[productID]
}

// MaxOrderCount returns the highest per-product completed-order count.
func (h *History) MaxOrderCount() int {
	return h.maxOrders
}
