package order

import "github.com/fairyhunter13/commerce-core/internal/model"

// copyOrder returns a defensive copy so callers never alias engine state.
func copyOrder(o model.Order) model.Order {
	lines := make([]model.LineItem, len(o.Lines))
	copy(lines, o.Lines)
	o.Lines = lines
	return o
}
