// Package facade is the single entry point external callers use. It
// validates input, delegates to the engines, and converts internal failures
// into a stable error envelope. It holds no state and never partially
// applies an operation.
package facade

import (
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/commerce-core/internal/catalog"
	"github.com/fairyhunter13/commerce-core/internal/config"
	"github.com/fairyhunter13/commerce-core/internal/ledger"
	"github.com/fairyhunter13/commerce-core/internal/model"
	"github.com/fairyhunter13/commerce-core/internal/order"
	"github.com/fairyhunter13/commerce-core/internal/recommend"
)

// Facade composes the catalog, ledger, order, and recommendation engines.
type Facade struct {
	cfg      config.Config
	store    *catalog.Store
	led      *ledger.Ledger
	orders   *order.Engine
	rec      *recommend.Engine
	validate *validator.Validate
}

// New constructs a Facade over the given components.
func New(cfg config.Config, store *catalog.Store, led *ledger.Ledger, orders *order.Engine, rec *recommend.Engine) *Facade {
	return &Facade{
		cfg:      cfg,
		store:    store,
		led:      led,
		orders:   orders,
		rec:      rec,
		validate: validator.New(),
	}
}

// OrderLine is one requested product/quantity pair.
type OrderLine struct {
	ProductID string `validate:"required"`
	Quantity  int64  `validate:"gt=0"`
}

// CreateOrderRequest creates a draft order for the authenticated user. The
// user id comes from the auth collaborator and is trusted as-is.
type CreateOrderRequest struct {
	UserID string      `validate:"required"`
	Items  []OrderLine `validate:"required,min=1,dive"`
}

// ProductFilterRequest narrows a product listing. Empty fields match all.
type ProductFilterRequest struct {
	Category string
	Tag      string
	Text     string
}

// RecommendRequest asks for ranked suggestions. Limit zero selects the
// configured default.
type RecommendRequest struct {
	UserID           string `validate:"required"`
	ContextProductID string
	Limit            int `validate:"gte=0"`
	IncludePurchased bool
}

// CreateOrder validates the request and produces a draft order.
func (f *Facade) CreateOrder(req CreateOrderRequest) (model.Order, error) {
	if err := f.validate.Struct(req); err != nil {
		return model.Order{}, invalid(err.Error())
	}
	lines := make([]order.LineInput, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, order.LineInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	o, err := f.orders.Create(req.UserID, lines)
	return o, wrap(err)
}

// ReserveOrder atomically reserves stock for every line of the order.
func (f *Facade) ReserveOrder(orderID string) (model.Order, error) {
	if orderID == "" {
		return model.Order{}, invalid("order id is required")
	}
	o, err := f.orders.Reserve(orderID)
	return o, wrap(err)
}

// ConfirmOrder records a successful payment outcome from the payment
// collaborator.
func (f *Facade) ConfirmOrder(orderID string) (model.Order, error) {
	if orderID == "" {
		return model.Order{}, invalid("order id is required")
	}
	o, err := f.orders.Confirm(orderID)
	return o, wrap(err)
}

// FailOrder records a payment failure and releases the reserved stock.
func (f *Facade) FailOrder(orderID string) (model.Order, error) {
	if orderID == "" {
		return model.Order{}, invalid("order id is required")
	}
	o, err := f.orders.Fail(orderID)
	return o, wrap(err)
}

// FulfillOrder marks a confirmed order delivered.
func (f *Facade) FulfillOrder(orderID string) (model.Order, error) {
	if orderID == "" {
		return model.Order{}, invalid("order id is required")
	}
	o, err := f.orders.Fulfill(orderID)
	return o, wrap(err)
}

// CancelOrder cancels a draft or reserved order.
func (f *Facade) CancelOrder(orderID string) (model.Order, error) {
	if orderID == "" {
		return model.Order{}, invalid("order id is required")
	}
	o, err := f.orders.Cancel(orderID)
	return o, wrap(err)
}

// GetOrder returns the order with the given id.
func (f *Facade) GetOrder(orderID string) (model.Order, error) {
	if orderID == "" {
		return model.Order{}, invalid("order id is required")
	}
	o, err := f.orders.Get(orderID)
	return o, wrap(err)
}

// ListOrders returns the user's orders, oldest first.
func (f *Facade) ListOrders(userID string) ([]model.Order, error) {
	if userID == "" {
		return nil, invalid("user id is required")
	}
	return f.orders.ListByUser(userID), nil
}

// GetProduct returns the product with the given id.
func (f *Facade) GetProduct(id string) (model.Product, error) {
	if id == "" {
		return model.Product{}, invalid("product id is required")
	}
	p, err := f.store.Get(id)
	return p, wrap(err)
}

// ListProducts returns products matching the filter. A category value that
// no catalog entry carries is rejected rather than silently matching
// nothing.
func (f *Facade) ListProducts(req ProductFilterRequest) ([]model.Product, error) {
	c := model.Category(req.Category)
	if c != "" && !f.store.KnownCategory(c) {
		return nil, invalid("unknown category " + req.Category)
	}
	return f.store.List(catalog.Filter{Category: c, Tag: req.Tag, Text: req.Text}), nil
}

// OrderEvents returns the inventory audit trail recorded for an order.
func (f *Facade) OrderEvents(orderID string) ([]model.InventoryEvent, error) {
	if orderID == "" {
		return nil, invalid("order id is required")
	}
	if _, err := f.orders.Get(orderID); err != nil {
		return nil, wrap(err)
	}
	return f.led.EventsForOrder(orderID), nil
}

// Recommend returns ranked product suggestions for the user.
func (f *Facade) Recommend(req RecommendRequest) ([]recommend.Scored, error) {
	if err := f.validate.Struct(req); err != nil {
		return nil, invalid(err.Error())
	}
	limit := req.Limit
	if limit == 0 {
		limit = f.cfg.RecommendDefaultLimit
	}
	if limit > f.cfg.RecommendMaxLimit {
		return nil, invalid("limit exceeds maximum")
	}
	out, err := f.rec.Recommend(model.RecommendationRequest{
		UserID:           req.UserID,
		ContextProductID: req.ContextProductID,
		Limit:            limit,
		IncludePurchased: req.IncludePurchased,
	})
	return out, wrap(err)
}
