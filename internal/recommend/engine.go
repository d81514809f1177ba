// Package recommend computes relevance-ranked product suggestions from
// catalog metadata and completed-order history.
package recommend

import (
	"fmt"
	"sort"
	"time"

	"github.com/fairyhunter13/commerce-core/internal/catalog"
	"github.com/fairyhunter13/commerce-core/internal/config"
	"github.com/fairyhunter13/commerce-core/internal/model"
)

// HistoryView is the read-only order view the engine consumes.
type HistoryView interface {
	CompletedSince(t time.Time) []model.Order
}

// Scored pairs a product with its relevance score.
type Scored struct {
	Product model.Product
	Score   float64
}

// CollabScorer produces a collaborative score in [0,1] for a candidate.
// The default is co-purchase frequency; a learned model can replace it
// without changing the engine contract.
type CollabScorer func(userID string, candidate model.Product, h *History) float64

// Engine blends a content signal (tag/category similarity) with a
// collaborative signal into one ranking. All reads are snapshot reads; the
// engine holds no state of its own.
type Engine struct {
	store  *catalog.Store
	orders HistoryView
	cfg    config.Config
	Collab CollabScorer
}

// NewEngine constructs an Engine over the catalog and order history.
func NewEngine(cfg config.Config, store *catalog.Store, orders HistoryView) *Engine {
	return &Engine{store: store, orders: orders, cfg: cfg, Collab: CoPurchaseScore}
}

// Recommend returns at most req.Limit products, highest score first, ties
// broken by ascending product id. Missing data is never an error: the
// ranking degrades to a popularity prior and, with no data at all, to an
// empty result.
func (e *Engine) Recommend(req model.RecommendationRequest) ([]Scored, error) {
	if req.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0: %w", model.ErrInvalidInput)
	}
	since := time.Now().UTC().Add(-e.cfg.RecommendLookback)
	hist := BuildHistory(e.orders.CompletedSince(since))
	owned := hist.Purchases(req.UserID)

	var contextSet map[string]struct{}
	if req.ContextProductID != "" {
		ctxProduct, err := e.store.Get(req.ContextProductID)
		if err != nil {
			return nil, err
		}
		contextSet = ctxProduct.TagSet()
	} else if len(owned) > 0 {
		contextSet = make(map[string]struct{})
		for id := range owned {
			p, err := e.store.Get(id)
			if err != nil {
				continue
			}
			for t := range p.TagSet() {
				contextSet[t] = struct{}{}
			}
		}
	}

	var out []Scored
	for _, p := range e.store.Snapshot() {
		if p.StockQuantity == 0 {
			continue
		}
		if p.ID == req.ContextProductID {
			continue
		}
		if !req.IncludePurchased {
			if _, bought := owned[p.ID]; bought {
				continue
			}
		}
		score := e.score(req.UserID, p, contextSet, owned, hist)
		if score <= 0 {
			continue
		}
		out = append(out, Scored{Product: p, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Product.ID < out[j].Product.ID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func (e *Engine) score(userID string, p model.Product, contextSet map[string]struct{}, owned map[string]struct{}, hist *History) float64 {
	hasContent := len(contextSet) > 0
	hasCollab := len(owned) > 0
	if !hasContent && !hasCollab {
		// Popularity prior: completed-order count within the lookback
		// window, normalized by the busiest candidate.
		max := hist.MaxOrderCount()
		if max == 0 {
			return 0
		}
		return float64(hist.OrderCount(p.ID)) / float64(max)
	}
	alpha := e.cfg.RecommendAlpha
	if !hasContent {
		alpha = 0
	}
	content := jaccard(p.TagSet(), contextSet)
	collab := clamp01(e.Collab(userID, p, hist))
	return alpha*content + (1-alpha)*collab
}

// CoPurchaseScore is the default collaborative signal: the share of a
// candidate's buyers who also bought something the target user bought.
func CoPurchaseScore(userID string, candidate model.Product, h *History) float64 {
	owned := h.Purchases(userID)
	if len(owned) == 0 {
		return 0
	}
	buyers := h.Buyers(candidate.ID)
	if len(buyers) == 0 {
		return 0
	}
	shared := 0
	for buyer := range buyers {
		if buyer == userID {
			continue
		}
		theirs := h.Purchases(buyer)
		for id := range owned {
			if _, ok := theirs[id]; ok {
				shared++
				break
			}
		}
	}
	return clamp01(float64(shared) / float64(len(buyers)))
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
