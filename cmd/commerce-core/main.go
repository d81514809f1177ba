// Package main runs the commerce core simulation harness: it seeds a
// catalog, drives concurrent order traffic through the facade, and reports
// recommendations and the ledger reconciliation result.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/commerce-core/internal/catalog"
	"github.com/fairyhunter13/commerce-core/internal/config"
	"github.com/fairyhunter13/commerce-core/internal/facade"
	"github.com/fairyhunter13/commerce-core/internal/ledger"
	"github.com/fairyhunter13/commerce-core/internal/model"
	"github.com/fairyhunter13/commerce-core/internal/obs"
	"github.com/fairyhunter13/commerce-core/internal/order"
	"github.com/fairyhunter13/commerce-core/internal/recommend"
)

func seedProducts(store *catalog.Store) {
	products := []model.Product{
		{ID: "p-espresso", Name: "Espresso Beans", Description: "dark roast arabica", Price: decimal.NewFromFloat(12.50), Category: "coffee", Tags: []string{"beans", "dark-roast"}, StockQuantity: 120},
		{ID: "p-filter", Name: "Filter Blend", Description: "medium roast filter coffee", Price: decimal.NewFromFloat(10.00), Category: "coffee", Tags: []string{"beans", "medium-roast"}, StockQuantity: 90},
		{ID: "p-grinder", Name: "Burr Grinder", Description: "conical burr grinder", Price: decimal.NewFromFloat(89.90), Category: "equipment", Tags: []string{"grinder", "burr"}, StockQuantity: 25},
		{ID: "p-kettle", Name: "Gooseneck Kettle", Description: "pour-over kettle", Price: decimal.NewFromFloat(45.00), Category: "equipment", Tags: []string{"kettle", "pour-over"}, StockQuantity: 30},
		{ID: "p-dripper", Name: "Ceramic Dripper", Description: "v-shaped pour-over dripper", Price: decimal.NewFromFloat(24.00), Category: "equipment", Tags: []string{"dripper", "pour-over"}, StockQuantity: 40},
		{ID: "p-mug", Name: "Stoneware Mug", Description: "340ml stoneware mug", Price: decimal.NewFromFloat(14.00), Category: "tableware", Tags: []string{"mug"}, StockQuantity: 200},
		{ID: "p-decaf", Name: "Decaf Blend", Description: "swiss water decaf", Price: decimal.NewFromFloat(11.00), Category: "coffee", Tags: []string{"beans", "decaf"}, StockQuantity: 60},
		{ID: "p-scale", Name: "Brew Scale", Description: "0.1g brew scale with timer", Price: decimal.NewFromFloat(32.00), Category: "equipment", Tags: []string{"scale"}, StockQuantity: 15},
	}
	for _, p := range products {
		if err := store.Put(p); err != nil {
			obs.Logger.Error("seed_failed", "product_id", p.ID, "error", err)
		}
	}
}

func shopper(f *facade.Facade, products []model.Product, userID string, orders int, rng *rand.Rand) {
	for i := 0; i < orders; i++ {
		n := 1 + rng.Intn(3)
		picked := rng.Perm(len(products))[:n]
		items := make([]facade.OrderLine, 0, n)
		for _, idx := range picked {
			items = append(items, facade.OrderLine{
				ProductID: products[idx].ID,
				Quantity:  int64(1 + rng.Intn(2)),
			})
		}
		o, err := f.CreateOrder(facade.CreateOrderRequest{UserID: userID, Items: items})
		if err != nil {
			obs.Logger.Warn("sim_create_failed", "user_id", userID, "error", err)
			continue
		}
		if _, err := f.ReserveOrder(o.ID); err != nil {
			continue // order is failed with reason recorded
		}
		switch rng.Intn(10) {
		case 0:
			_, _ = f.CancelOrder(o.ID)
		case 1:
			_, _ = f.FailOrder(o.ID)
		default:
			if _, err := f.ConfirmOrder(o.ID); err == nil {
				_, _ = f.FulfillOrder(o.ID)
			}
		}
	}
}

func main() {
	cfg := config.Load()
	obs.InitLogger()
	obs.Logger.Info("core_starting")

	led := ledger.New()
	store := catalog.New(led)
	engine := order.NewEngine(store)
	rec := recommend.NewEngine(cfg, store, engine)
	f := facade.New(cfg, store, led, engine, rec)

	seedProducts(store)
	products := store.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reconciler := ledger.NewReconciler(cfg, led, store)
	reconciler.Start(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		perUser := cfg.SimOrders / cfg.SimUsers
		if perUser == 0 {
			perUser = 1
		}
		for u := 0; u < cfg.SimUsers; u++ {
			userID := fmt.Sprintf("user-%02d", u)
			rng := rand.New(rand.NewSource(int64(u) + 1))
			wg.Add(1)
			go func() {
				defer wg.Done()
				shopper(f, products, userID, perUser, rng)
			}()
		}
		wg.Wait()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigc:
		obs.Logger.Info("shutdown_signal", "signal", s.String())
	case <-done:
		obs.Logger.Info("simulation_complete")
	}

	if bad := reconciler.RunOnce(); bad != 0 {
		obs.Logger.Error("reconciliation_drift", "violations", bad)
	} else {
		obs.Logger.Info("reconciliation_clean", "events", led.Len())
	}
	reconciler.Stop()

	for u := 0; u < cfg.SimUsers; u++ {
		userID := fmt.Sprintf("user-%02d", u)
		recs, err := f.Recommend(facade.RecommendRequest{UserID: userID, Limit: 3})
		if err != nil {
			obs.Logger.Warn("recommend_failed", "user_id", userID, "error", err)
			continue
		}
		for _, r := range recs {
			obs.Logger.Info("recommendation",
				"user_id", userID,
				"product_id", r.Product.ID,
				"score", r.Score,
			)
		}
	}
	obs.Logger.Info("core_stopped")
}
