// Package config provides runtime configuration values for the core.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration knobs for recommendation scoring, the ledger
// reconciler, and the simulation harness.
type Config struct {
	RecommendAlpha        float64
	RecommendLookback     time.Duration
	RecommendDefaultLimit int
	RecommendMaxLimit     int
	ReconcileInterval     time.Duration
	ShutdownTimeout       time.Duration
	SimUsers              int
	SimOrders             int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatenv(key string, def float64) float64 {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults. A .env file
// in the working directory is loaded first when present.
func Load() Config {
	_ = godotenv.Load()
	alpha := floatenv("RECOMMEND_ALPHA", 0.5)
	if alpha < 0 || alpha > 1 {
		alpha = 0.5
	}
	lookbackDays := atoienv("RECOMMEND_LOOKBACK_DAYS", 30)
	return Config{
		RecommendAlpha:        alpha,
		RecommendLookback:     time.Duration(lookbackDays) * 24 * time.Hour,
		RecommendDefaultLimit: atoienv("RECOMMEND_DEFAULT_LIMIT", 10),
		RecommendMaxLimit:     atoienv("RECOMMEND_MAX_LIMIT", 50),
		ReconcileInterval:     durenvms("RECONCILE_INTERVAL_MS", 1000),
		ShutdownTimeout:       durenvs("SHUTDOWN_TIMEOUT", 15),
		SimUsers:              atoienv("SIM_USERS", 8),
		SimOrders:             atoienv("SIM_ORDERS", 50),
	}
}
