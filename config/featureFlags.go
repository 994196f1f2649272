package config

import (
	"os"
	"strconv"
	"strings"
)

// StockHealthBaseline returns the fixed baseline quantity used to classify the
// main warehouse's own stock. Zero (the default) means the main warehouse is
// reported green unconditionally and production escalation is off.
//
// Set via env:
// - STOCK_HEALTH_BASELINE=1000
func StockHealthBaseline() int64 {
	v := strings.TrimSpace(os.Getenv("STOCK_HEALTH_BASELINE"))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ReplenishQuantityPolicy selects how much stock an auto-created ticket asks for.
//
// Set via env:
// - REPLENISH_QTY_POLICY="full" | "fixed" | "tenth"
// - REPLENISH_QTY_FIXED=500 (only read for "fixed")
//
// Policy keys are case-insensitive. Unknown values fall back to "full".
func ReplenishQuantityPolicy() (policy string, fixedQty int64) {
	policy = strings.ToLower(strings.TrimSpace(os.Getenv("REPLENISH_QTY_POLICY")))
	switch policy {
	case "fixed", "tenth":
	default:
		policy = "full"
	}
	if policy == "fixed" {
		if v := strings.TrimSpace(os.Getenv("REPLENISH_QTY_FIXED")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				fixedQty = n
			}
		}
	}
	return policy, fixedQty
}

// StockHealthLeadTimeDays is the collect_date offset for auto-created tickets.
//
// Set via env:
// - STOCK_HEALTH_LEAD_TIME_DAYS (default 5)
func StockHealthLeadTimeDays() int {
	v := strings.TrimSpace(os.Getenv("STOCK_HEALTH_LEAD_TIME_DAYS"))
	if v == "" {
		return 5
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 5
	}
	return n
}
