package storesync

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/stocktrack_backend/config"
	"bitbucket.org/mmdatafocus/stocktrack_backend/models"
	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
	"github.com/shopspring/decimal"
)

// usableLines filters an order down to the lines worth deducting: a SKU is
// present and the quantity is positive. Repeated SKUs are merged so one
// order touches each stock record once.
func usableLines(order *OrderWebhook) []OrderLineItem {
	merged := make(map[string]int)
	var lines []OrderLineItem
	for _, line := range order.LineItems {
		sku := strings.TrimSpace(line.Sku)
		if sku == "" || !line.Quantity.IsPositive() {
			continue
		}
		if idx, seen := merged[sku]; seen {
			lines[idx].Quantity = lines[idx].Quantity.Add(line.Quantity)
			continue
		}
		merged[sku] = len(lines)
		lines = append(lines, OrderLineItem{Sku: sku, Name: line.Name, Quantity: line.Quantity})
	}
	return lines
}

// applyOrder deducts every usable line from the connection's sales warehouse
// in one transaction. An unknown SKU rolls the whole order back.
func applyOrder(ctx context.Context, conn *models.IntegrationConnection, order *OrderWebhook) (int, error) {
	lines := usableLines(order)
	if len(lines) == 0 {
		return 0, nil
	}

	// A health check run holds the StockHealth lock through its transaction;
	// fail fast so the storefront retries the webhook instead of deducting
	// against a snapshot being evaluated.
	if err := utils.BusinessLock(ctx, conn.BusinessId, "StockHealth", "storesync", "applyOrder"); err != nil {
		return 0, err
	}

	db := config.GetDB()
	tx := db.Begin()
	for _, line := range lines {
		if _, err := models.DeductStock(tx, ctx, conn.BusinessId, line.Sku, conn.SalesWarehouseId, line.Quantity); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return len(lines), nil
}

// remainingAfter is the clamped post-deduction quantity, shared with the
// models layer semantics.
func remainingAfter(current, deduct decimal.Decimal) decimal.Decimal {
	remaining := current.Sub(deduct)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
