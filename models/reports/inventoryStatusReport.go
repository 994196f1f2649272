package reports

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/stocktrack_backend/models"
	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
)

type InventoryStatusRow = models.StockStatusRow

// GetInventoryStatusReport computes the traffic-light board, cached per
// business and warehouse scope when the report cache is on. warehouseId 0
// means all warehouses.
func GetInventoryStatusReport(ctx context.Context, warehouseId int) ([]InventoryStatusRow, error) {
	start := time.Now()
	defer logSlowReport(ctx, "inventory_status_report", start, map[string]any{
		"warehouse_id": warehouseId,
	})

	if reportCacheEnabled() {
		biz, _ := utils.GetBusinessIdFromContext(ctx)
		key := fmt.Sprintf("report:inventory_status:%s:%d", biz, warehouseId)
		var cached []InventoryStatusRow
		if ok, err := cacheGet(key, &cached); err == nil && ok && cached != nil {
			return cached, nil
		}
		rows, err := models.GetInventoryStatus(ctx, warehouseId)
		if err != nil {
			return nil, err
		}
		_ = cacheSet(key, rows, reportCacheTTL())
		return rows, nil
	}

	return models.GetInventoryStatus(ctx, warehouseId)
}

// GetTicketsReport lists tickets for export. Uncached, tickets change under
// the auto-creator too often for a stale board to be useful.
func GetTicketsReport(ctx context.Context, status *models.TicketStatus) ([]*models.Ticket, error) {
	start := time.Now()
	defer logSlowReport(ctx, "tickets_report", start, nil)

	return models.ListTickets(ctx, status, nil, 0)
}
