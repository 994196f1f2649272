package models

import (
	"context"
	"errors"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/stocktrack_backend/config"
	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
	"bitbucket.org/mmdatafocus/stocktrack_backend/workflow"
	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StockStatusRow is one line of the traffic-light board.
type StockStatusRow struct {
	WarehouseId   int             `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name"`
	ItemId        string          `json:"item_id"`
	Name          string          `json:"name"`
	Quantity      decimal.Decimal `json:"quantity"`
	Percent       decimal.Decimal `json:"percent"`
	Status        StockStatus     `json:"status"`
}

type StockHealthSummary struct {
	ReferenceWarehouseId int              `json:"reference_warehouse_id"`
	TicketsCreated       int              `json:"tickets_created"`
	DuplicatesSuppressed int              `json:"duplicates_suppressed"`
	Statuses             []StockStatusRow `json:"statuses"`
}

// HealthPolicyFromEnv builds the engine policy from service configuration.
func HealthPolicyFromEnv() workflow.HealthPolicy {
	policy := workflow.DefaultHealthPolicy()
	policy.LeadTimeDays = config.StockHealthLeadTimeDays()
	if baseline := config.StockHealthBaseline(); baseline > 0 {
		policy.ReferenceBaseline = decimal.NewFromInt(baseline)
	}
	switch name, fixed := config.ReplenishQuantityPolicy(); name {
	case "fixed":
		policy.ReplenishQuantity = workflow.ReplenishFixed
		policy.FixedQuantity = decimal.NewFromInt(fixed)
	case "tenth":
		policy.ReplenishQuantity = workflow.ReplenishTenth
	default:
		policy.ReplenishQuantity = workflow.ReplenishFull
	}
	return policy
}

// loadInventorySnapshot reads warehouses, stock records and open tickets
// into the engine's input shape inside tx.
func loadInventorySnapshot(tx *gorm.DB, ctx context.Context, businessId string) (workflow.InventorySnapshot, error) {
	var snap workflow.InventorySnapshot

	var warehouses []*Warehouse
	if err := tx.WithContext(ctx).
		Where("business_id = ? AND is_active = true", businessId).
		Order("id").Find(&warehouses).Error; err != nil {
		return snap, err
	}
	for _, w := range warehouses {
		snap.Warehouses = append(snap.Warehouses, workflow.SnapshotWarehouse{
			ID:     w.ID,
			Name:   w.Name,
			IsMain: w.IsMain != nil && *w.IsMain,
		})
	}

	var items []*StockItem
	if err := tx.WithContext(ctx).
		Where("business_id = ?", businessId).
		Order("item_id, warehouse_id").Find(&items).Error; err != nil {
		return snap, err
	}
	for _, item := range items {
		snap.Items = append(snap.Items, workflow.SnapshotItem{
			ItemId:      item.ItemId,
			Name:        item.Name,
			WarehouseId: item.WarehouseId,
			Quantity:    item.Quantity,
		})
	}

	tickets, err := listOpenTickets(tx, ctx, businessId)
	if err != nil {
		return snap, err
	}
	for _, t := range tickets {
		snap.OpenTickets = append(snap.OpenTickets, workflow.SnapshotTicket{
			Kind:          workflow.TicketKind(t.TicketType),
			ItemId:        t.ItemId,
			ToWarehouseId: t.ToWarehouseId,
			Open:          true,
		})
	}
	return snap, nil
}

func statusRows(result workflow.HealthResult) []StockStatusRow {
	rows := make([]StockStatusRow, 0, len(result.Statuses))
	for _, s := range result.Statuses {
		rows = append(rows, StockStatusRow{
			WarehouseId:   s.WarehouseId,
			WarehouseName: s.WarehouseName,
			ItemId:        s.ItemId,
			Name:          s.ItemName,
			Quantity:      s.Quantity,
			Percent:       s.Percent,
			Status:        StockStatus(s.Status),
		})
	}
	return rows
}

// RunStockHealthCheck evaluates the whole business and appends the tickets
// the engine decided on. A per-business redis lock serializes concurrent
// runs; load, evaluate and append happen in one transaction so a run never
// sees another run's half-written tickets.
func RunStockHealthCheck(ctx context.Context) (*StockHealthSummary, error) {
	logger := config.GetLogger()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	// persists the is_main flag on first run for migrated businesses
	if _, err := ResolveMainWarehouse(ctx, businessId); err != nil {
		return nil, err
	}

	locker := config.GetRedisLock()
	if locker == nil {
		return nil, errors.New("service not ready (redis lock not initialized)")
	}
	lock, err := locker.Obtain(ctx, "StockHealth:"+businessId, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(200*time.Millisecond), 10),
	})
	if err != nil {
		config.LogError(logger, "models", "RunStockHealthCheck", "could not obtain stock health lock", businessId, err)
		return nil, errors.New("stock health check already running")
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	policy := HealthPolicyFromEnv()

	db := config.GetDB()
	tx := db.Begin()

	snap, err := loadInventorySnapshot(tx, ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	result := workflow.Evaluate(snap, policy, time.Now())

	// destination quantities for the bookkeeping columns
	currentQty := make(map[string]decimal.Decimal, len(snap.Items))
	for _, item := range snap.Items {
		currentQty[item.ItemId+"|"+strconv.Itoa(item.WarehouseId)] = item.Quantity
	}

	for _, spec := range result.Tickets {
		status := TicketStatusPending
		if spec.Urgent {
			status = TicketStatusUrgent
		}
		available := currentQty[spec.ItemId+"|"+strconv.Itoa(spec.ToWarehouseId)]
		balance := spec.Quantity.Sub(available)
		if balance.IsNegative() {
			balance = decimal.Zero
		}
		ticket := Ticket{
			BusinessId:        businessId,
			TicketType:        TicketType(spec.Kind),
			ItemId:            spec.ItemId,
			ItemName:          spec.ItemName,
			FromWarehouseId:   spec.FromWarehouseId,
			ToWarehouseId:     spec.ToWarehouseId,
			Quantity:          spec.Quantity,
			CurrentStatus:     status,
			RequestDate:       spec.RequestDate,
			CollectDate:       spec.CollectDate,
			AvailableQuantity: &available,
			BalanceNeeded:     &balance,
			CreatedBy:         AutoTicketCreatedBy,
		}
		if err := tx.WithContext(ctx).Create(&ticket).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if len(result.Tickets) > 0 {
		if err := utils.RemoveRedisList[Ticket](businessId); err != nil {
			return nil, err
		}
	}

	logger.WithFields(logrus.Fields{
		"module":                "models",
		"func":                  "RunStockHealthCheck",
		"business_id":           businessId,
		"tickets_created":       len(result.Tickets),
		"duplicates_suppressed": result.DuplicatesSuppressed,
	}).Info("stock health check completed")

	return &StockHealthSummary{
		ReferenceWarehouseId: result.ReferenceWarehouseId,
		TicketsCreated:       len(result.Tickets),
		DuplicatesSuppressed: result.DuplicatesSuppressed,
		Statuses:             statusRows(result),
	}, nil
}

// GetInventoryStatus computes the traffic-light board without creating
// tickets. warehouseId 0 means all warehouses (admin); staff callers pass
// their assigned warehouse.
func GetInventoryStatus(ctx context.Context, warehouseId int) ([]StockStatusRow, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if _, err := ResolveMainWarehouse(ctx, businessId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	snap, err := loadInventorySnapshot(db, ctx, businessId)
	if err != nil {
		return nil, err
	}

	result := workflow.Evaluate(snap, HealthPolicyFromEnv(), time.Now())
	rows := statusRows(result)
	if warehouseId > 0 {
		filtered := rows[:0]
		for _, row := range rows {
			if row.WarehouseId == warehouseId {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	return rows, nil
}

