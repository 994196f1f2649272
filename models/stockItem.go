package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/stocktrack_backend/config"
	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockItem is one item's stock record at one warehouse. The same item code
// appears once per warehouse it is stocked at.
type StockItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null;uniqueIndex:uq_item_warehouse" json:"business_id"`
	ItemId      string          `gorm:"size:100;not null;uniqueIndex:uq_item_warehouse" json:"item_id"`
	WarehouseId int             `gorm:"not null;uniqueIndex:uq_item_warehouse" json:"warehouse_id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	ItemType    string          `gorm:"size:100" json:"item_type"`
	Mg          string          `gorm:"size:50" json:"mg"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"quantity"`
	MadeDate    *time.Time      `json:"made_date"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s StockItem) GetBusinessId() string {
	return s.BusinessId
}

type NewStockItem struct {
	ItemId      string          `json:"item_id" binding:"required"`
	WarehouseId int             `json:"warehouse_id" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	ItemType    string          `json:"item_type"`
	Mg          string          `json:"mg"`
	Quantity    decimal.Decimal `json:"quantity"`
	MadeDate    *time.Time      `json:"made_date"`
}

func (input *NewStockItem) validate(ctx context.Context, businessId string, id int) error {
	if input.Quantity.IsNegative() {
		return errors.New("quantity cannot be negative")
	}
	// warehouse must belong to the business
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.WarehouseId); err != nil {
		return errors.New("warehouse not found")
	}
	// one record per (item, warehouse)
	count, err := utils.ResourceCountWhere[StockItem](ctx, businessId,
		"item_id = ? AND warehouse_id = ? AND id != ?", input.ItemId, input.WarehouseId, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("item already exists in this warehouse")
	}
	return nil
}

func CreateStockItem(ctx context.Context, input *NewStockItem) (*StockItem, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	item := StockItem{
		BusinessId:  businessId,
		ItemId:      input.ItemId,
		WarehouseId: input.WarehouseId,
		Name:        input.Name,
		ItemType:    input.ItemType,
		Mg:          input.Mg,
		Quantity:    input.Quantity,
		MadeDate:    input.MadeDate,
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&item).Error
	if err != nil {
		return nil, err
	}

	if err := item.RemoveAllRedis(); err != nil {
		return nil, err
	}
	return &item, nil
}

func UpdateStockItem(ctx context.Context, id int, input *NewStockItem) (*StockItem, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[StockItem](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&item).Updates(map[string]interface{}{
		"ItemId":      input.ItemId,
		"WarehouseId": input.WarehouseId,
		"Name":        input.Name,
		"ItemType":    input.ItemType,
		"Mg":          input.Mg,
		"Quantity":    input.Quantity,
		"MadeDate":    input.MadeDate,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(*item); err != nil {
		return nil, err
	}
	return item, nil
}

// AdjustStockQuantity sets the absolute quantity of one record and writes a
// history row. Used by the console's qty edit.
func AdjustStockQuantity(ctx context.Context, id int, quantity decimal.Decimal) (*StockItem, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if quantity.IsNegative() {
		return nil, errors.New("quantity cannot be negative")
	}

	item, err := utils.FetchModel[StockItem](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	before := item.Quantity

	db := config.GetDB()
	tx := db.Begin()
	Tx := tx.WithContext(ctx).Model(&item).UpdateColumn("quantity", quantity)
	if Tx.Error != nil {
		tx.Rollback()
		return nil, Tx.Error
	}
	if err := createHistory(Tx, "UPDATE", item.ID, Tx.Statement.Table,
		map[string]interface{}{"quantity": before},
		map[string]interface{}{"quantity": quantity},
		"stock quantity adjusted"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	item.Quantity = quantity
	if err := RemoveRedisBoth(*item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeductStock lowers a warehouse's stock of an item code inside the caller's
// transaction. Quantities clamp at zero, never negative. When the item has no
// record at the warehouse yet but exists elsewhere in the business, a zero
// quantity record is created so the item shows up on the status board.
func DeductStock(tx *gorm.DB, ctx context.Context, businessId string, itemId string, warehouseId int, qty decimal.Decimal) (*StockItem, error) {

	if qty.IsNegative() {
		return nil, errors.New("deduction quantity cannot be negative")
	}

	var item StockItem
	err := tx.WithContext(ctx).
		Where("business_id = ? AND item_id = ? AND warehouse_id = ?", businessId, itemId, warehouseId).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// copy descriptive fields from any sibling record
		var sibling StockItem
		err = tx.WithContext(ctx).
			Where("business_id = ? AND item_id = ?", businessId, itemId).
			Order("id").First(&sibling).Error
		if err != nil {
			return nil, errors.New("unknown item: " + itemId)
		}
		item = StockItem{
			BusinessId:  businessId,
			ItemId:      itemId,
			WarehouseId: warehouseId,
			Name:        sibling.Name,
			ItemType:    sibling.ItemType,
			Mg:          sibling.Mg,
			Quantity:    decimal.Zero,
		}
		if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	remaining := item.Quantity.Sub(qty)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	if err := tx.WithContext(ctx).Model(&item).
		UpdateColumn("quantity", remaining).Error; err != nil {
		return nil, err
	}
	item.Quantity = remaining
	return &item, nil
}

func DeleteStockItem(ctx context.Context, id int) (*StockItem, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	item, err := utils.FetchModel[StockItem](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// open tickets keep the record alive
	count, err := utils.ResourceCountWhere[Ticket](ctx, businessId,
		"item_id = ? AND current_status IN ?", item.ItemId, OpenTicketStatuses)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("item has open tickets")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&item).Error; err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(*item); err != nil {
		return nil, err
	}
	return item, nil
}

func GetStockItem(ctx context.Context, id int) (*StockItem, error) {
	return GetResource[StockItem](ctx, id)
}

// ListStockItems filters by warehouse and name/code search. warehouseId 0
// means all warehouses; staff callers pass their assigned warehouse.
func ListStockItems(ctx context.Context, warehouseId int, search *string) ([]*StockItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*StockItem

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if warehouseId > 0 {
		dbCtx = dbCtx.Where("warehouse_id = ?", warehouseId)
	}
	if search != nil && len(*search) > 0 {
		dbCtx = dbCtx.Where("name LIKE ? OR item_id LIKE ?", "%"+*search+"%", "%"+*search+"%")
	}

	err := dbCtx.Order("item_id, warehouse_id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
