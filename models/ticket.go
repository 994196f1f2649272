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

const AutoTicketCreatedBy = "auto-system"

// Ticket is a stock movement request. Replenishment tickets move stock from
// the main warehouse to a low warehouse; Production tickets ask for the item
// to be produced at the main warehouse itself (ToWarehouseId 0).
type Ticket struct {
	ID                int              `gorm:"primary_key" json:"id"`
	BusinessId        string           `gorm:"index;not null" json:"business_id"`
	TicketType        TicketType       `gorm:"type:enum('R','P');not null;default:'R'" json:"ticket_type"`
	ItemId            string           `gorm:"size:100;index;not null" json:"item_id"`
	ItemName          string           `gorm:"size:255" json:"item_name"`
	FromWarehouseId   int              `gorm:"not null" json:"from_warehouse_id"`
	ToWarehouseId     int              `gorm:"index;not null;default:0" json:"to_warehouse_id"`
	Quantity          decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"quantity"`
	CurrentStatus     TicketStatus     `gorm:"type:enum('Pending','Urgent','InProgress','Fulfilled','Cancelled','Closed');not null;default:'Pending'" json:"current_status"`
	RequestDate       time.Time        `gorm:"not null" json:"request_date"`
	CollectDate       time.Time        `json:"collect_date"`
	AvailableQuantity *decimal.Decimal `gorm:"type:decimal(20,4)" json:"available_quantity"`
	BalanceNeeded     *decimal.Decimal `gorm:"type:decimal(20,4)" json:"balance_needed"`
	TimeNeeded        string           `gorm:"size:100" json:"time_needed"`
	ExpectedReady     *time.Time       `json:"expected_ready"`
	ActualReady       *time.Time       `json:"actual_ready"`
	DelayReason       string           `gorm:"type:text" json:"delay_reason"`
	CreatedBy         string           `gorm:"size:100;not null" json:"created_by"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t Ticket) GetBusinessId() string {
	return t.BusinessId
}

type NewTicket struct {
	TicketType      TicketType      `json:"ticket_type"`
	ItemId          string          `json:"item_id" binding:"required"`
	FromWarehouseId int             `json:"from_warehouse_id" binding:"required"`
	ToWarehouseId   int             `json:"to_warehouse_id"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	CollectDate     *time.Time      `json:"collect_date"`
}

type TicketProductionUpdate struct {
	ExpectedReady *time.Time `json:"expected_ready"`
	ActualReady   *time.Time `json:"actual_ready"`
	DelayReason   string     `json:"delay_reason"`
	TimeNeeded    string     `json:"time_needed"`
}

func (input *NewTicket) validate(ctx context.Context, businessId string) error {
	if input.Quantity.LessThanOrEqual(decimal.Zero) {
		return errors.New("quantity must be positive")
	}
	if input.TicketType == "" {
		input.TicketType = TicketTypeReplenishment
	}
	if input.TicketType != TicketTypeReplenishment && input.TicketType != TicketTypeProduction {
		return errors.New("invalid ticket type")
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.FromWarehouseId); err != nil {
		return errors.New("source warehouse not found")
	}
	if input.TicketType == TicketTypeReplenishment {
		if input.ToWarehouseId <= 0 {
			return errors.New("destination warehouse is required")
		}
		if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.ToWarehouseId); err != nil {
			return errors.New("destination warehouse not found")
		}
	} else {
		// production tickets have no destination
		input.ToWarehouseId = 0
	}
	// the item must exist somewhere in the business
	count, err := utils.ResourceCountWhere[StockItem](ctx, businessId, "item_id = ?", input.ItemId)
	if err != nil {
		return err
	}
	if count == 0 {
		return errors.New("item not found")
	}
	return nil
}

func CreateTicket(ctx context.Context, input *NewTicket) (*Ticket, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	userName, _ := utils.GetUserNameFromContext(ctx)
	if userName == "" {
		userName = AutoTicketCreatedBy
	}

	now := time.Now()
	collectDate := now.AddDate(0, 0, config.StockHealthLeadTimeDays())
	if input.CollectDate != nil {
		collectDate = *input.CollectDate
	}

	var itemName string
	var item StockItem
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("business_id = ? AND item_id = ?", businessId, input.ItemId).
		Order("id").First(&item).Error; err == nil {
		itemName = item.Name
	}

	ticket := Ticket{
		BusinessId:      businessId,
		TicketType:      input.TicketType,
		ItemId:          input.ItemId,
		ItemName:        itemName,
		FromWarehouseId: input.FromWarehouseId,
		ToWarehouseId:   input.ToWarehouseId,
		Quantity:        input.Quantity,
		CurrentStatus:   TicketStatusPending,
		RequestDate:     now,
		CollectDate:     collectDate,
		CreatedBy:       userName,
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&ticket).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createHistory(tx.WithContext(ctx), "CREATE", ticket.ID, "tickets",
		nil, &ticket, "ticket created"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if err := ticket.RemoveAllRedis(); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func UpdateTicketStatus(ctx context.Context, id int, status TicketStatus) (*Ticket, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if !status.IsValid() {
		return nil, errors.New("invalid ticket status")
	}

	ticket, err := utils.FetchModel[Ticket](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	before := ticket.CurrentStatus

	db := config.GetDB()
	tx := db.Begin()
	Tx := tx.WithContext(ctx).Model(&ticket).UpdateColumn("current_status", status)
	if Tx.Error != nil {
		tx.Rollback()
		return nil, Tx.Error
	}
	if err := createHistory(Tx, "UPDATE", ticket.ID, Tx.Statement.Table,
		map[string]interface{}{"current_status": before},
		map[string]interface{}{"current_status": status},
		"ticket status changed"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	ticket.CurrentStatus = status
	if err := RemoveRedisBoth(*ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// UpdateTicketProduction fills in the production planning fields. Only
// meaningful for open tickets.
func UpdateTicketProduction(ctx context.Context, id int, input *TicketProductionUpdate) (*Ticket, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	ticket, err := utils.FetchModel[Ticket](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if !ticket.CurrentStatus.IsOpen() {
		return nil, errors.New("ticket is closed")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&ticket).Updates(map[string]interface{}{
		"ExpectedReady": input.ExpectedReady,
		"ActualReady":   input.ActualReady,
		"DelayReason":   input.DelayReason,
		"TimeNeeded":    input.TimeNeeded,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(*ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func GetTicket(ctx context.Context, id int) (*Ticket, error) {
	return GetResource[Ticket](ctx, id)
}

func ListTickets(ctx context.Context, status *TicketStatus, ticketType *TicketType, warehouseId int) ([]*Ticket, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Ticket

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("current_status = ?", *status)
	}
	if ticketType != nil && *ticketType != "" {
		dbCtx = dbCtx.Where("ticket_type = ?", *ticketType)
	}
	if warehouseId > 0 {
		dbCtx = dbCtx.Where("to_warehouse_id = ? OR from_warehouse_id = ?", warehouseId, warehouseId)
	}

	err := dbCtx.Order("request_date DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// listOpenTickets loads the dedup set for the health check inside tx.
func listOpenTickets(tx *gorm.DB, ctx context.Context, businessId string) ([]*Ticket, error) {
	var results []*Ticket
	err := tx.WithContext(ctx).
		Where("business_id = ? AND current_status IN ?", businessId, OpenTicketStatuses).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
