package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/stocktrack_backend/config"
	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
	"gorm.io/gorm"
)

// MainWarehouseMarker is the bootstrap fallback only. Runtime resolution
// always prefers the persisted is_main flag; the marker is consulted once
// for businesses migrated from systems that encoded the reference
// warehouse in its display name.
const MainWarehouseMarker = "main"

type Warehouse struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Phone      string    `gorm:"size:20" json:"phone"`
	Mobile     string    `gorm:"size:20" json:"mobile"`
	Address    string    `gorm:"type:text" json:"address"`
	Country    string    `gorm:"size:100"  json:"country"`
	City       string    `gorm:"size:100"  json:"city"`
	IsMain     *bool     `gorm:"not null;default:false" json:"is_main"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (w Warehouse) GetBusinessId() string {
	return w.BusinessId
}

type NewWarehouse struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Mobile  string `json:"mobile"`
	Address string `json:"address"`
	Country string `json:"country"`
	City    string `json:"city"`
	IsMain  *bool  `json:"is_main"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewWarehouse) validate(ctx context.Context, businessId string, id int) error {
	// name
	if err := utils.ValidateUnique[Warehouse](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	// phone
	if len(strings.TrimSpace(input.Phone)) > 0 {
		if err := utils.ValidateUnique[Warehouse](ctx, businessId, "phone", input.Phone, id); err != nil {
			return err
		}
	}
	// mobile
	if len(strings.TrimSpace(input.Mobile)) > 0 {
		if err := utils.ValidateUnique[Warehouse](ctx, businessId, "mobile", input.Mobile, id); err != nil {
			return err
		}
	}
	return nil
}

func CreateWarehouse(ctx context.Context, input *NewWarehouse) (*Warehouse, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	warehouse := Warehouse{
		BusinessId: businessId,
		Name:       input.Name,
		Phone:      input.Phone,
		Mobile:     input.Mobile,
		Address:    input.Address,
		Country:    input.Country,
		City:       input.City,
		IsMain:     utils.NewFalse(),
		IsActive:   utils.NewTrue(),
	}
	if input.IsMain != nil && *input.IsMain {
		warehouse.IsMain = utils.NewTrue()
	}

	// db action
	db := config.GetDB()
	tx := db.Begin()
	if *warehouse.IsMain {
		// only one reference warehouse per business
		if err := tx.WithContext(ctx).Model(&Warehouse{}).
			Where("business_id = ?", businessId).
			UpdateColumn("is_main", false).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.WithContext(ctx).Create(&warehouse).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if err := warehouse.RemoveAllRedis(); err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func UpdateWarehouse(ctx context.Context, id int, input *NewWarehouse) (*Warehouse, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	warehouse, err := utils.FetchModel[Warehouse](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&warehouse).Updates(map[string]interface{}{
		"Name":    input.Name,
		"Phone":   input.Phone,
		"Mobile":  input.Mobile,
		"Address": input.Address,
		"Country": input.Country,
		"City":    input.City,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(*warehouse); err != nil {
		return nil, err
	}
	return warehouse, nil
}

func DeleteWarehouse(ctx context.Context, id int) (*Warehouse, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	result, err := utils.FetchModel[Warehouse](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	if result.IsMain != nil && *result.IsMain {
		return nil, errors.New("cannot delete the main warehouse")
	}

	// check if warehouse is used
	var count int64
	if err := db.WithContext(ctx).Model(&StockItem{}).
		Where("warehouse_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("warehouse has stock")
	}

	// db action
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(*result); err != nil {
		return nil, err
	}
	return result, nil
}

func GetWarehouse(ctx context.Context, id int) (*Warehouse, error) {
	return GetResource[Warehouse](ctx, id)
}

func ListWarehouse(ctx context.Context, name *string) ([]*Warehouse, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	// unfiltered list is cached (WarehouseList:$businessId)
	if name == nil || len(*name) == 0 {
		return ListAllResource[Warehouse, Warehouse](ctx, "id")
	}

	db := config.GetDB()
	var results []*Warehouse
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Where("name LIKE ?", "%"+*name+"%").
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveWarehouse(ctx context.Context, id int, isActive bool) (*Warehouse, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return ToggleActiveModel[Warehouse](ctx, businessId, id, isActive)
}

// SetMainWarehouse re-points the reference warehouse. The previous main
// loses the flag in the same transaction.
func SetMainWarehouse(ctx context.Context, id int) (*Warehouse, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	warehouse, err := utils.FetchModel[Warehouse](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&Warehouse{}).
		Where("business_id = ?", businessId).
		UpdateColumn("is_main", false).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	Tx := tx.WithContext(ctx).Model(&warehouse).UpdateColumn("is_main", true)
	if Tx.Error != nil {
		tx.Rollback()
		return nil, Tx.Error
	}
	if err := createHistory(Tx, "UPDATE", id, Tx.Statement.Table, nil, nil,
		"set as main warehouse"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(*warehouse); err != nil {
		return nil, err
	}
	return warehouse, nil
}

// ResolveMainWarehouse returns the business's reference warehouse.
//
// The is_main flag wins. When no warehouse carries the flag, fall back once
// to the first warehouse (by id) whose name contains MainWarehouseMarker
// case-insensitively, persist the flag so the scan never repeats, and log a
// warning. Returns nil (no error) when neither resolves.
func ResolveMainWarehouse(ctx context.Context, businessId string) (*Warehouse, error) {
	db := config.GetDB()

	var main Warehouse
	err := db.WithContext(ctx).
		Where("business_id = ? AND is_main = true", businessId).
		Order("id").First(&main).Error
	if err == nil {
		return &main, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// bootstrap by name marker
	var warehouses []*Warehouse
	if err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Order("id").Find(&warehouses).Error; err != nil {
		return nil, err
	}
	for _, w := range warehouses {
		if strings.Contains(strings.ToLower(w.Name), MainWarehouseMarker) {
			if err := db.WithContext(ctx).Model(w).
				UpdateColumn("is_main", true).Error; err != nil {
				return nil, err
			}
			w.IsMain = utils.NewTrue()
			config.LogWarn(config.GetLogger(), "models", "ResolveMainWarehouse",
				"main warehouse resolved by name marker, flag persisted",
				map[string]interface{}{"business_id": businessId, "warehouse_id": w.ID},
				"main warehouse bootstrap")
			if err := w.RemoveAllRedis(); err != nil {
				return nil, err
			}
			return w, nil
		}
	}

	config.LogWarn(config.GetLogger(), "models", "ResolveMainWarehouse",
		"no main warehouse configured",
		map[string]interface{}{"business_id": businessId},
		"stock health checks are inert until a main warehouse is set")
	return nil, nil
}
