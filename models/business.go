package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/stocktrack_backend/config"
	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Business struct {
	ID          uuid.UUID `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	ContactName string    `gorm:"size:100" json:"contact_name"`
	Email       string    `gorm:"size:255" json:"email"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Mobile      string    `gorm:"size:20" json:"mobile"`
	Address     string    `gorm:"type:text" json:"address"`
	Country     string    `gorm:"size:100"  json:"country"`
	City        string    `gorm:"size:100"  json:"city"`
	Timezone    string    `gorm:"size:50" json:"timezone"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	//integration ID
}

type NewBusiness struct {
	Name        string `json:"name" binding:"required"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email" binding:"required"`
	Phone       string `json:"phone"`
	Mobile      string `json:"mobile"`
	Address     string `json:"address"`
	Country     string `json:"country"`
	City        string `json:"city"`
	Timezone    string `json:"timezone"`
}

func (business *Business) StoreRedis() error {
	return config.SetRedisObject("Business:"+fmt.Sprint(business.ID), business, 0)
}

func (business *Business) RemoveRedis() error {
	return config.RemoveRedisKey("Business:" + fmt.Sprint(business.ID))
}

func (input *NewBusiness) validate(ctx context.Context, id string) error {
	// name
	if err := utils.ValidateUnique[Business](ctx, "", "name", input.Name, id); err != nil {
		return err
	}
	// email
	if err := utils.ValidateUnique[Business](ctx, "", "email", input.Email, id); err != nil {
		return err
	}
	// phone
	if input.Phone != "" {
		if err := utils.ValidateUnique[Business](ctx, "", "phone", input.Phone, id); err != nil {
			return err
		}
	}
	// mobile
	if input.Mobile != "" {
		if err := utils.ValidateUnique[Business](ctx, "", "mobile", input.Mobile, id); err != nil {
			return err
		}
		// region-aware check when the country code is known
		if len(input.Country) == 2 {
			if err := utils.ValidatePhoneNumber(input.Mobile, strings.ToUpper(input.Country)); err != nil {
				return err
			}
		}
	}
	return nil
}

func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {
	// When creating a business,
	// - create the main warehouse.
	// - create 'Owner' admin user.
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}
	db := config.GetDB()

	tx := db.Begin()

	BID := uuid.New()
	timezone := "Asia/Yangon"
	if input.Timezone != "" {
		timezone = input.Timezone
	}

	business := Business{
		ID:          BID,
		Name:        input.Name,
		ContactName: input.ContactName,
		Email:       input.Email,
		Phone:       input.Phone,
		Mobile:      input.Mobile,
		Address:     input.Address,
		Country:     input.Country,
		City:        input.City,
		Timezone:    timezone,
		IsActive:    utils.NewTrue(),
	}

	// create business
	err := tx.WithContext(ctx).Create(&business).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// create defaults
	businessId := business.ID.String()
	ctx = utils.SetBusinessIdInContext(ctx, businessId)

	// Create Main Warehouse (the replenishment reference)
	err = CreateDefaultWarehouse(tx, ctx, "Main Warehouse", businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	_, err = CreateDefaultOwner(tx, ctx, businessId, business.Email, business.Name)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err = tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	if err := utils.ClearRedisAdmin[Business](); err != nil {
		return nil, err
	}

	return &business, nil
}

// CreateDefaultWarehouse seeds the reference warehouse inside the business
// creation transaction.
func CreateDefaultWarehouse(tx *gorm.DB, ctx context.Context, name string, businessId string) error {
	warehouse := Warehouse{
		BusinessId: businessId,
		Name:       name,
		IsMain:     utils.NewTrue(),
		IsActive:   utils.NewTrue(),
	}
	return tx.WithContext(ctx).Create(&warehouse).Error
}

func UpdateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	var business Business
	if err := db.WithContext(ctx).Where("id = ?", businessId).First(&business).Error; err != nil {
		return nil, err
	}

	err := db.WithContext(ctx).Model(&business).Updates(map[string]interface{}{
		"Name":        input.Name,
		"ContactName": input.ContactName,
		"Email":       input.Email,
		"Phone":       input.Phone,
		"Mobile":      input.Mobile,
		"Address":     input.Address,
		"Country":     input.Country,
		"City":        input.City,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := business.RemoveRedis(); err != nil {
		return nil, err
	}
	return &business, nil
}

func GetBusiness(ctx context.Context) (*Business, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var business Business
	exists, err := config.GetRedisObject("Business:"+businessId, &business)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		if err := db.WithContext(ctx).Where("id = ?", businessId).First(&business).Error; err != nil {
			return nil, err
		}
		if err := business.StoreRedis(); err != nil {
			return nil, err
		}
	}
	return &business, nil
}

// ListBusinessIds returns every active business. Used by the sweep tool and
// the scheduled health check.
func ListBusinessIds(ctx context.Context) ([]string, error) {
	db := config.GetDB()
	var ids []string
	err := db.WithContext(ctx).Model(&Business{}).
		Where("is_active = true").Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
