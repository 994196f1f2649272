package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/stocktrack_backend/config"
	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
	"gorm.io/gorm"
)

const (
	IntegrationProviderWix = "wix"
)

const (
	IntegrationStatusConnected    = "connected"
	IntegrationStatusDisconnected = "disconnected"
	IntegrationStatusError        = "error"
)

const (
	SyncTriggeredManual  = "manual"
	SyncTriggeredWebhook = "webhook"
	SyncTriggeredSystem  = "system"
)

// IntegrationConnection holds one business's storefront connection. The
// SalesWarehouseId is where webhook order lines are deducted from.
type IntegrationConnection struct {
	ID                uint       `gorm:"primary_key" json:"id"`
	BusinessId        string     `gorm:"index;not null" json:"business_id"`
	Provider          string     `gorm:"index;size:50;not null" json:"provider"`
	Status            string     `gorm:"size:20;not null" json:"status"`
	StoreId           string     `gorm:"size:100" json:"store_id"`
	StoreName         string     `gorm:"size:255" json:"store_name"`
	SalesWarehouseId  int        `gorm:"not null;default:0" json:"sales_warehouse_id"`
	LastSyncAt        *time.Time `json:"last_sync_at"`
	LastSuccessSyncAt *time.Time `json:"last_success_sync_at"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type IntegrationSyncRun struct {
	ID            uint          `gorm:"primary_key" json:"id"`
	BusinessId    string        `gorm:"index;not null" json:"business_id"`
	ConnectionId  uint          `gorm:"index;not null" json:"connection_id"`
	Provider      string        `gorm:"index;size:50;not null" json:"provider"`
	Status        SyncRunStatus `gorm:"size:20;not null" json:"status"`
	TriggeredBy   string        `gorm:"size:20" json:"triggered_by"`
	RecordsSynced int           `json:"records_synced"`
	ErrorCount    int           `json:"error_count"`
	ErrorText     string        `gorm:"type:text" json:"error_text"`
	StartedAt     *time.Time    `json:"started_at"`
	FinishedAt    *time.Time    `json:"finished_at"`
	DurationMs    int64         `json:"duration_ms"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewIntegrationConnection struct {
	Provider         string `json:"provider" binding:"required"`
	StoreId          string `json:"store_id"`
	StoreName        string `json:"store_name"`
	SalesWarehouseId int    `json:"sales_warehouse_id" binding:"required"`
}

// ConnectIntegration creates or re-activates the business's connection for
// a provider. One connection per (business, provider).
func ConnectIntegration(ctx context.Context, input *NewIntegrationConnection) (*IntegrationConnection, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateResourceId[Warehouse](ctx, businessId, input.SalesWarehouseId); err != nil {
		return nil, errors.New("sales warehouse not found")
	}

	db := config.GetDB()
	var conn IntegrationConnection
	err := db.WithContext(ctx).
		Where("business_id = ? AND provider = ?", businessId, input.Provider).
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		conn = IntegrationConnection{
			BusinessId:       businessId,
			Provider:         input.Provider,
			Status:           IntegrationStatusConnected,
			StoreId:          input.StoreId,
			StoreName:        input.StoreName,
			SalesWarehouseId: input.SalesWarehouseId,
		}
		if err := db.WithContext(ctx).Create(&conn).Error; err != nil {
			return nil, err
		}
		return &conn, nil
	} else if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Model(&conn).Updates(map[string]interface{}{
		"Status":           IntegrationStatusConnected,
		"StoreId":          input.StoreId,
		"StoreName":        input.StoreName,
		"SalesWarehouseId": input.SalesWarehouseId,
	}).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func GetIntegrationConnection(ctx context.Context, provider string) (*IntegrationConnection, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var conn IntegrationConnection
	err := db.WithContext(ctx).
		Where("business_id = ? AND provider = ?", businessId, provider).
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func DisconnectIntegration(ctx context.Context, provider string) (*IntegrationConnection, error) {
	conn, err := GetIntegrationConnection(ctx, provider)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(conn).
		UpdateColumn("status", IntegrationStatusDisconnected).Error; err != nil {
		return nil, err
	}
	conn.Status = IntegrationStatusDisconnected
	return conn, nil
}

// StartSyncRun opens the bookkeeping row for one webhook or manual sync.
func StartSyncRun(ctx context.Context, conn *IntegrationConnection, triggeredBy string) (*IntegrationSyncRun, error) {
	now := time.Now()
	run := IntegrationSyncRun{
		BusinessId:   conn.BusinessId,
		ConnectionId: conn.ID,
		Provider:     conn.Provider,
		Status:       SyncRunStatusRunning,
		TriggeredBy:  triggeredBy,
		StartedAt:    &now,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func FinishSyncRun(ctx context.Context, run *IntegrationSyncRun, recordsSynced int, runErr error) error {
	now := time.Now()
	status := SyncRunStatusSuccess
	errorCount := 0
	errorText := ""
	if runErr != nil {
		status = SyncRunStatusFailed
		errorCount = 1
		errorText = runErr.Error()
		if recordsSynced > 0 {
			status = SyncRunStatusPartial
		}
	}

	var durationMs int64
	if run.StartedAt != nil {
		durationMs = now.Sub(*run.StartedAt).Milliseconds()
	}

	db := config.GetDB()
	updates := map[string]interface{}{
		"Status":        status,
		"RecordsSynced": recordsSynced,
		"ErrorCount":    errorCount,
		"ErrorText":     errorText,
		"FinishedAt":    &now,
		"DurationMs":    durationMs,
	}
	if err := db.WithContext(ctx).Model(run).Updates(updates).Error; err != nil {
		return err
	}

	connUpdates := map[string]interface{}{"LastSyncAt": &now}
	if runErr == nil {
		connUpdates["LastSuccessSyncAt"] = &now
	}
	return db.WithContext(ctx).Model(&IntegrationConnection{}).
		Where("id = ?", run.ConnectionId).Updates(connUpdates).Error
}
