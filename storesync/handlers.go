package storesync

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/stocktrack_backend/config"
	"bitbucket.org/mmdatafocus/stocktrack_backend/models"
	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)

		conn, err := models.GetIntegrationConnection(ctx, models.IntegrationProviderWix)
		if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if conn == nil || errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusOK, StatusResponse{
				Connection: ConnectionResponse{
					Status: models.IntegrationStatusDisconnected,
				},
			})
			return
		}

		c.JSON(http.StatusOK, StatusResponse{
			Connection: ConnectionResponse{
				Status:           conn.Status,
				StoreId:          conn.StoreId,
				StoreName:        conn.StoreName,
				SalesWarehouseId: conn.SalesWarehouseId,
			},
			LastSyncAt:        formatTime(conn.LastSyncAt),
			LastSuccessSyncAt: formatTime(conn.LastSuccessSyncAt),
		})
	}
}

func ConnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req ConnectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if strings.TrimSpace(req.StoreId) == "" || req.SalesWarehouseId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "storeId and salesWarehouseId are required"})
			return
		}

		storeName := strings.TrimSpace(req.StoreName)
		if storeName == "" {
			storeName = req.StoreId
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		conn, err := models.ConnectIntegration(ctx, &models.NewIntegrationConnection{
			Provider:         models.IntegrationProviderWix,
			StoreId:          req.StoreId,
			StoreName:        storeName,
			SalesWarehouseId: req.SalesWarehouseId,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "connectionId": conn.ID})
	}
}

func DisconnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, err := resolveBusinessID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)

		if _, err := models.DisconnectIntegration(ctx, models.IntegrationProviderWix); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not connected"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// ProductsHandler proxies the storefront's product catalog, mostly used to
// match SKUs when connecting.
func ProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := resolveBusinessID(c); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		client, err := newStoreClient()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		products, err := client.listProducts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products})
	}
}

// OrderWebhookHandler receives order-paid events. The connection is resolved
// by store id, lines are deducted from the connection's sales warehouse (no
// negatives, missing records auto-created at zero), and a stock health check
// runs afterwards so the replenishment tickets follow immediately.
func OrderWebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var order OrderWebhook
		if err := c.ShouldBindJSON(&order); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		if strings.TrimSpace(order.StoreId) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "storeId is required"})
			return
		}

		conn, err := connectionByStoreId(c, order.StoreId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown store"})
			return
		}
		if conn.Status != models.IntegrationStatusConnected {
			c.JSON(http.StatusConflict, gin.H{"error": "store is disconnected"})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), conn.BusinessId)

		run, err := models.StartSyncRun(ctx, conn, models.SyncTriggeredWebhook)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		deducted, err := applyOrder(ctx, conn, &order)
		if finishErr := models.FinishSyncRun(ctx, run, deducted, err); finishErr != nil {
			config.LogError(logger, "storesync", "OrderWebhookHandler", "failed to close sync run", run.ID, finishErr)
		}
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "deducted": deducted})
			return
		}

		summary, err := models.RunStockHealthCheck(ctx)
		if err != nil {
			config.LogError(logger, "storesync", "OrderWebhookHandler", "stock health check failed after order", order.OrderId, err)
			c.JSON(http.StatusOK, gin.H{"success": true, "deducted": deducted, "ticketsCreated": 0})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"deducted":       deducted,
			"ticketsCreated": summary.TicketsCreated,
		})
	}
}

func resolveBusinessID(c *gin.Context) (string, error) {
	username, ok := utils.GetUsernameFromContext(c.Request.Context())
	if !ok || strings.TrimSpace(username) == "" {
		return "", errors.New("unauthorized")
	}

	var user models.User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return "", err
	}
	if !exists {
		db := config.GetDB()
		if db == nil {
			return "", errors.New("db is nil")
		}
		if err := db.WithContext(c.Request.Context()).
			Model(&models.User{}).
			Where("username = ?", username).
			Take(&user).Error; err != nil {
			return "", errors.New("unauthorized")
		}
	}
	businessId := strings.TrimSpace(user.BusinessId)
	if businessId == "" {
		return "", errors.New("business_id is required")
	}
	return businessId, nil
}

// connectionByStoreId looks the connection up across tenants; webhooks carry
// no session.
func connectionByStoreId(c *gin.Context, storeId string) (*models.IntegrationConnection, error) {
	ctx := utils.SetSkipTenantScopeInContext(c.Request.Context(), true)
	db := config.GetDB()

	var conn models.IntegrationConnection
	err := db.WithContext(ctx).
		Where("store_id = ? AND provider = ?", storeId, models.IntegrationProviderWix).
		Take(&conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("unknown store")
		}
		return nil, err
	}
	return &conn, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
