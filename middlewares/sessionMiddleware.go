package middlewares

import (
	"context"
	"net/http"

	"bitbucket.org/mmdatafocus/stocktrack_backend/config"
	"bitbucket.org/mmdatafocus/stocktrack_backend/models"
	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the redis session token into the request
// context: token, username, business id, user id/name and the staff
// warehouse scope. Requests without a token pass through untouched; route
// guards decide whether that is acceptable.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetUsernameInContext(ctx, username)

		user, err := loadSessionUser(ctx, username)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		ctx = utils.SetBusinessIdInContext(ctx, user.BusinessId)
		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUserNameInContext(ctx, user.Name)
		ctx = utils.SetIsAdminInContext(ctx, user.Role == models.UserRoleAdmin)
		if user.Role == models.UserRoleStaff && user.WarehouseId != nil {
			ctx = utils.SetWarehouseIdInContext(ctx, *user.WarehouseId)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func loadSessionUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if exists {
		return &user, nil
	}

	result, err := models.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	// cache for the session's lifetime
	_ = config.SetRedisObject("User:"+username, result, utils.GetCacheLifespan())
	return result, nil
}

// RequireSession aborts requests that did not authenticate.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin aborts requests from staff accounts.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, ok := utils.GetIsAdminFromContext(c.Request.Context())
		if !ok || !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
			c.Abort()
			return
		}
		c.Next()
	}
}
