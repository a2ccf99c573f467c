package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserMiddleware 用户识别中间件
// 从 X-User-ID 请求头取用户标识，缺失时生成临时用户ID
func UserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = uuid.New().String()
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// GetUserID 从上下文获取当前用户ID
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok
}
