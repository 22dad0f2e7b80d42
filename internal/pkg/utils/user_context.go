package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
)

// GetUserIDFromContext 从 Gin 上下文中获取并验证用户ID
// 如果获取失败或类型不正确，会中止请求并返回错误
func GetUserIDFromContext(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		xerr.AbortWithError(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "User ID not found in context")
		return 0, false
	}
	currentUserID, ok := userID.(uint64)
	if !ok {
		xerr.AbortWithError(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "Invalid user ID type in context")
		return 0, false
	}
	return currentUserID, true
}

// OptionalUserIDFromContext 取可选的登录用户ID，匿名访问返回 nil
// 用于分享访问这类对匿名访客开放的入口
func OptionalUserIDFromContext(c *gin.Context) *uint64 {
	userID, exists := c.Get("userID")
	if !exists {
		return nil
	}
	id, ok := userID.(uint64)
	if !ok {
		return nil
	}
	return &id
}
