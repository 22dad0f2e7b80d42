package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/utils"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/services/admin"
	"github.com/skieshare/skieshare/internal/services/quota"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService  admin.UserService
	quotaService quota.Service
}

func NewUserHandler(userService admin.UserService, quotaService quota.Service) *UserHandler {
	return &UserHandler{userService: userService, quotaService: quotaService}
}

type ChangeTierRequest struct {
	Tier string `json:"tier" binding:"required"`
}

// GetProfile 获取个人资料
// @Summary 获取个人资料
// @Description 返回当前用户的资料和配额使用情况
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} xerr.Response "个人资料"
// @Router /api/v1/users/me [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, xerr.ErrUserNotFound) {
			xerr.Error(c, http.StatusNotFound, xerr.UserNotFoundCode, err.Error())
		} else {
			logger.Error("GetProfile: 获取个人资料失败", zap.Uint64("userID", userID), zap.Error(err))
			xerr.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "获取个人资料失败")
		}
		return
	}

	xerr.Success(c, http.StatusOK, "获取成功", profile)
}

// GetUsage 获取配额使用情况
// @Summary 获取配额使用情况
// @Description 返回当前用户的存储用量、上限和可用空间
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} xerr.Response "配额使用情况"
// @Router /api/v1/users/me/usage [get]
func (h *UserHandler) GetUsage(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	usage, err := h.quotaService.GetUsage(c.Request.Context(), userID)
	if err != nil {
		logger.Error("GetUsage: 获取配额信息失败", zap.Uint64("userID", userID), zap.Error(err))
		xerr.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "获取配额信息失败")
		return
	}

	xerr.Success(c, http.StatusOK, "获取成功", usage)
}

// ChangeTier 变更订阅套餐
// @Summary 变更订阅套餐
// @Description 切换当前用户的订阅套餐，存储上限随套餐调整
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangeTierRequest true "目标套餐"
// @Success 200 {object} xerr.Response "变更成功"
// @Failure 400 {object} xerr.Response "未知的套餐"
// @Router /api/v1/users/me/tier [put]
func (h *UserHandler) ChangeTier(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req ChangeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	user, err := h.userService.ChangeSubscriptionTier(c.Request.Context(), userID, req.Tier)
	if err != nil {
		if errors.Is(err, xerr.ErrInvalidParams) {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "未知的订阅套餐")
		} else {
			logger.Error("ChangeTier: 变更套餐失败", zap.Uint64("userID", userID), zap.Error(err))
			xerr.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "变更套餐失败")
		}
		return
	}

	xerr.Success(c, http.StatusOK, "套餐变更成功", gin.H{"user": user})
}
