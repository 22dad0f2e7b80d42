package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/utils"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/services/sharing"
	"go.uber.org/zap"
)

type ShareHandler struct {
	shareService sharing.ShareService
	cfg          *config.Config
}

func NewShareHandler(shareService sharing.ShareService, cfg *config.Config) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
		cfg:          cfg,
	}
}

type CreateFileShareRequest struct {
	FileID         uint64     `json:"file_id" binding:"required"`
	LinkType       string     `json:"link_type" binding:"required"` // direct/email/code
	Password       *string    `json:"password"`
	ExpiresAt      *time.Time `json:"expires_at"`
	DownloadLimit  *uint64    `json:"download_limit"`
	RecipientEmail *string    `json:"recipient_email"`
	Message        *string    `json:"message"`
	TeamID         *uint64    `json:"team_id"`
}

type CreateFolderShareRequest struct {
	FolderID      uint64     `json:"folder_id" binding:"required"`
	LinkType      string     `json:"link_type" binding:"required"`
	Password      *string    `json:"password"`
	ExpiresAt     *time.Time `json:"expires_at"`
	DownloadLimit *uint64    `json:"download_limit"`
	TeamID        *uint64    `json:"team_id"`
}

type UpdateShareSettingsRequest struct {
	IsActive      *bool      `json:"is_active"`
	ExpiresAt     *time.Time `json:"expires_at"`
	DownloadLimit *uint64    `json:"download_limit"`
	Password      *string    `json:"password"`
}

type VerifyPasswordRequest struct {
	ShareToken string `json:"share_token" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type CheckAccessRequest struct {
	FileID     uint64  `json:"file_id" binding:"required"`
	ShareToken *string `json:"share_token"`
	ShareCode  *string `json:"share_code"`
	Password   *string `json:"password"`
}

// respondShareError 分享类接口的通用错误映射
func respondShareError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, xerr.ErrFileNotFound):
		xerr.Error(c, http.StatusNotFound, xerr.FileNotFoundCode, err.Error())
	case errors.Is(err, xerr.ErrFolderNotFound):
		xerr.Error(c, http.StatusNotFound, xerr.FolderNotFoundCode, err.Error())
	case errors.Is(err, xerr.ErrShareNotFound):
		xerr.Error(c, http.StatusNotFound, xerr.ShareNotFoundCode, err.Error())
	case errors.Is(err, xerr.ErrPermissionDenied):
		xerr.Error(c, http.StatusForbidden, xerr.PermissionDeniedCode, err.Error())
	case errors.Is(err, xerr.ErrFileStatusInvalid):
		xerr.Error(c, http.StatusBadRequest, xerr.FileStatusInvalidCode, err.Error())
	case errors.Is(err, xerr.ErrInvalidLinkType):
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidLinkTypeCode, err.Error())
	case errors.Is(err, xerr.ErrInvalidParams):
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, err.Error())
	case errors.Is(err, xerr.ErrShareAlreadyExists):
		xerr.Error(c, http.StatusConflict, xerr.ShareAlreadyExistsCode, err.Error())
	case errors.Is(err, xerr.ErrSharePasswordRequired):
		xerr.Error(c, http.StatusForbidden, xerr.SharePasswordRequiredCode, err.Error())
	case errors.Is(err, xerr.ErrExternalSharingDisabled):
		xerr.Error(c, http.StatusForbidden, xerr.ExternalSharingDisabled, err.Error())
	case errors.Is(err, xerr.ErrLinkLockRequiresPassword):
		xerr.Error(c, http.StatusForbidden, xerr.LinkLockRequiresPassword, err.Error())
	case errors.Is(err, xerr.ErrShareCodeExhausted):
		xerr.Error(c, http.StatusConflict, xerr.ShareCodeExhaustedCode, err.Error())
	default:
		logger.Error(op+": 操作失败", zap.Error(err))
		xerr.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "操作失败")
	}
}

// CreateFileShare 创建文件分享链接
// @Summary 创建文件分享链接
// @Description 为文件创建分享链接，类型为 direct/email/code；受团队分享策略约束
// @Tags 分享
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateFileShareRequest true "分享信息"
// @Success 200 {object} xerr.Response "分享创建成功"
// @Failure 403 {object} xerr.Response "团队策略拒绝（要求密码或禁止外部分享）"
// @Failure 409 {object} xerr.Response "文件已存在有效分享链接"
// @Router /api/v1/shares/files [post]
func (h *ShareHandler) CreateFileShare(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req CreateFileShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	result, err := h.shareService.CreateFileShare(c.Request.Context(), userID, req.FileID, req.LinkType, sharing.ShareOptions{
		Password:       req.Password,
		ExpiresAt:      req.ExpiresAt,
		DownloadLimit:  req.DownloadLimit,
		RecipientEmail: req.RecipientEmail,
		Message:        req.Message,
		TeamID:         req.TeamID,
	})
	if err != nil {
		respondShareError(c, "CreateFileShare", err)
		return
	}

	shareURL := fmt.Sprintf("%s/share/%s", h.cfg.Server.BaseURL, result.ShareToken)
	xerr.Success(c, http.StatusOK, "分享链接创建成功", gin.H{
		"link":       result.Link,
		"share_url":  shareURL,
		"share_code": result.ShareCode,
	})
}

// CreateFolderShare 创建文件夹分享
// @Summary 创建文件夹分享
// @Description 为文件夹创建分享，访问者看到访问时刻的实时文件列表；总是生成短分享码
// @Tags 分享
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateFolderShareRequest true "分享信息"
// @Success 200 {object} xerr.Response "分享创建成功"
// @Router /api/v1/shares/folders [post]
func (h *ShareHandler) CreateFolderShare(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req CreateFolderShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	result, err := h.shareService.CreateFolderShare(c.Request.Context(), userID, req.FolderID, req.LinkType, sharing.ShareOptions{
		Password:      req.Password,
		ExpiresAt:     req.ExpiresAt,
		DownloadLimit: req.DownloadLimit,
		TeamID:        req.TeamID,
	})
	if err != nil {
		respondShareError(c, "CreateFolderShare", err)
		return
	}

	shareURL := fmt.Sprintf("%s/share/%s", h.cfg.Server.BaseURL, result.ShareToken)
	xerr.Success(c, http.StatusOK, "文件夹分享创建成功", gin.H{
		"link":       result.Link,
		"share_url":  shareURL,
		"share_code": result.ShareCode,
	})
}

// UpdateSettings 更新分享链接设置
// @Summary 更新分享链接设置
// @Description 部分更新链接的激活状态、过期时间、下载上限和密码；切换锁定要求链接已设密码
// @Tags 分享
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param link_id path int true "分享链接ID"
// @Param request body UpdateShareSettingsRequest true "链接设置"
// @Success 200 {object} xerr.Response "更新成功"
// @Failure 403 {object} xerr.Response "未设密码的链接不能切换锁定"
// @Router /api/v1/shares/{link_id} [put]
func (h *ShareHandler) UpdateSettings(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	linkID, ok := pathID(c, "link_id")
	if !ok {
		return
	}

	var req UpdateShareSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	err := h.shareService.UpdateSharedLinkSettings(c.Request.Context(), userID, linkID, sharing.LinkSettingsPatch{
		IsActive:      req.IsActive,
		ExpiresAt:     req.ExpiresAt,
		DownloadLimit: req.DownloadLimit,
		Password:      req.Password,
	})
	if err != nil {
		respondShareError(c, "UpdateSettings", err)
		return
	}
	xerr.Success(c, http.StatusOK, "分享设置已更新", nil)
}

// Revoke 撤销分享链接
// @Summary 撤销分享链接
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param link_id path int true "分享链接ID"
// @Success 200 {object} xerr.Response "撤销成功"
// @Router /api/v1/shares/{link_id} [delete]
func (h *ShareHandler) Revoke(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	linkID, ok := pathID(c, "link_id")
	if !ok {
		return
	}

	if err := h.shareService.RevokeShare(c.Request.Context(), userID, linkID); err != nil {
		respondShareError(c, "Revoke", err)
		return
	}
	xerr.Success(c, http.StatusOK, "分享链接已撤销", nil)
}

// ListMyShares 列出我创建的分享
// @Summary 列出我创建的分享
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} xerr.Response "分享列表"
// @Router /api/v1/shares [get]
func (h *ShareHandler) ListMyShares(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	links, total, err := h.shareService.ListUserShares(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondShareError(c, "ListMyShares", err)
		return
	}

	xerr.Success(c, http.StatusOK, "获取成功", gin.H{
		"links": links,
		"total": total,
	})
}

// CheckAccess 访问判定
// @Summary 访问判定
// @Description 返回能否访问文件及原因，不产生下载记账
// @Tags 分享
// @Accept json
// @Produce json
// @Param request body CheckAccessRequest true "访问请求"
// @Success 200 {object} xerr.Response "判定结果"
// @Router /share/check-access [post]
func (h *ShareHandler) CheckAccess(c *gin.Context) {
	var req CheckAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	decision, err := h.shareService.CheckFileAccess(c.Request.Context(), sharing.AccessRequest{
		FileID:     req.FileID,
		UserID:     utils.OptionalUserIDFromContext(c),
		ShareToken: req.ShareToken,
		ShareCode:  req.ShareCode,
		Password:   req.Password,
	})
	if err != nil {
		respondShareError(c, "CheckAccess", err)
		return
	}

	xerr.Success(c, http.StatusOK, "判定完成", decision)
}

// VerifyPassword 校验分享密码
// @Summary 校验分享密码
// @Description 校验 token 对应分享链接的密码；未设密码的链接恒为通过。只做校验不放行下载
// @Tags 分享
// @Accept json
// @Produce json
// @Param request body VerifyPasswordRequest true "分享 token 和密码"
// @Success 200 {object} xerr.Response "校验结果"
// @Failure 404 {object} xerr.Response "分享链接不存在或已失效"
// @Router /share/verify-password [post]
func (h *ShareHandler) VerifyPassword(c *gin.Context) {
	var req VerifyPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	valid, err := h.shareService.ValidateSharePassword(c.Request.Context(), req.ShareToken, req.Password)
	if err != nil {
		respondShareError(c, "VerifyPassword", err)
		return
	}
	xerr.Success(c, http.StatusOK, "校验完成", gin.H{"valid": valid})
}

// AccessShare 访问分享
// @Summary 访问分享
// @Description 按 token 访问分享；文件分享通过判定后记录下载，文件夹分享返回实时文件列表
// @Tags 分享
// @Produce json
// @Param share_token path string true "分享 token"
// @Param password query string false "分享密码"
// @Success 200 {object} xerr.Response "分享内容"
// @Failure 403 {object} xerr.Response "拒绝访问，reason 说明原因"
// @Router /share/{share_token} [get]
func (h *ShareHandler) AccessShare(c *gin.Context) {
	token := c.Param("share_token")
	if token == "" {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "分享 token 不能为空")
		return
	}

	var password *string
	if p := c.Query("password"); p != "" {
		password = &p
	}

	link, err := h.shareService.GetShareByToken(c.Request.Context(), token)
	if err != nil {
		respondShareError(c, "AccessShare", err)
		return
	}

	userID := utils.OptionalUserIDFromContext(c)

	// 文件夹分享: 判定通过后返回实时列表
	if link.FolderID != nil {
		decision, err := h.shareService.CheckFolderAccess(c.Request.Context(), sharing.FolderAccessRequest{
			FolderID:   *link.FolderID,
			UserID:     userID,
			ShareToken: &token,
			Password:   password,
		})
		if err != nil {
			respondShareError(c, "AccessShare", err)
			return
		}
		if !decision.CanAccess {
			xerr.Error(c, http.StatusForbidden, xerr.ForbiddenCode, decision.Reason)
			return
		}

		files, err := h.shareService.SharedFolderListing(c.Request.Context(), *link.FolderID)
		if err != nil {
			respondShareError(c, "AccessShare", err)
			return
		}
		xerr.Success(c, http.StatusOK, "获取成功", gin.H{
			"link":  link,
			"files": files,
		})
		return
	}

	if link.FileID == nil {
		xerr.Error(c, http.StatusNotFound, xerr.ShareNotFoundCode, "分享链接不存在或已失效")
		return
	}

	decision, err := h.shareService.CheckFileAccess(c.Request.Context(), sharing.AccessRequest{
		FileID:     *link.FileID,
		UserID:     userID,
		ShareToken: &token,
		Password:   password,
	})
	if err != nil {
		respondShareError(c, "AccessShare", err)
		return
	}
	if !decision.CanAccess {
		xerr.Error(c, http.StatusForbidden, xerr.ForbiddenCode, decision.Reason)
		return
	}

	// 记录下载，计数在同一事务内原子递增
	err = h.shareService.RecordDownload(c.Request.Context(), *link.FileID, decision.LinkID,
		models.DownloadMethodShareLink, sharing.RequesterInfo{
			UserID:    userID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
	if err != nil {
		logger.Warn("AccessShare: 下载记账失败", zap.String("token", token), zap.Error(err))
	}

	xerr.Success(c, http.StatusOK, "获取成功", gin.H{
		"link": link,
		"file": link.File,
	})
}

// AccessByCode 按分享码访问
// @Summary 按分享码访问
// @Description 用短分享码访问文件或文件夹分享
// @Tags 分享
// @Produce json
// @Param code path string true "短分享码"
// @Param password query string false "分享密码"
// @Success 200 {object} xerr.Response "分享内容"
// @Router /share/code/{code} [get]
func (h *ShareHandler) AccessByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "分享码不能为空")
		return
	}

	var password *string
	if p := c.Query("password"); p != "" {
		password = &p
	}
	userID := utils.OptionalUserIDFromContext(c)

	resource, err := h.shareService.ResolveShareCode(c.Request.Context(), code)
	if err != nil {
		respondShareError(c, "AccessByCode", err)
		return
	}

	if resource.Folder != nil {
		decision, err := h.shareService.CheckFolderAccess(c.Request.Context(), sharing.FolderAccessRequest{
			FolderID:  resource.Folder.ID,
			UserID:    userID,
			ShareCode: &code,
			Password:  password,
		})
		if err != nil {
			respondShareError(c, "AccessByCode", err)
			return
		}
		if !decision.CanAccess {
			xerr.Error(c, http.StatusForbidden, xerr.ForbiddenCode, decision.Reason)
			return
		}
		files, err := h.shareService.SharedFolderListing(c.Request.Context(), resource.Folder.ID)
		if err != nil {
			respondShareError(c, "AccessByCode", err)
			return
		}
		xerr.Success(c, http.StatusOK, "获取成功", gin.H{
			"folder": resource.Folder,
			"files":  files,
		})
		return
	}

	decision, err := h.shareService.CheckFileAccess(c.Request.Context(), sharing.AccessRequest{
		FileID:    resource.File.ID,
		UserID:    userID,
		ShareCode: &code,
		Password:  password,
	})
	if err != nil {
		respondShareError(c, "AccessByCode", err)
		return
	}
	if !decision.CanAccess {
		xerr.Error(c, http.StatusForbidden, xerr.ForbiddenCode, decision.Reason)
		return
	}

	err = h.shareService.RecordDownload(c.Request.Context(), resource.File.ID, decision.LinkID,
		models.DownloadMethodShareCode, sharing.RequesterInfo{
			UserID:    userID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
	if err != nil {
		logger.Warn("AccessByCode: 下载记账失败", zap.String("code", code), zap.Error(err))
	}

	xerr.Success(c, http.StatusOK, "获取成功", gin.H{"file": resource.File})
}

// Stats 文件下载统计
// @Summary 文件下载统计
// @Description 返回时间窗口内的分桶下载计数和趋势
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param file_id path int true "文件ID"
// @Param window_hours query int false "统计窗口（小时），默认 24"
// @Param buckets query int false "分桶数，默认 24"
// @Success 200 {object} xerr.Response "下载统计"
// @Router /api/v1/shares/files/{file_id}/stats [get]
func (h *ShareHandler) Stats(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c, "file_id")
	if !ok {
		return
	}

	windowHours, _ := strconv.Atoi(c.DefaultQuery("window_hours", "24"))
	buckets, _ := strconv.Atoi(c.DefaultQuery("buckets", "24"))

	stats, err := h.shareService.DownloadStats(c.Request.Context(), userID, fileID,
		time.Duration(windowHours)*time.Hour, buckets)
	if err != nil {
		respondShareError(c, "Stats", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取成功", stats)
}
