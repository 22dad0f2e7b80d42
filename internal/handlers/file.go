package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/utils"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/services/explorer"
	"go.uber.org/zap"
)

type FileHandler struct {
	fileService   explorer.FileService
	folderService explorer.FolderService
	searchService explorer.SearchService
}

func NewFileHandler(fileService explorer.FileService, folderService explorer.FolderService, searchService explorer.SearchService) *FileHandler {
	return &FileHandler{
		fileService:   fileService,
		folderService: folderService,
		searchService: searchService,
	}
}

type MoveFileRequest struct {
	TargetFolderID *uint64 `json:"target_folder_id"` // null 表示移动到根目录
}

type RenameFileRequest struct {
	NewName string `json:"new_name" binding:"required"`
}

type ToggleLockRequest struct {
	TeamID   *uint64 `json:"team_id"`
	Password *string `json:"password"`
}

type FileSettingsRequest struct {
	DownloadLimit *uint64    `json:"download_limit"`
	ExpiresAt     *time.Time `json:"expires_at"`
	Password      *string    `json:"password"`
}

func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "无效的路径参数: "+name)
		return 0, false
	}
	return id, true
}

// respondFileError 文件类接口的通用错误映射
func respondFileError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, xerr.ErrFileNotFound):
		xerr.Error(c, http.StatusNotFound, xerr.FileNotFoundCode, err.Error())
	case errors.Is(err, xerr.ErrFolderNotFound):
		xerr.Error(c, http.StatusNotFound, xerr.FolderNotFoundCode, err.Error())
	case errors.Is(err, xerr.ErrPermissionDenied):
		xerr.Error(c, http.StatusForbidden, xerr.PermissionDeniedCode, err.Error())
	case errors.Is(err, xerr.ErrTeamShareNotFound):
		xerr.Error(c, http.StatusNotFound, xerr.TeamShareNotFound, err.Error())
	case errors.Is(err, xerr.ErrFileNameInvalid):
		xerr.Error(c, http.StatusBadRequest, xerr.FileNameInvalidCode, err.Error())
	case errors.Is(err, xerr.ErrFileStatusInvalid):
		xerr.Error(c, http.StatusBadRequest, xerr.FileStatusInvalidCode, err.Error())
	case errors.Is(err, xerr.ErrCannotMoveIntoSubtree):
		xerr.Error(c, http.StatusBadRequest, xerr.CannotMoveIntoSubtreeCode, err.Error())
	case errors.Is(err, xerr.ErrQuotaExceeded):
		xerr.Error(c, http.StatusUnprocessableEntity, xerr.QuotaExceededCode, err.Error())
	case errors.Is(err, xerr.ErrDailyLimitExceeded):
		xerr.Error(c, http.StatusUnprocessableEntity, xerr.DailyLimitExceededCode, err.Error())
	default:
		logger.Error(op+": 操作失败", zap.Error(err))
		xerr.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "操作失败")
	}
}

// Upload 上传文件
// @Summary 上传文件
// @Description 上传文件，受存储配额和每日上传次数限制
// @Tags 文件
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "文件内容"
// @Param parent_folder_id formData int false "父文件夹ID，缺省为根目录"
// @Success 200 {object} xerr.Response "上传成功"
// @Failure 422 {object} xerr.Response "存储配额不足或每日上传次数已用完"
// @Router /api/v1/files/upload [post]
func (h *FileHandler) Upload(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "缺少上传文件: "+err.Error())
		return
	}

	var parentFolderID *uint64
	if raw := c.PostForm("parent_folder_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "无效的父文件夹ID")
			return
		}
		parentFolderID = &id
	}

	src, err := fileHeader.Open()
	if err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "读取上传文件失败: "+err.Error())
		return
	}
	defer src.Close()

	var mimeType *string
	if ct := fileHeader.Header.Get("Content-Type"); ct != "" {
		mimeType = &ct
	}

	file, err := h.fileService.Upload(c.Request.Context(), userID, explorer.UploadInput{
		FileName:       fileHeader.Filename,
		Size:           uint64(fileHeader.Size),
		MimeType:       mimeType,
		ParentFolderID: parentFolderID,
		Reader:         src,
	})
	if err != nil {
		respondFileError(c, "Upload", err)
		return
	}

	xerr.Success(c, http.StatusOK, "文件上传成功", gin.H{"file": file})
}

// List 列出目录内容
// @Summary 列出目录内容
// @Description 列出指定文件夹（缺省根目录）下的子文件夹和文件
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param folder_id query int false "文件夹ID"
// @Success 200 {object} xerr.Response "目录内容"
// @Router /api/v1/files [get]
func (h *FileHandler) List(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var parentFolderID *uint64
	if raw := c.Query("folder_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "无效的文件夹ID")
			return
		}
		parentFolderID = &id
	}

	folders, files, err := h.fileService.List(c.Request.Context(), userID, parentFolderID)
	if err != nil {
		respondFileError(c, "List", err)
		return
	}

	xerr.Success(c, http.StatusOK, "获取成功", gin.H{
		"folders": folders,
		"files":   files,
	})
}

// Download 获取下载链接
// @Summary 获取下载链接
// @Description 所有者下载入口，返回限时预签名 URL 并记录下载
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param file_id path int true "文件ID"
// @Success 200 {object} xerr.Response "下载链接"
// @Router /api/v1/files/{file_id}/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c, "file_id")
	if !ok {
		return
	}

	url, err := h.fileService.DownloadURL(c.Request.Context(), userID, fileID)
	if err != nil {
		respondFileError(c, "Download", err)
		return
	}

	xerr.Success(c, http.StatusOK, "获取下载链接成功", gin.H{"download_url": url})
}

// Rename 重命名文件
// @Summary 重命名文件
// @Tags 文件
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param file_id path int true "文件ID"
// @Param request body RenameFileRequest true "新文件名"
// @Success 200 {object} xerr.Response "重命名成功"
// @Router /api/v1/files/{file_id}/rename [put]
func (h *FileHandler) Rename(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c, "file_id")
	if !ok {
		return
	}

	var req RenameFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	if err := h.fileService.Rename(c.Request.Context(), userID, fileID, req.NewName); err != nil {
		respondFileError(c, "Rename", err)
		return
	}
	xerr.Success(c, http.StatusOK, "重命名成功", nil)
}

// Move 移动文件
// @Summary 移动文件
// @Tags 文件
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param file_id path int true "文件ID"
// @Param request body MoveFileRequest true "目标文件夹"
// @Success 200 {object} xerr.Response "移动成功"
// @Router /api/v1/files/{file_id}/move [put]
func (h *FileHandler) Move(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c, "file_id")
	if !ok {
		return
	}

	var req MoveFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	if err := h.fileService.Move(c.Request.Context(), userID, fileID, req.TargetFolderID); err != nil {
		respondFileError(c, "Move", err)
		return
	}
	xerr.Success(c, http.StatusOK, "移动成功", nil)
}

// Delete 删除文件（移入回收站）
// @Summary 删除文件
// @Description 把文件移入回收站，配额占用保留
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param file_id path int true "文件ID"
// @Success 200 {object} xerr.Response "删除成功"
// @Router /api/v1/files/{file_id} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c, "file_id")
	if !ok {
		return
	}

	if err := h.fileService.SoftDelete(c.Request.Context(), userID, fileID); err != nil {
		respondFileError(c, "Delete", err)
		return
	}
	xerr.Success(c, http.StatusOK, "文件已移入回收站", nil)
}

// Restore 恢复回收站文件
// @Summary 恢复回收站文件
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param file_id path int true "文件ID"
// @Success 200 {object} xerr.Response "恢复成功"
// @Router /api/v1/files/{file_id}/restore [post]
func (h *FileHandler) Restore(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c, "file_id")
	if !ok {
		return
	}

	if err := h.fileService.Restore(c.Request.Context(), userID, fileID); err != nil {
		respondFileError(c, "Restore", err)
		return
	}
	xerr.Success(c, http.StatusOK, "文件恢复成功", nil)
}

// PermanentDelete 彻底删除文件
// @Summary 彻底删除文件
// @Description 删除文件记录、释放配额并清理对象存储
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param file_id path int true "文件ID"
// @Success 200 {object} xerr.Response "删除成功"
// @Router /api/v1/files/{file_id}/permanent [delete]
func (h *FileHandler) PermanentDelete(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c, "file_id")
	if !ok {
		return
	}

	if err := h.fileService.PermanentDelete(c.Request.Context(), userID, fileID); err != nil {
		respondFileError(c, "PermanentDelete", err)
		return
	}
	xerr.Success(c, http.StatusOK, "文件已彻底删除", nil)
}

// ToggleLock 切换文件锁定状态
// @Summary 切换文件锁定状态
// @Description 所有者或具备编辑能力的团队成员可切换；可同时设置文件密码
// @Tags 文件
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param file_id path int true "文件ID"
// @Param request body ToggleLockRequest false "团队上下文和可选密码"
// @Success 200 {object} xerr.Response "切换成功"
// @Failure 403 {object} xerr.Response "权限不足"
// @Router /api/v1/files/{file_id}/lock [put]
func (h *FileHandler) ToggleLock(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c, "file_id")
	if !ok {
		return
	}

	// body 可选，未提供时按缺省处理
	var req ToggleLockRequest
	_ = c.ShouldBindJSON(&req)

	file, err := h.fileService.ToggleLock(c.Request.Context(), userID, fileID, req.TeamID, req.Password)
	if err != nil {
		respondFileError(c, "ToggleLock", err)
		return
	}
	xerr.Success(c, http.StatusOK, "锁定状态已切换", gin.H{"file": file})
}

// TogglePublic 切换文件公开状态
// @Summary 切换文件公开状态
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param file_id path int true "文件ID"
// @Success 200 {object} xerr.Response "切换成功"
// @Router /api/v1/files/{file_id}/public [put]
func (h *FileHandler) TogglePublic(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c, "file_id")
	if !ok {
		return
	}

	file, err := h.fileService.TogglePublic(c.Request.Context(), userID, fileID)
	if err != nil {
		respondFileError(c, "TogglePublic", err)
		return
	}
	xerr.Success(c, http.StatusOK, "公开状态已切换", gin.H{"file": file})
}

// UpdateSettings 更新文件设置
// @Summary 更新文件设置
// @Description 更新文件的下载上限、过期时间和密码
// @Tags 文件
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param file_id path int true "文件ID"
// @Param request body FileSettingsRequest true "文件设置"
// @Success 200 {object} xerr.Response "更新成功"
// @Router /api/v1/files/{file_id}/settings [put]
func (h *FileHandler) UpdateSettings(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c, "file_id")
	if !ok {
		return
	}

	var req FileSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	err := h.fileService.UpdateSettings(c.Request.Context(), userID, fileID, explorer.FilePatch{
		DownloadLimit: req.DownloadLimit,
		ExpiresAt:     req.ExpiresAt,
		Password:      req.Password,
	})
	if err != nil {
		respondFileError(c, "UpdateSettings", err)
		return
	}
	xerr.Success(c, http.StatusOK, "文件设置已更新", nil)
}

// Search 按文件名搜索
// @Summary 按文件名搜索
// @Description 在当前用户的文件内按文件名模糊搜索
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param q query string true "搜索关键词"
// @Param limit query int false "返回条数上限"
// @Success 200 {object} xerr.Response "搜索结果"
// @Router /api/v1/files/search [get]
func (h *FileHandler) Search(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	keyword := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if h.searchService == nil {
		xerr.Error(c, http.StatusServiceUnavailable, xerr.SearchErrorCode, "搜索服务未启用")
		return
	}

	docs, err := h.searchService.SearchFiles(c.Request.Context(), userID, keyword, limit)
	if err != nil {
		if errors.Is(err, xerr.ErrInvalidParams) {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "搜索关键词不能为空")
			return
		}
		logger.Error("Search: 搜索失败", zap.String("keyword", keyword), zap.Error(err))
		xerr.Error(c, http.StatusInternalServerError, xerr.SearchErrorCode, "搜索失败")
		return
	}

	xerr.Success(c, http.StatusOK, "搜索成功", gin.H{"results": docs})
}
