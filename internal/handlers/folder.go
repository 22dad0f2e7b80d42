package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skieshare/skieshare/internal/pkg/utils"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/services/explorer"
)

type FolderHandler struct {
	folderService explorer.FolderService
}

func NewFolderHandler(folderService explorer.FolderService) *FolderHandler {
	return &FolderHandler{folderService: folderService}
}

type CreateFolderRequest struct {
	Name           string  `json:"name" binding:"required"`
	ParentFolderID *uint64 `json:"parent_folder_id"`
}

type RenameFolderRequest struct {
	NewName string `json:"new_name" binding:"required"`
}

type MoveFolderRequest struct {
	TargetFolderID *uint64 `json:"target_folder_id"`
}

// Create 创建文件夹
// @Summary 创建文件夹
// @Tags 文件夹
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateFolderRequest true "文件夹信息"
// @Success 200 {object} xerr.Response "创建成功"
// @Router /api/v1/folders [post]
func (h *FolderHandler) Create(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	folder, err := h.folderService.CreateFolder(c.Request.Context(), userID, req.Name, req.ParentFolderID)
	if err != nil {
		respondFileError(c, "CreateFolder", err)
		return
	}
	xerr.Success(c, http.StatusOK, "文件夹创建成功", gin.H{"folder": folder})
}

// Rename 重命名文件夹
// @Summary 重命名文件夹
// @Tags 文件夹
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param folder_id path int true "文件夹ID"
// @Param request body RenameFolderRequest true "新名称"
// @Success 200 {object} xerr.Response "重命名成功"
// @Router /api/v1/folders/{folder_id}/rename [put]
func (h *FolderHandler) Rename(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	folderID, ok := pathID(c, "folder_id")
	if !ok {
		return
	}

	var req RenameFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	if err := h.folderService.RenameFolder(c.Request.Context(), userID, folderID, req.NewName); err != nil {
		respondFileError(c, "RenameFolder", err)
		return
	}
	xerr.Success(c, http.StatusOK, "重命名成功", nil)
}

// Move 移动文件夹
// @Summary 移动文件夹
// @Description 移动文件夹到目标位置，目标不能是自身或其后代
// @Tags 文件夹
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param folder_id path int true "文件夹ID"
// @Param request body MoveFolderRequest true "目标文件夹"
// @Success 200 {object} xerr.Response "移动成功"
// @Failure 400 {object} xerr.Response "目标是自身或其后代"
// @Router /api/v1/folders/{folder_id}/move [put]
func (h *FolderHandler) Move(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	folderID, ok := pathID(c, "folder_id")
	if !ok {
		return
	}

	var req MoveFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	if err := h.folderService.MoveFolder(c.Request.Context(), userID, folderID, req.TargetFolderID); err != nil {
		respondFileError(c, "MoveFolder", err)
		return
	}
	xerr.Success(c, http.StatusOK, "移动成功", nil)
}

// Delete 删除文件夹
// @Summary 删除文件夹
// @Description 删除空文件夹，含子项时拒绝
// @Tags 文件夹
// @Produce json
// @Security BearerAuth
// @Param folder_id path int true "文件夹ID"
// @Success 200 {object} xerr.Response "删除成功"
// @Router /api/v1/folders/{folder_id} [delete]
func (h *FolderHandler) Delete(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	folderID, ok := pathID(c, "folder_id")
	if !ok {
		return
	}

	if err := h.folderService.DeleteFolder(c.Request.Context(), userID, folderID); err != nil {
		respondFileError(c, "DeleteFolder", err)
		return
	}
	xerr.Success(c, http.StatusOK, "文件夹删除成功", nil)
}
