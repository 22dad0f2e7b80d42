package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/utils"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/skieshare/skieshare/internal/services/audit"
	"github.com/skieshare/skieshare/internal/services/team"
	"go.uber.org/zap"
)

type TeamHandler struct {
	teamService   team.TeamService
	inviteService team.InviteService
	spaceService  team.SpaceService
	policyService team.PolicyService
	auditRepo     repositories.AuditLogRepository
	auditRec      audit.Recorder
}

func NewTeamHandler(
	teamService team.TeamService,
	inviteService team.InviteService,
	spaceService team.SpaceService,
	policyService team.PolicyService,
	auditRepo repositories.AuditLogRepository,
	auditRec audit.Recorder,
) *TeamHandler {
	return &TeamHandler{
		teamService:   teamService,
		inviteService: inviteService,
		spaceService:  spaceService,
		policyService: policyService,
		auditRepo:     auditRepo,
		auditRec:      auditRec,
	}
}

type CreateTeamRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

type SendInviteRequest struct {
	Email string          `json:"email" binding:"required,email"`
	Role  models.TeamRole `json:"role" binding:"required"`
}

type AcceptInviteRequest struct {
	InviteToken string `json:"invite_token" binding:"required"`
}

type UpdateMemberRequest struct {
	Role         *models.TeamRole     `json:"role"`
	Capabilities *models.Capabilities `json:"capabilities"`
}

type ShareFileToTeamRequest struct {
	FileID  uint64  `json:"file_id" binding:"required"`
	SpaceID *uint64 `json:"space_id"`
}

type RenameSpaceRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

type CreateSpaceRequest struct {
	Name          string  `json:"name" binding:"required,max=128"`
	Description   string  `json:"description"`
	ParentSpaceID *uint64 `json:"parent_space_id"`
}

type LogAuditEventRequest struct {
	Action     string         `json:"action" binding:"required,max=64"`
	EntityType string         `json:"entity_type" binding:"required,max=32"`
	EntityID   *uint64        `json:"entity_id"`
	Metadata   map[string]any `json:"metadata"`
}

type UpdatePolicyRequest struct {
	AllowExternalSharing     *bool   `json:"allow_external_sharing"`
	RequirePasswordForShares *bool   `json:"require_password_for_shares"`
	Require2FA               *bool   `json:"require_2fa"`
	DefaultShareExpiryDays   *int    `json:"default_share_expiry_days"`
	MaxFileSizeMB            *int    `json:"max_file_size_mb"`
	RetentionDays            *int    `json:"retention_days"`
	AutoJoinDomain           *string `json:"auto_join_domain"`
}

// respondTeamError 团队类接口的通用错误映射
func respondTeamError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, xerr.ErrTeamNotFound):
		xerr.Error(c, http.StatusNotFound, xerr.TeamNotFoundCode, err.Error())
	case errors.Is(err, xerr.ErrUserNotFound):
		xerr.Error(c, http.StatusNotFound, xerr.UserNotFoundCode, err.Error())
	case errors.Is(err, xerr.ErrFileNotFound):
		xerr.Error(c, http.StatusNotFound, xerr.FileNotFoundCode, err.Error())
	case errors.Is(err, xerr.ErrInviteNotFound):
		xerr.Error(c, http.StatusNotFound, xerr.InviteNotFoundCode, err.Error())
	case errors.Is(err, xerr.ErrSpaceNotFound):
		xerr.Error(c, http.StatusNotFound, xerr.SpaceNotFoundCode, err.Error())
	case errors.Is(err, xerr.ErrTeamShareNotFound):
		xerr.Error(c, http.StatusNotFound, xerr.TeamShareNotFound, err.Error())
	case errors.Is(err, xerr.ErrPermissionDenied):
		xerr.Error(c, http.StatusForbidden, xerr.PermissionDeniedCode, err.Error())
	case errors.Is(err, xerr.ErrInsufficientTeamRole):
		xerr.Error(c, http.StatusForbidden, xerr.InsufficientTeamRoleCode, err.Error())
	case errors.Is(err, xerr.ErrInvalidRole):
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidRoleCode, err.Error())
	case errors.Is(err, xerr.ErrInvalidParams):
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, err.Error())
	case errors.Is(err, xerr.ErrInviteNotPending):
		xerr.Error(c, http.StatusConflict, xerr.InviteNotPendingCode, err.Error())
	case errors.Is(err, xerr.ErrInviteExpired):
		xerr.Error(c, http.StatusUnprocessableEntity, xerr.InviteExpiredCode, err.Error())
	case errors.Is(err, xerr.ErrMemberAlreadyExists):
		xerr.Error(c, http.StatusConflict, xerr.MemberAlreadyExistsCode, err.Error())
	case errors.Is(err, xerr.ErrCannotRemoveAdmin):
		xerr.Error(c, http.StatusConflict, xerr.CannotRemoveAdminCode, err.Error())
	default:
		logger.Error(op+": 操作失败", zap.Error(err))
		xerr.Error(c, http.StatusInternalServerError, xerr.InternalServerErrorCode, "操作失败")
	}
}

// CreateTeam 创建团队
// @Summary 创建团队
// @Description 创建团队，创建者成为团队管理员并拥有 owner 角色
// @Tags 团队
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTeamRequest true "团队信息"
// @Success 200 {object} xerr.Response "创建成功"
// @Router /api/v1/teams [post]
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	newTeam, err := h.teamService.CreateTeam(c.Request.Context(), userID, req.Name)
	if err != nil {
		respondTeamError(c, "CreateTeam", err)
		return
	}
	xerr.Success(c, http.StatusOK, "团队创建成功", gin.H{"team": newTeam})
}

// ListMyTeams 列出我所属的团队
// @Summary 列出我所属的团队
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Success 200 {object} xerr.Response "团队列表"
// @Router /api/v1/teams [get]
func (h *TeamHandler) ListMyTeams(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	teams, err := h.teamService.ListUserTeams(c.Request.Context(), userID)
	if err != nil {
		respondTeamError(c, "ListMyTeams", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取成功", gin.H{"teams": teams})
}

// ListMembers 列出团队成员
// @Summary 列出团队成员
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Success 200 {object} xerr.Response "成员列表"
// @Router /api/v1/teams/{team_id}/members [get]
func (h *TeamHandler) ListMembers(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}

	members, err := h.teamService.ListMembers(c.Request.Context(), userID, teamID)
	if err != nil {
		respondTeamError(c, "ListMembers", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取成功", gin.H{"members": members})
}

// UpdateMember 更新团队成员
// @Summary 更新团队成员
// @Description 更新成员的角色或能力标志，要求操作者具备成员管理能力
// @Tags 团队
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Param user_id path int true "成员用户ID"
// @Param request body UpdateMemberRequest true "角色/能力"
// @Success 200 {object} xerr.Response "更新成功"
// @Router /api/v1/teams/{team_id}/members/{user_id} [put]
func (h *TeamHandler) UpdateMember(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}
	memberUserID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	err := h.teamService.UpdateMember(c.Request.Context(), actorID, teamID, memberUserID, team.MemberPatch{
		Role:         req.Role,
		Capabilities: req.Capabilities,
	})
	if err != nil {
		respondTeamError(c, "UpdateMember", err)
		return
	}
	xerr.Success(c, http.StatusOK, "成员更新成功", nil)
}

// RemoveMember 移除团队成员
// @Summary 移除团队成员
// @Description 移除成员；团队管理员不可被移除
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Param user_id path int true "成员用户ID"
// @Success 200 {object} xerr.Response "移除成功"
// @Failure 409 {object} xerr.Response "不能移除团队管理员"
// @Router /api/v1/teams/{team_id}/members/{user_id} [delete]
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}
	memberUserID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := h.teamService.RemoveMember(c.Request.Context(), actorID, teamID, memberUserID); err != nil {
		respondTeamError(c, "RemoveMember", err)
		return
	}
	xerr.Success(c, http.StatusOK, "成员移除成功", nil)
}

// SendInvite 发送团队邀请
// @Summary 发送团队邀请
// @Description 管理员向邮箱发出邀请，邀请7天内有效
// @Tags 团队
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Param request body SendInviteRequest true "邀请信息"
// @Success 200 {object} xerr.Response "邀请已发出"
// @Router /api/v1/teams/{team_id}/invites [post]
func (h *TeamHandler) SendInvite(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}

	var req SendInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	invite, err := h.inviteService.SendInvite(c.Request.Context(), actorID, teamID, req.Email, req.Role)
	if err != nil {
		respondTeamError(c, "SendInvite", err)
		return
	}
	xerr.Success(c, http.StatusOK, "邀请已发出", gin.H{"invite": invite})
}

// AcceptInvite 受理团队邀请
// @Summary 受理团队邀请
// @Description 用邀请 token 加入团队；同一邀请并发受理恰好成功一次
// @Tags 团队
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AcceptInviteRequest true "邀请 token"
// @Success 200 {object} xerr.Response "加入成功"
// @Failure 409 {object} xerr.Response "邀请已被处理"
// @Failure 422 {object} xerr.Response "邀请已过期"
// @Router /api/v1/invites/accept [post]
func (h *TeamHandler) AcceptInvite(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	member, err := h.inviteService.AcceptInvite(c.Request.Context(), userID, req.InviteToken)
	if err != nil {
		respondTeamError(c, "AcceptInvite", err)
		return
	}
	xerr.Success(c, http.StatusOK, "已加入团队", gin.H{"member": member})
}

// RevokeInvite 撤销团队邀请
// @Summary 撤销团队邀请
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Param invite_id path int true "邀请ID"
// @Success 200 {object} xerr.Response "撤销成功"
// @Router /api/v1/teams/{team_id}/invites/{invite_id} [delete]
func (h *TeamHandler) RevokeInvite(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	inviteID, ok := pathID(c, "invite_id")
	if !ok {
		return
	}

	if err := h.inviteService.RevokeInvite(c.Request.Context(), actorID, inviteID); err != nil {
		respondTeamError(c, "RevokeInvite", err)
		return
	}
	xerr.Success(c, http.StatusOK, "邀请已撤销", nil)
}

// ListInvites 列出团队邀请
// @Summary 列出团队邀请
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Success 200 {object} xerr.Response "邀请列表"
// @Router /api/v1/teams/{team_id}/invites [get]
func (h *TeamHandler) ListInvites(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}

	invites, err := h.inviteService.ListInvites(c.Request.Context(), actorID, teamID)
	if err != nil {
		respondTeamError(c, "ListInvites", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取成功", gin.H{"invites": invites})
}

// ShareFile 共享文件给团队
// @Summary 共享文件给团队
// @Description 把自己的文件共享给团队，可挂到指定空间
// @Tags 团队
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Param request body ShareFileToTeamRequest true "文件信息"
// @Success 200 {object} xerr.Response "共享成功"
// @Router /api/v1/teams/{team_id}/files [post]
func (h *TeamHandler) ShareFile(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}

	var req ShareFileToTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	share, err := h.teamService.ShareFileToTeam(c.Request.Context(), actorID, teamID, req.FileID, req.SpaceID)
	if err != nil {
		respondTeamError(c, "ShareFile", err)
		return
	}
	xerr.Success(c, http.StatusOK, "文件已共享给团队", gin.H{"share": share})
}

// UnshareFile 取消团队文件共享
// @Summary 取消团队文件共享
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Param file_id path int true "文件ID"
// @Success 200 {object} xerr.Response "取消成功"
// @Router /api/v1/teams/{team_id}/files/{file_id} [delete]
func (h *TeamHandler) UnshareFile(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}
	fileID, ok := pathID(c, "file_id")
	if !ok {
		return
	}

	if err := h.teamService.UnshareFileFromTeam(c.Request.Context(), actorID, teamID, fileID); err != nil {
		respondTeamError(c, "UnshareFile", err)
		return
	}
	xerr.Success(c, http.StatusOK, "已取消共享", nil)
}

// ListFiles 列出团队共享文件
// @Summary 列出团队共享文件
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Param space_id query int false "按空间过滤"
// @Success 200 {object} xerr.Response "文件列表"
// @Router /api/v1/teams/{team_id}/files [get]
func (h *TeamHandler) ListFiles(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}

	var spaceID *uint64
	if raw := c.Query("space_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "无效的空间ID")
			return
		}
		spaceID = &id
	}

	shares, err := h.teamService.ListTeamFiles(c.Request.Context(), actorID, teamID, spaceID)
	if err != nil {
		respondTeamError(c, "ListFiles", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取成功", gin.H{"files": shares})
}

// CreateSpace 创建团队空间
// @Summary 创建团队空间
// @Tags 团队
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Param request body CreateSpaceRequest true "空间信息"
// @Success 200 {object} xerr.Response "创建成功"
// @Router /api/v1/teams/{team_id}/spaces [post]
func (h *TeamHandler) CreateSpace(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}

	var req CreateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	space, err := h.spaceService.CreateSpace(c.Request.Context(), actorID, teamID, req.Name, req.Description, req.ParentSpaceID)
	if err != nil {
		respondTeamError(c, "CreateSpace", err)
		return
	}
	xerr.Success(c, http.StatusOK, "空间创建成功", gin.H{"space": space})
}

// ListSpaces 列出团队空间
// @Summary 列出团队空间
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Param include_archived query bool false "是否包含已归档空间"
// @Success 200 {object} xerr.Response "空间列表"
// @Router /api/v1/teams/{team_id}/spaces [get]
func (h *TeamHandler) ListSpaces(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}

	includeArchived := c.Query("include_archived") == "true"
	spaces, err := h.spaceService.ListSpaces(c.Request.Context(), actorID, teamID, includeArchived)
	if err != nil {
		respondTeamError(c, "ListSpaces", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取成功", gin.H{"spaces": spaces})
}

// GetSpace 查看团队空间
// @Summary 查看团队空间
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param space_id path int true "空间ID"
// @Success 200 {object} xerr.Response "空间详情"
// @Router /api/v1/spaces/{space_id} [get]
func (h *TeamHandler) GetSpace(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	spaceID, ok := pathID(c, "space_id")
	if !ok {
		return
	}

	space, err := h.spaceService.GetSpace(c.Request.Context(), actorID, spaceID)
	if err != nil {
		respondTeamError(c, "GetSpace", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取成功", gin.H{"space": space})
}

// RenameSpace 重命名团队空间
// @Summary 重命名团队空间
// @Tags 团队
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param space_id path int true "空间ID"
// @Param request body RenameSpaceRequest true "新名称"
// @Success 200 {object} xerr.Response "重命名成功"
// @Router /api/v1/spaces/{space_id}/rename [put]
func (h *TeamHandler) RenameSpace(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	spaceID, ok := pathID(c, "space_id")
	if !ok {
		return
	}

	var req RenameSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	if err := h.spaceService.RenameSpace(c.Request.Context(), actorID, spaceID, req.Name); err != nil {
		respondTeamError(c, "RenameSpace", err)
		return
	}
	xerr.Success(c, http.StatusOK, "空间重命名成功", nil)
}

// ArchiveSpace 归档团队空间
// @Summary 归档团队空间
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param space_id path int true "空间ID"
// @Success 200 {object} xerr.Response "归档成功"
// @Router /api/v1/spaces/{space_id}/archive [post]
func (h *TeamHandler) ArchiveSpace(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	spaceID, ok := pathID(c, "space_id")
	if !ok {
		return
	}

	if err := h.spaceService.ArchiveSpace(c.Request.Context(), actorID, spaceID); err != nil {
		respondTeamError(c, "ArchiveSpace", err)
		return
	}
	xerr.Success(c, http.StatusOK, "空间已归档", nil)
}

// UnarchiveSpace 恢复已归档的团队空间
// @Summary 恢复已归档的团队空间
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param space_id path int true "空间ID"
// @Success 200 {object} xerr.Response "恢复成功"
// @Router /api/v1/spaces/{space_id}/unarchive [post]
func (h *TeamHandler) UnarchiveSpace(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	spaceID, ok := pathID(c, "space_id")
	if !ok {
		return
	}

	if err := h.spaceService.UnarchiveSpace(c.Request.Context(), actorID, spaceID); err != nil {
		respondTeamError(c, "UnarchiveSpace", err)
		return
	}
	xerr.Success(c, http.StatusOK, "空间已恢复", nil)
}

// GetPolicy 查看团队策略
// @Summary 查看团队策略
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Success 200 {object} xerr.Response "团队策略"
// @Router /api/v1/teams/{team_id}/policy [get]
func (h *TeamHandler) GetPolicy(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}

	policy, err := h.policyService.GetPolicy(c.Request.Context(), actorID, teamID)
	if err != nil {
		respondTeamError(c, "GetPolicy", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取成功", gin.H{"policy": policy})
}

// UpdatePolicy 更新团队策略
// @Summary 更新团队策略
// @Description 管理员更新团队策略，变更写入审计
// @Tags 团队
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Param request body UpdatePolicyRequest true "策略变更"
// @Success 200 {object} xerr.Response "更新成功"
// @Router /api/v1/teams/{team_id}/policy [put]
func (h *TeamHandler) UpdatePolicy(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}

	var req UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	policy, err := h.policyService.UpdatePolicy(c.Request.Context(), actorID, teamID, team.PolicyPatch{
		AllowExternalSharing:     req.AllowExternalSharing,
		RequirePasswordForShares: req.RequirePasswordForShares,
		Require2FA:               req.Require2FA,
		DefaultShareExpiryDays:   req.DefaultShareExpiryDays,
		MaxFileSizeMB:            req.MaxFileSizeMB,
		RetentionDays:            req.RetentionDays,
		AutoJoinDomain:           req.AutoJoinDomain,
	})
	if err != nil {
		respondTeamError(c, "UpdatePolicy", err)
		return
	}
	xerr.Success(c, http.StatusOK, "策略已更新", gin.H{"policy": policy})
}

// LogAuditEvent 追加审计记录
// @Summary 追加审计记录
// @Description 团队成员同步追加一条审计记录并返回记录ID
// @Tags 团队
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Param request body LogAuditEventRequest true "审计事件"
// @Success 200 {object} xerr.Response "记录ID"
// @Failure 403 {object} xerr.Response "不是团队成员"
// @Router /api/v1/teams/{team_id}/audit-logs [post]
func (h *TeamHandler) LogAuditEvent(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}

	var req LogAuditEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "请求参数解析失败: "+err.Error())
		return
	}

	isMember, err := h.teamService.UserIsTeamMember(c.Request.Context(), teamID, actorID)
	if err != nil {
		respondTeamError(c, "LogAuditEvent", err)
		return
	}
	if !isMember {
		xerr.Error(c, http.StatusForbidden, xerr.PermissionDeniedCode, "您没有操作此资源的权限")
		return
	}

	logID, err := h.auditRec.Log(c.Request.Context(), teamID, actorID,
		req.Action, req.EntityType, req.EntityID, req.Metadata)
	if err != nil {
		respondTeamError(c, "LogAuditEvent", err)
		return
	}
	xerr.Success(c, http.StatusOK, "审计记录已写入", gin.H{"log_id": logID})
}

// GetAuditLogs 查看团队审计日志
// @Summary 查看团队审计日志
// @Tags 团队
// @Produce json
// @Security BearerAuth
// @Param team_id path int true "团队ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} xerr.Response "审计日志"
// @Router /api/v1/teams/{team_id}/audit-logs [get]
func (h *TeamHandler) GetAuditLogs(c *gin.Context) {
	actorID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "team_id")
	if !ok {
		return
	}

	isAdmin, err := h.teamService.UserIsTeamAdmin(c.Request.Context(), teamID, actorID)
	if err != nil {
		respondTeamError(c, "GetAuditLogs", err)
		return
	}
	if !isAdmin {
		xerr.Error(c, http.StatusForbidden, xerr.PermissionDeniedCode, "您没有操作此资源的权限")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	logs, total, err := h.auditRepo.ListByTeam(c.Request.Context(), teamID, page, pageSize)
	if err != nil {
		respondTeamError(c, "GetAuditLogs", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取成功", gin.H{
		"logs":  logs,
		"total": total,
	})
}
