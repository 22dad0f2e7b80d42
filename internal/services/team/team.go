package team

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/cache"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/skieshare/skieshare/internal/services/audit"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FileOp 团队文件操作类别，映射到成员能力标志
type FileOp string

const (
	FileOpView  FileOp = "view"
	FileOpEdit  FileOp = "edit"
	FileOpShare FileOp = "share"
)

// MemberPatch 成员更新的部分字段
type MemberPatch struct {
	Role         *models.TeamRole
	Capabilities *models.Capabilities
}

// TeamService 定义了团队协作需要实现的接口
type TeamService interface {
	// CreateTeam 创建团队：团队行、默认策略、创建者的 owner 成员行同事务写入
	CreateTeam(ctx context.Context, adminID uint64, name string) (*models.Team, error)
	GetTeam(ctx context.Context, teamID uint64) (*models.Team, error)
	ListUserTeams(ctx context.Context, userID uint64) ([]models.Team, error)

	// UserIsTeamMember 判断用户是否为团队成员，团队 admin_id 恒为成员
	UserIsTeamMember(ctx context.Context, teamID, userID uint64) (bool, error)
	// UserIsTeamAdmin 判断用户是否具备管理员身份（admin_id 或 admin/owner 角色）
	UserIsTeamAdmin(ctx context.Context, teamID, userID uint64) (bool, error)
	// UserHasTeamRole 判断用户角色等级是否不低于 required
	UserHasTeamRole(ctx context.Context, teamID, userID uint64, required models.TeamRole) (bool, error)
	// MemberCapabilities 返回用户在团队内的能力标志
	// admin_id 及 admin/owner 角色恒为全量，不受成员行上的覆盖影响
	MemberCapabilities(ctx context.Context, teamID, userID uint64) (*models.Capabilities, error)

	ListMembers(ctx context.Context, actorID, teamID uint64) ([]models.TeamMember, error)
	// UpdateMember 更新成员角色/能力，要求操作者具备成员管理能力
	UpdateMember(ctx context.Context, actorID, teamID, memberUserID uint64, patch MemberPatch) error
	// RemoveMember 移除成员，admin_id 对应的用户不可被移除
	RemoveMember(ctx context.Context, actorID, teamID, memberUserID uint64) error

	// ShareFileToTeam 把文件共享给团队，要求操作者拥有文件且具备分享能力
	ShareFileToTeam(ctx context.Context, actorID, teamID, fileID uint64, spaceID *uint64) (*models.TeamFileShare, error)
	UnshareFileFromTeam(ctx context.Context, actorID, teamID, fileID uint64) error
	ListTeamFiles(ctx context.Context, actorID, teamID uint64, spaceID *uint64) ([]models.TeamFileShare, error)
	// AuthorizeFileOp 判定团队成员能否对团队共享文件执行 op
	// 检查的是成员行上存储的能力标志，不按角色重算；管理员直通
	AuthorizeFileOp(ctx context.Context, teamID, userID, fileID uint64, op FileOp) error
}

type teamService struct {
	teamRepo   repositories.TeamRepository
	policyRepo repositories.TeamPolicyRepository
	fileRepo   repositories.FileRepository
	userRepo   repositories.UserRepository
	tm         repositories.TransactionManager
	cache      cache.Cache // 可为空
	auditRec   audit.Recorder
}

var _ TeamService = (*teamService)(nil)

// NewTeamService 创建一个新的 TeamService 实例
func NewTeamService(
	teamRepo repositories.TeamRepository,
	policyRepo repositories.TeamPolicyRepository,
	fileRepo repositories.FileRepository,
	userRepo repositories.UserRepository,
	tm repositories.TransactionManager,
	cacheService cache.Cache,
	auditRec audit.Recorder,
) TeamService {
	return &teamService{
		teamRepo:   teamRepo,
		policyRepo: policyRepo,
		fileRepo:   fileRepo,
		userRepo:   userRepo,
		tm:         tm,
		cache:      cacheService,
		auditRec:   auditRec,
	}
}

// CreateTeam 创建团队
func (s *teamService) CreateTeam(ctx context.Context, adminID uint64, name string) (*models.Team, error) {
	if name == "" {
		return nil, xerr.ErrInvalidParams
	}

	team := &models.Team{
		UUID:    uuid.New().String(),
		AdminID: adminID,
		Name:    name,
	}

	err := s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.teamRepo.CreateTx(tx, team); err != nil {
			return err
		}
		if err := s.policyRepo.CreateTx(tx, models.DefaultTeamPolicy(team.ID)); err != nil {
			return err
		}
		owner := &models.TeamMember{
			TeamID: team.ID,
			UserID: adminID,
			Role:   models.RoleOwner,
		}
		owner.ApplyCapabilities(models.DefaultCapabilities(models.RoleOwner))
		return s.teamRepo.AddMemberTx(tx, owner)
	})
	if err != nil {
		logger.Error("CreateTeam: 创建团队失败", zap.Uint64("adminID", adminID), zap.Error(err))
		return nil, fmt.Errorf("创建团队失败: %w", err)
	}

	logger.Info("CreateTeam: 团队创建成功", zap.Uint64("teamID", team.ID), zap.Uint64("adminID", adminID))
	return team, nil
}

func (s *teamService) GetTeam(ctx context.Context, teamID uint64) (*models.Team, error) {
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("查询团队失败: %w", err)
	}
	if team == nil {
		return nil, xerr.ErrTeamNotFound
	}
	return team, nil
}

func (s *teamService) ListUserTeams(ctx context.Context, userID uint64) ([]models.Team, error) {
	return s.teamRepo.ListByUserID(ctx, userID)
}

func (s *teamService) UserIsTeamMember(ctx context.Context, teamID, userID uint64) (bool, error) {
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return false, err
	}
	if team == nil {
		return false, xerr.ErrTeamNotFound
	}
	if team.AdminID == userID {
		return true, nil
	}
	member, err := s.teamRepo.FindMember(ctx, teamID, userID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}

func (s *teamService) UserIsTeamAdmin(ctx context.Context, teamID, userID uint64) (bool, error) {
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return false, err
	}
	if team == nil {
		return false, xerr.ErrTeamNotFound
	}
	if team.AdminID == userID {
		return true, nil
	}
	member, err := s.teamRepo.FindMember(ctx, teamID, userID)
	if err != nil {
		return false, err
	}
	return member != nil && member.Role.AtLeast(models.RoleAdmin), nil
}

// UserHasTeamRole 角色等级比较
// admin_id 对应的用户视为 owner，即便其成员行缺失或角色较低
func (s *teamService) UserHasTeamRole(ctx context.Context, teamID, userID uint64, required models.TeamRole) (bool, error) {
	if !required.Valid() {
		return false, xerr.ErrInvalidRole
	}
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return false, err
	}
	if team == nil {
		return false, xerr.ErrTeamNotFound
	}
	if team.AdminID == userID {
		return models.RoleOwner.AtLeast(required), nil
	}
	member, err := s.teamRepo.FindMember(ctx, teamID, userID)
	if err != nil {
		return false, err
	}
	if member == nil {
		return false, nil
	}
	return member.Role.AtLeast(required), nil
}

func (s *teamService) MemberCapabilities(ctx context.Context, teamID, userID uint64) (*models.Capabilities, error) {
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, xerr.ErrTeamNotFound
	}
	if team.AdminID == userID {
		caps := models.DefaultCapabilities(models.RoleOwner)
		return &caps, nil
	}
	member, err := s.teamRepo.FindMember(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, xerr.ErrPermissionDenied
	}
	// admin/owner 角色成员无视成员行上的粒度标志，与 admin_id 同等直通
	if member.Role.AtLeast(models.RoleAdmin) {
		caps := models.DefaultCapabilities(member.Role)
		return &caps, nil
	}
	caps := member.Capabilities()
	return &caps, nil
}

func (s *teamService) ListMembers(ctx context.Context, actorID, teamID uint64) ([]models.TeamMember, error) {
	isMember, err := s.UserIsTeamMember(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, xerr.ErrPermissionDenied
	}
	return s.teamRepo.ListMembers(ctx, teamID)
}

// UpdateMember 更新成员角色或能力标志
// 改角色时能力标志重置为新角色的默认值，再叠加显式给出的覆盖
func (s *teamService) UpdateMember(ctx context.Context, actorID, teamID, memberUserID uint64, patch MemberPatch) error {
	if err := s.ensureCanManageMembers(ctx, teamID, actorID); err != nil {
		return err
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return xerr.ErrInvalidRole
	}

	member, err := s.teamRepo.FindMember(ctx, teamID, memberUserID)
	if err != nil {
		return err
	}
	if member == nil {
		return xerr.ErrUserNotFound
	}

	if patch.Role != nil {
		member.Role = *patch.Role
		member.ApplyCapabilities(models.DefaultCapabilities(*patch.Role))
	}
	if patch.Capabilities != nil {
		member.ApplyCapabilities(*patch.Capabilities)
	}

	if err := s.teamRepo.UpdateMember(ctx, member); err != nil {
		logger.Error("UpdateMember: 更新团队成员失败",
			zap.Uint64("teamID", teamID), zap.Uint64("memberUserID", memberUserID), zap.Error(err))
		return fmt.Errorf("更新团队成员失败: %w", err)
	}

	s.invalidateMembers(ctx, teamID)
	s.auditRec.Record(ctx, audit.Event{
		TeamID:     teamID,
		UserID:     actorID,
		Action:     models.AuditActionMemberUpdated,
		EntityType: "team_member",
		EntityID:   &member.ID,
	})
	return nil
}

// RemoveMember 移除团队成员
func (s *teamService) RemoveMember(ctx context.Context, actorID, teamID, memberUserID uint64) error {
	if err := s.ensureCanManageMembers(ctx, teamID, actorID); err != nil {
		return err
	}

	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return err
	}
	if team == nil {
		return xerr.ErrTeamNotFound
	}
	// 团队管理员通过解散/移交离开团队，不走成员移除
	if team.AdminID == memberUserID {
		return xerr.ErrCannotRemoveAdmin
	}

	member, err := s.teamRepo.FindMember(ctx, teamID, memberUserID)
	if err != nil {
		return err
	}
	if member == nil {
		return xerr.ErrUserNotFound
	}

	if err := s.teamRepo.RemoveMember(ctx, teamID, memberUserID); err != nil {
		logger.Error("RemoveMember: 移除团队成员失败",
			zap.Uint64("teamID", teamID), zap.Uint64("memberUserID", memberUserID), zap.Error(err))
		return fmt.Errorf("移除团队成员失败: %w", err)
	}

	s.invalidateMembers(ctx, teamID)
	s.auditRec.Record(ctx, audit.Event{
		TeamID:     teamID,
		UserID:     actorID,
		Action:     models.AuditActionMemberRemoved,
		EntityType: "team_member",
		EntityID:   &memberUserID,
	})
	logger.Info("RemoveMember: 团队成员移除成功",
		zap.Uint64("teamID", teamID), zap.Uint64("memberUserID", memberUserID))
	return nil
}

// ShareFileToTeam 把文件共享给团队
func (s *teamService) ShareFileToTeam(ctx context.Context, actorID, teamID, fileID uint64, spaceID *uint64) (*models.TeamFileShare, error) {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("查询文件失败: %w", err)
	}
	if file == nil {
		return nil, xerr.ErrFileNotFound
	}
	if file.UserID != actorID {
		return nil, xerr.ErrPermissionDenied
	}

	caps, err := s.MemberCapabilities(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !caps.CanShare {
		return nil, xerr.ErrPermissionDenied
	}

	existing, err := s.teamRepo.FindFileShare(ctx, teamID, fileID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	share := &models.TeamFileShare{
		TeamID:         teamID,
		FileID:         fileID,
		SpaceID:        spaceID,
		SharedByUserID: actorID,
	}
	if err := s.teamRepo.CreateFileShare(ctx, share); err != nil {
		logger.Error("ShareFileToTeam: 创建团队文件共享失败",
			zap.Uint64("teamID", teamID), zap.Uint64("fileID", fileID), zap.Error(err))
		return nil, fmt.Errorf("共享文件到团队失败: %w", err)
	}

	s.auditRec.Record(ctx, audit.Event{
		TeamID:     teamID,
		UserID:     actorID,
		Action:     models.AuditActionFileShared,
		EntityType: "file",
		EntityID:   &fileID,
	})
	return share, nil
}

func (s *teamService) UnshareFileFromTeam(ctx context.Context, actorID, teamID, fileID uint64) error {
	share, err := s.teamRepo.FindFileShare(ctx, teamID, fileID)
	if err != nil {
		return err
	}
	if share == nil {
		return xerr.ErrTeamShareNotFound
	}

	// 共享发起者或管理员可取消共享
	if share.SharedByUserID != actorID {
		isAdmin, err := s.UserIsTeamAdmin(ctx, teamID, actorID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return xerr.ErrPermissionDenied
		}
	}

	if err := s.teamRepo.DeleteFileShare(ctx, teamID, fileID); err != nil {
		return fmt.Errorf("取消团队文件共享失败: %w", err)
	}

	s.auditRec.Record(ctx, audit.Event{
		TeamID:     teamID,
		UserID:     actorID,
		Action:     models.AuditActionFileUnshared,
		EntityType: "file",
		EntityID:   &fileID,
	})
	return nil
}

func (s *teamService) ListTeamFiles(ctx context.Context, actorID, teamID uint64, spaceID *uint64) ([]models.TeamFileShare, error) {
	caps, err := s.MemberCapabilities(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !caps.CanView {
		return nil, xerr.ErrPermissionDenied
	}
	return s.teamRepo.ListTeamFiles(ctx, teamID, spaceID)
}

// AuthorizeFileOp 团队共享文件的操作授权
func (s *teamService) AuthorizeFileOp(ctx context.Context, teamID, userID, fileID uint64, op FileOp) error {
	share, err := s.teamRepo.FindFileShare(ctx, teamID, fileID)
	if err != nil {
		return err
	}
	if share == nil {
		return xerr.ErrTeamShareNotFound
	}

	caps, err := s.MemberCapabilities(ctx, teamID, userID)
	if err != nil {
		return err
	}

	var allowed bool
	switch op {
	case FileOpView:
		allowed = caps.CanView
	case FileOpEdit:
		allowed = caps.CanEdit
	case FileOpShare:
		allowed = caps.CanShare
	default:
		return xerr.ErrInvalidParams
	}
	if !allowed {
		return xerr.ErrPermissionDenied
	}
	return nil
}

// ensureCanManageMembers 校验操作者具备成员管理能力
func (s *teamService) ensureCanManageMembers(ctx context.Context, teamID, actorID uint64) error {
	caps, err := s.MemberCapabilities(ctx, teamID, actorID)
	if err != nil {
		return err
	}
	if !caps.CanManageMembers {
		return xerr.ErrPermissionDenied
	}
	return nil
}

func (s *teamService) invalidateMembers(ctx context.Context, teamID uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cache.GenerateTeamMembersKey(teamID)); err != nil {
		logger.Warn("invalidateMembers: 删除成员缓存失败", zap.Uint64("teamID", teamID), zap.Error(err))
	}
}
