package team

import (
	"context"
	"fmt"

	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/skieshare/skieshare/internal/services/audit"
)

// SpaceService 定义了团队空间管理需要实现的接口
type SpaceService interface {
	// CreateSpace 在团队内创建空间，parentSpaceID 非空时为子空间
	CreateSpace(ctx context.Context, actorID, teamID uint64, name, description string, parentSpaceID *uint64) (*models.Space, error)
	GetSpace(ctx context.Context, actorID, spaceID uint64) (*models.Space, error)
	ListSpaces(ctx context.Context, actorID, teamID uint64, includeArchived bool) ([]models.Space, error)
	RenameSpace(ctx context.Context, actorID, spaceID uint64, name string) error
	// ArchiveSpace 归档空间，归档后不再出现在默认列表
	ArchiveSpace(ctx context.Context, actorID, spaceID uint64) error
	UnarchiveSpace(ctx context.Context, actorID, spaceID uint64) error
}

type spaceService struct {
	spaceRepo repositories.SpaceRepository
	teams     TeamService
	auditRec  audit.Recorder
}

var _ SpaceService = (*spaceService)(nil)

// NewSpaceService 创建一个新的 SpaceService 实例
func NewSpaceService(spaceRepo repositories.SpaceRepository, teams TeamService, auditRec audit.Recorder) SpaceService {
	return &spaceService{spaceRepo: spaceRepo, teams: teams, auditRec: auditRec}
}

func (s *spaceService) CreateSpace(ctx context.Context, actorID, teamID uint64, name, description string, parentSpaceID *uint64) (*models.Space, error) {
	if name == "" {
		return nil, xerr.ErrInvalidParams
	}
	// 创建空间要求 member 及以上角色
	ok, err := s.teams.UserHasTeamRole(ctx, teamID, actorID, models.RoleMember)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xerr.ErrInsufficientTeamRole
	}

	if parentSpaceID != nil {
		parent, err := s.spaceRepo.FindByID(ctx, *parentSpaceID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.TeamID != teamID {
			return nil, xerr.ErrSpaceNotFound
		}
	}

	space := &models.Space{
		TeamID:          teamID,
		ParentSpaceID:   parentSpaceID,
		Name:            name,
		Description:     description,
		CreatedByUserID: actorID,
	}
	if err := s.spaceRepo.Create(ctx, space); err != nil {
		return nil, fmt.Errorf("创建空间失败: %w", err)
	}

	s.auditRec.Record(ctx, audit.Event{
		TeamID:     teamID,
		UserID:     actorID,
		Action:     models.AuditActionSpaceCreated,
		EntityType: "space",
		EntityID:   &space.ID,
	})
	return space, nil
}

func (s *spaceService) GetSpace(ctx context.Context, actorID, spaceID uint64) (*models.Space, error) {
	space, err := s.spaceRepo.FindByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if space == nil {
		return nil, xerr.ErrSpaceNotFound
	}
	isMember, err := s.teams.UserIsTeamMember(ctx, space.TeamID, actorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, xerr.ErrPermissionDenied
	}
	return space, nil
}

func (s *spaceService) ListSpaces(ctx context.Context, actorID, teamID uint64, includeArchived bool) ([]models.Space, error) {
	isMember, err := s.teams.UserIsTeamMember(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, xerr.ErrPermissionDenied
	}
	return s.spaceRepo.ListByTeam(ctx, teamID, includeArchived)
}

func (s *spaceService) RenameSpace(ctx context.Context, actorID, spaceID uint64, name string) error {
	if name == "" {
		return xerr.ErrInvalidParams
	}
	space, err := s.editableSpace(ctx, actorID, spaceID)
	if err != nil {
		return err
	}
	space.Name = name
	return s.spaceRepo.Update(ctx, space)
}

func (s *spaceService) ArchiveSpace(ctx context.Context, actorID, spaceID uint64) error {
	space, err := s.editableSpace(ctx, actorID, spaceID)
	if err != nil {
		return err
	}
	if space.IsArchived {
		return nil
	}
	space.IsArchived = true
	if err := s.spaceRepo.Update(ctx, space); err != nil {
		return fmt.Errorf("归档空间失败: %w", err)
	}

	s.auditRec.Record(ctx, audit.Event{
		TeamID:     space.TeamID,
		UserID:     actorID,
		Action:     models.AuditActionSpaceArchived,
		EntityType: "space",
		EntityID:   &space.ID,
	})
	return nil
}

func (s *spaceService) UnarchiveSpace(ctx context.Context, actorID, spaceID uint64) error {
	space, err := s.editableSpace(ctx, actorID, spaceID)
	if err != nil {
		return err
	}
	if !space.IsArchived {
		return nil
	}
	space.IsArchived = false
	return s.spaceRepo.Update(ctx, space)
}

// editableSpace 读取空间并校验操作者具备编辑能力
func (s *spaceService) editableSpace(ctx context.Context, actorID, spaceID uint64) (*models.Space, error) {
	space, err := s.spaceRepo.FindByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if space == nil {
		return nil, xerr.ErrSpaceNotFound
	}
	caps, err := s.teams.MemberCapabilities(ctx, space.TeamID, actorID)
	if err != nil {
		return nil, err
	}
	if !caps.CanEdit {
		return nil, xerr.ErrPermissionDenied
	}
	return space, nil
}
