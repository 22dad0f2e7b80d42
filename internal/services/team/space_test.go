package team

import (
	"context"
	"testing"

	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSpaceRepo struct {
	repositories.SpaceRepository
	spaces  map[uint64]*models.Space
	updated []*models.Space
}

func newFakeSpaceRepo() *fakeSpaceRepo {
	return &fakeSpaceRepo{spaces: make(map[uint64]*models.Space)}
}

func (f *fakeSpaceRepo) Create(ctx context.Context, space *models.Space) error {
	space.ID = uint64(len(f.spaces) + 1)
	f.spaces[space.ID] = space
	return nil
}

func (f *fakeSpaceRepo) FindByID(ctx context.Context, spaceID uint64) (*models.Space, error) {
	return f.spaces[spaceID], nil
}

func (f *fakeSpaceRepo) ListByTeam(ctx context.Context, teamID uint64, includeArchived bool) ([]models.Space, error) {
	var out []models.Space
	for _, sp := range f.spaces {
		if sp.TeamID != teamID {
			continue
		}
		if sp.IsArchived && !includeArchived {
			continue
		}
		out = append(out, *sp)
	}
	return out, nil
}

func (f *fakeSpaceRepo) Update(ctx context.Context, space *models.Space) error {
	f.spaces[space.ID] = space
	f.updated = append(f.updated, space)
	return nil
}

func newTestSpaceService(teamRepo *fakeTeamRepo) (*spaceService, *fakeSpaceRepo, *fakeRecorder) {
	spaceRepo := newFakeSpaceRepo()
	teams, rec := newTestTeamService(teamRepo)
	return &spaceService{spaceRepo: spaceRepo, teams: teams, auditRec: rec}, spaceRepo, rec
}

func TestCreateSpace(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(9, models.RoleMember))
	teamRepo.addMember(1, memberWithRole(10, models.RoleGuest))
	svc, spaceRepo, rec := newTestSpaceService(teamRepo)
	ctx := context.Background()

	space, err := svc.CreateSpace(ctx, 9, 1, "设计稿", "UI 设计产出", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), space.TeamID)
	assert.Nil(t, space.ParentSpaceID)
	require.Len(t, rec.events, 1)
	assert.Equal(t, models.AuditActionSpaceCreated, rec.events[0].Action)

	// 子空间必须挂在同团队的父空间下
	child, err := svc.CreateSpace(ctx, 9, 1, "交互稿", "", &space.ID)
	require.NoError(t, err)
	require.NotNil(t, child.ParentSpaceID)
	assert.Equal(t, space.ID, *child.ParentSpaceID)

	missing := uint64(999)
	_, err = svc.CreateSpace(ctx, 9, 1, "孤儿空间", "", &missing)
	assert.ErrorIs(t, err, xerr.ErrSpaceNotFound)

	// guest 角色低于 member，不能创建空间
	_, err = svc.CreateSpace(ctx, 10, 1, "访客空间", "", nil)
	assert.ErrorIs(t, err, xerr.ErrInsufficientTeamRole)

	_, err = svc.CreateSpace(ctx, 9, 1, "", "", nil)
	assert.ErrorIs(t, err, xerr.ErrInvalidParams)
	assert.Len(t, spaceRepo.spaces, 2)
}

func TestListSpaces_ArchiveFilter(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(9, models.RoleMember))
	svc, spaceRepo, _ := newTestSpaceService(teamRepo)
	ctx := context.Background()

	spaceRepo.spaces[1] = &models.Space{ID: 1, TeamID: 1, Name: "活跃空间"}
	spaceRepo.spaces[2] = &models.Space{ID: 2, TeamID: 1, Name: "归档空间", IsArchived: true}

	spaces, err := svc.ListSpaces(ctx, 9, 1, false)
	require.NoError(t, err)
	assert.Len(t, spaces, 1)

	spaces, err = svc.ListSpaces(ctx, 9, 1, true)
	require.NoError(t, err)
	assert.Len(t, spaces, 2)

	// 非成员不可见
	_, err = svc.ListSpaces(ctx, 99, 1, false)
	assert.ErrorIs(t, err, xerr.ErrPermissionDenied)
}

func TestArchiveSpace(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(9, models.RoleMember))
	teamRepo.addMember(1, memberWithRole(10, models.RoleReadonly))
	svc, spaceRepo, rec := newTestSpaceService(teamRepo)
	ctx := context.Background()

	spaceRepo.spaces[1] = &models.Space{ID: 1, TeamID: 1, Name: "项目空间"}

	// readonly 成员没有编辑能力
	err := svc.ArchiveSpace(ctx, 10, 1)
	assert.ErrorIs(t, err, xerr.ErrPermissionDenied)

	err = svc.ArchiveSpace(ctx, 9, 1)
	require.NoError(t, err)
	assert.True(t, spaceRepo.spaces[1].IsArchived)
	require.Len(t, rec.events, 1)
	assert.Equal(t, models.AuditActionSpaceArchived, rec.events[0].Action)

	// 重复归档幂等，不再产生审计事件
	err = svc.ArchiveSpace(ctx, 9, 1)
	require.NoError(t, err)
	assert.Len(t, rec.events, 1)

	err = svc.UnarchiveSpace(ctx, 9, 1)
	require.NoError(t, err)
	assert.False(t, spaceRepo.spaces[1].IsArchived)

	err = svc.ArchiveSpace(ctx, 9, 999)
	assert.ErrorIs(t, err, xerr.ErrSpaceNotFound)
}

func TestRenameSpace(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(9, models.RoleMember))
	svc, spaceRepo, _ := newTestSpaceService(teamRepo)
	ctx := context.Background()

	spaceRepo.spaces[1] = &models.Space{ID: 1, TeamID: 1, Name: "旧名字"}

	err := svc.RenameSpace(ctx, 9, 1, "新名字")
	require.NoError(t, err)
	assert.Equal(t, "新名字", spaceRepo.spaces[1].Name)

	err = svc.RenameSpace(ctx, 9, 1, "")
	assert.ErrorIs(t, err, xerr.ErrInvalidParams)
}
