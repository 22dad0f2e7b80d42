package team

import (
	"context"
	"testing"

	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/skieshare/skieshare/internal/services/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeTeamRepo struct {
	repositories.TeamRepository
	teams      map[uint64]*models.Team
	members    map[uint64]map[uint64]*models.TeamMember // teamID -> userID -> member
	fileShares map[uint64]map[uint64]*models.TeamFileShare
	added      []*models.TeamMember
	removed    [][2]uint64
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{
		teams:      make(map[uint64]*models.Team),
		members:    make(map[uint64]map[uint64]*models.TeamMember),
		fileShares: make(map[uint64]map[uint64]*models.TeamFileShare),
	}
}

func (f *fakeTeamRepo) addMember(teamID uint64, member *models.TeamMember) {
	if f.members[teamID] == nil {
		f.members[teamID] = make(map[uint64]*models.TeamMember)
	}
	member.TeamID = teamID
	f.members[teamID][member.UserID] = member
}

func (f *fakeTeamRepo) FindByID(ctx context.Context, teamID uint64) (*models.Team, error) {
	return f.teams[teamID], nil
}

func (f *fakeTeamRepo) FindMember(ctx context.Context, teamID, userID uint64) (*models.TeamMember, error) {
	return f.members[teamID][userID], nil
}

func (f *fakeTeamRepo) FindMemberTx(tx *gorm.DB, teamID, userID uint64) (*models.TeamMember, error) {
	return f.members[teamID][userID], nil
}

func (f *fakeTeamRepo) ListMembers(ctx context.Context, teamID uint64) ([]models.TeamMember, error) {
	var out []models.TeamMember
	for _, m := range f.members[teamID] {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeTeamRepo) UpdateMember(ctx context.Context, member *models.TeamMember) error {
	f.addMember(member.TeamID, member)
	return nil
}

func (f *fakeTeamRepo) RemoveMember(ctx context.Context, teamID, userID uint64) error {
	delete(f.members[teamID], userID)
	f.removed = append(f.removed, [2]uint64{teamID, userID})
	return nil
}

func (f *fakeTeamRepo) AddMemberTx(tx *gorm.DB, member *models.TeamMember) error {
	member.ID = uint64(len(f.added) + 1)
	f.added = append(f.added, member)
	f.addMember(member.TeamID, member)
	return nil
}

func (f *fakeTeamRepo) CreateTx(tx *gorm.DB, team *models.Team) error {
	team.ID = uint64(len(f.teams) + 1)
	f.teams[team.ID] = team
	return nil
}

func (f *fakeTeamRepo) FindFileShare(ctx context.Context, teamID, fileID uint64) (*models.TeamFileShare, error) {
	return f.fileShares[teamID][fileID], nil
}

func (f *fakeTeamRepo) CreateFileShare(ctx context.Context, share *models.TeamFileShare) error {
	if f.fileShares[share.TeamID] == nil {
		f.fileShares[share.TeamID] = make(map[uint64]*models.TeamFileShare)
	}
	f.fileShares[share.TeamID][share.FileID] = share
	return nil
}

func (f *fakeTeamRepo) DeleteFileShare(ctx context.Context, teamID, fileID uint64) error {
	delete(f.fileShares[teamID], fileID)
	return nil
}

type fakePolicyRepo struct {
	repositories.TeamPolicyRepository
	policies map[uint64]*models.TeamPolicy
	created  []*models.TeamPolicy
	updated  []*models.TeamPolicy
}

func (f *fakePolicyRepo) CreateTx(tx *gorm.DB, policy *models.TeamPolicy) error {
	f.created = append(f.created, policy)
	return nil
}

func (f *fakePolicyRepo) GetByTeamID(ctx context.Context, teamID uint64) (*models.TeamPolicy, error) {
	return f.policies[teamID], nil
}

func (f *fakePolicyRepo) Update(ctx context.Context, policy *models.TeamPolicy) error {
	if f.policies == nil {
		f.policies = make(map[uint64]*models.TeamPolicy)
	}
	f.policies[policy.TeamID] = policy
	f.updated = append(f.updated, policy)
	return nil
}

type fakeFileRepo struct {
	repositories.FileRepository
	files map[uint64]*models.File
}

func (f *fakeFileRepo) FindByID(ctx context.Context, fileID uint64) (*models.File, error) {
	return f.files[fileID], nil
}

type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// fakeRecorder 收集审计事件，便于断言旁路记录
type fakeRecorder struct {
	events []audit.Event
}

func (f *fakeRecorder) Log(ctx context.Context, teamID, userID uint64, action, entityType string, entityID *uint64, metadata map[string]any) (uint64, error) {
	f.events = append(f.events, audit.Event{TeamID: teamID, UserID: userID, Action: action, EntityType: entityType, EntityID: entityID, Metadata: metadata})
	return uint64(len(f.events)), nil
}

func (f *fakeRecorder) Record(ctx context.Context, event audit.Event) {
	f.events = append(f.events, event)
}

func newTestTeamService(teamRepo *fakeTeamRepo) (*teamService, *fakeRecorder) {
	rec := &fakeRecorder{}
	return &teamService{
		teamRepo:   teamRepo,
		policyRepo: &fakePolicyRepo{},
		fileRepo:   &fakeFileRepo{files: make(map[uint64]*models.File)},
		tm:         fakeTxManager{},
		auditRec:   rec,
	}, rec
}

func memberWithRole(userID uint64, role models.TeamRole) *models.TeamMember {
	m := &models.TeamMember{UserID: userID, Role: role}
	m.ApplyCapabilities(models.DefaultCapabilities(role))
	return m
}

func TestCreateTeam(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	svc, _ := newTestTeamService(teamRepo)

	created, err := svc.CreateTeam(context.Background(), 7, "研发组")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), created.AdminID)

	// 默认策略和创建者的 owner 成员行同事务写入
	policyRepo := svc.policyRepo.(*fakePolicyRepo)
	require.Len(t, policyRepo.created, 1)
	assert.True(t, policyRepo.created[0].AllowExternalSharing)

	owner := teamRepo.members[created.ID][7]
	require.NotNil(t, owner)
	assert.Equal(t, models.RoleOwner, owner.Role)
	assert.True(t, owner.CanManageMembers)

	_, err = svc.CreateTeam(context.Background(), 7, "")
	assert.ErrorIs(t, err, xerr.ErrInvalidParams)
}

func TestUserIsTeamAdmin_AdminIDEquivalence(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(8, models.RoleAdmin))
	teamRepo.addMember(1, memberWithRole(9, models.RoleMember))
	svc, _ := newTestTeamService(teamRepo)
	ctx := context.Background()

	// admin_id 对应的用户恒为管理员，即便没有成员行
	isAdmin, err := svc.UserIsTeamAdmin(ctx, 1, 7)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = svc.UserIsTeamAdmin(ctx, 1, 8)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = svc.UserIsTeamAdmin(ctx, 1, 9)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	_, err = svc.UserIsTeamAdmin(ctx, 999, 7)
	assert.ErrorIs(t, err, xerr.ErrTeamNotFound)
}

func TestUserHasTeamRole(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(9, models.RoleGuest))
	svc, _ := newTestTeamService(teamRepo)
	ctx := context.Background()

	ok, err := svc.UserHasTeamRole(ctx, 1, 9, models.RoleGuest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.UserHasTeamRole(ctx, 1, 9, models.RoleMember)
	require.NoError(t, err)
	assert.False(t, ok)

	// admin_id 视为 owner
	ok, err = svc.UserHasTeamRole(ctx, 1, 7, models.RoleOwner)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.UserHasTeamRole(ctx, 1, 9, models.TeamRole("超管"))
	assert.ErrorIs(t, err, xerr.ErrInvalidRole)
}

func TestUpdateMember_RoleChangeResetsCapabilities(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	member := memberWithRole(9, models.RoleMember)
	member.CanManageMembers = true // 曾被单独放开的能力
	teamRepo.addMember(1, member)
	svc, rec := newTestTeamService(teamRepo)

	role := models.RoleReadonly
	err := svc.UpdateMember(context.Background(), 7, 1, 9, MemberPatch{Role: &role})
	require.NoError(t, err)

	// 改角色后能力重置为新角色默认值，之前的单独覆盖失效
	updated := teamRepo.members[1][9]
	assert.Equal(t, models.RoleReadonly, updated.Role)
	assert.True(t, updated.CanView)
	assert.False(t, updated.CanEdit)
	assert.False(t, updated.CanManageMembers)
	require.Len(t, rec.events, 1)
	assert.Equal(t, models.AuditActionMemberUpdated, rec.events[0].Action)
}

func TestUpdateMember_RequiresManageCapability(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(8, models.RoleMember))
	teamRepo.addMember(1, memberWithRole(9, models.RoleGuest))
	svc, _ := newTestTeamService(teamRepo)

	role := models.RoleMember
	err := svc.UpdateMember(context.Background(), 8, 1, 9, MemberPatch{Role: &role})
	assert.ErrorIs(t, err, xerr.ErrPermissionDenied)
}

func TestRemoveMember(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(7, models.RoleOwner))
	teamRepo.addMember(1, memberWithRole(9, models.RoleMember))
	svc, rec := newTestTeamService(teamRepo)
	ctx := context.Background()

	// 团队管理员不可被移除
	err := svc.RemoveMember(ctx, 7, 1, 7)
	assert.ErrorIs(t, err, xerr.ErrCannotRemoveAdmin)

	err = svc.RemoveMember(ctx, 7, 1, 9)
	require.NoError(t, err)
	assert.Nil(t, teamRepo.members[1][9])
	require.Len(t, rec.events, 1)
	assert.Equal(t, models.AuditActionMemberRemoved, rec.events[0].Action)
}

func TestShareFileToTeam(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(9, models.RoleMember))
	teamRepo.addMember(1, memberWithRole(10, models.RoleReadonly))
	svc, rec := newTestTeamService(teamRepo)
	fileRepo := svc.fileRepo.(*fakeFileRepo)
	fileRepo.files[100] = &models.File{ID: 100, UserID: 9}
	fileRepo.files[101] = &models.File{ID: 101, UserID: 10}
	ctx := context.Background()

	share, err := svc.ShareFileToTeam(ctx, 9, 1, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), share.SharedByUserID)
	require.Len(t, rec.events, 1)
	assert.Equal(t, models.AuditActionFileShared, rec.events[0].Action)

	// 重复共享幂等，返回已有记录
	again, err := svc.ShareFileToTeam(ctx, 9, 1, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, share, again)
	assert.Len(t, rec.events, 1)

	// 非文件所有者拒绝
	_, err = svc.ShareFileToTeam(ctx, 9, 1, 101, nil)
	assert.ErrorIs(t, err, xerr.ErrPermissionDenied)

	// readonly 成员没有分享能力
	_, err = svc.ShareFileToTeam(ctx, 10, 1, 101, nil)
	assert.ErrorIs(t, err, xerr.ErrPermissionDenied)
}

func TestMemberCapabilities_AdminRoleBypassesFlags(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	// admin 角色成员的标志被单独关掉，但角色直通不看存储值
	admin := memberWithRole(5, models.RoleAdmin)
	admin.CanEdit = false
	admin.CanManageMembers = false
	teamRepo.addMember(1, admin)
	teamRepo.fileShares[1] = map[uint64]*models.TeamFileShare{
		100: {TeamID: 1, FileID: 100, SharedByUserID: 7},
	}
	svc, _ := newTestTeamService(teamRepo)
	ctx := context.Background()

	caps, err := svc.MemberCapabilities(ctx, 1, 5)
	require.NoError(t, err)
	assert.True(t, caps.CanEdit)
	assert.True(t, caps.CanManageMembers)

	assert.NoError(t, svc.AuthorizeFileOp(ctx, 1, 5, 100, FileOpEdit))
}

func TestAuthorizeFileOp(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(9, models.RoleReadonly))
	teamRepo.addMember(1, memberWithRole(10, models.RoleMember))
	teamRepo.fileShares[1] = map[uint64]*models.TeamFileShare{
		100: {TeamID: 1, FileID: 100, SharedByUserID: 10},
	}
	svc, _ := newTestTeamService(teamRepo)
	ctx := context.Background()

	// readonly 成员可查看不可编辑
	assert.NoError(t, svc.AuthorizeFileOp(ctx, 1, 9, 100, FileOpView))
	assert.ErrorIs(t, svc.AuthorizeFileOp(ctx, 1, 9, 100, FileOpEdit), xerr.ErrPermissionDenied)
	assert.ErrorIs(t, svc.AuthorizeFileOp(ctx, 1, 9, 100, FileOpShare), xerr.ErrPermissionDenied)

	// member 全面放行
	assert.NoError(t, svc.AuthorizeFileOp(ctx, 1, 10, 100, FileOpEdit))

	// admin_id 直通
	assert.NoError(t, svc.AuthorizeFileOp(ctx, 1, 7, 100, FileOpEdit))

	// 未共享给团队的文件
	err := svc.AuthorizeFileOp(ctx, 1, 10, 999, FileOpView)
	assert.ErrorIs(t, err, xerr.ErrTeamShareNotFound)

	// 未知操作类别
	err = svc.AuthorizeFileOp(ctx, 1, 10, 100, FileOp("执行"))
	assert.ErrorIs(t, err, xerr.ErrInvalidParams)
}

func TestUnshareFileFromTeam(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(9, models.RoleMember))
	teamRepo.addMember(1, memberWithRole(10, models.RoleMember))
	teamRepo.fileShares[1] = map[uint64]*models.TeamFileShare{
		100: {TeamID: 1, FileID: 100, SharedByUserID: 9},
	}
	svc, _ := newTestTeamService(teamRepo)
	ctx := context.Background()

	// 既非发起者也非管理员
	err := svc.UnshareFileFromTeam(ctx, 10, 1, 100)
	assert.ErrorIs(t, err, xerr.ErrPermissionDenied)

	// 发起者可取消
	err = svc.UnshareFileFromTeam(ctx, 9, 1, 100)
	require.NoError(t, err)
	assert.Nil(t, teamRepo.fileShares[1][100])
}
