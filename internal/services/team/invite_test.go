package team

import (
	"context"
	"testing"
	"time"

	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeInviteRepo struct {
	repositories.TeamInviteRepository
	invites map[uint64]*models.TeamInvite
	created []*models.TeamInvite
}

func newFakeInviteRepo() *fakeInviteRepo {
	return &fakeInviteRepo{invites: make(map[uint64]*models.TeamInvite)}
}

func (f *fakeInviteRepo) Create(ctx context.Context, invite *models.TeamInvite) error {
	invite.ID = uint64(len(f.invites) + 1)
	f.invites[invite.ID] = invite
	f.created = append(f.created, invite)
	return nil
}

func (f *fakeInviteRepo) FindByTokenForUpdateTx(tx *gorm.DB, token string) (*models.TeamInvite, error) {
	for _, inv := range f.invites {
		if inv.InviteToken == token {
			return inv, nil
		}
	}
	return nil, nil
}

func (f *fakeInviteRepo) FindByIDForUpdateTx(tx *gorm.DB, inviteID uint64) (*models.TeamInvite, error) {
	return f.invites[inviteID], nil
}

func (f *fakeInviteRepo) UpdateTx(tx *gorm.DB, invite *models.TeamInvite) error {
	f.invites[invite.ID] = invite
	return nil
}

func newTestInviteService(teamRepo *fakeTeamRepo, now time.Time) (*inviteService, *fakeInviteRepo, *fakeRecorder) {
	inviteRepo := newFakeInviteRepo()
	rec := &fakeRecorder{}
	teams, _ := newTestTeamService(teamRepo)
	teams.auditRec = rec
	cfg := &config.Config{}
	cfg.Server.BaseURL = "https://share.example.com"
	svc := &inviteService{
		inviteRepo: inviteRepo,
		teamRepo:   teamRepo,
		teams:      teams,
		tm:         fakeTxManager{},
		auditRec:   rec,
		cfg:        cfg,
		now:        func() time.Time { return now },
	}
	return svc, inviteRepo, rec
}

func pendingInvite(teamID uint64, token string, role models.TeamRole, expiresAt time.Time) *models.TeamInvite {
	return &models.TeamInvite{
		TeamID:          teamID,
		Email:           "guest@example.com",
		Role:            role,
		InviteToken:     token,
		Status:          models.InviteStatusPending,
		ExpiresAt:       expiresAt,
		InvitedByUserID: 7,
	}
}

func TestSendInvite(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(9, models.RoleMember))
	svc, inviteRepo, rec := newTestInviteService(teamRepo, now)
	ctx := context.Background()

	invite, err := svc.SendInvite(ctx, 7, 1, "new@example.com", models.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusPending, invite.Status)
	assert.NotEmpty(t, invite.InviteToken)
	assert.Equal(t, now.Add(defaultInviteTTL), invite.ExpiresAt)
	require.Len(t, inviteRepo.created, 1)
	require.Len(t, rec.events, 1)
	assert.Equal(t, models.AuditActionInviteSent, rec.events[0].Action)

	// 普通成员无权邀请
	_, err = svc.SendInvite(ctx, 9, 1, "new@example.com", models.RoleMember)
	assert.ErrorIs(t, err, xerr.ErrPermissionDenied)

	// 邀请不能授予 owner
	_, err = svc.SendInvite(ctx, 7, 1, "new@example.com", models.RoleOwner)
	assert.ErrorIs(t, err, xerr.ErrInvalidRole)

	_, err = svc.SendInvite(ctx, 7, 1, "new@example.com", models.TeamRole("超管"))
	assert.ErrorIs(t, err, xerr.ErrInvalidRole)

	_, err = svc.SendInvite(ctx, 7, 1, "", models.RoleMember)
	assert.ErrorIs(t, err, xerr.ErrInvalidParams)
}

func TestAcceptInvite(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	svc, inviteRepo, rec := newTestInviteService(teamRepo, now)
	ctx := context.Background()

	invite := pendingInvite(1, "tok-guest", models.RoleGuest, now.Add(time.Hour))
	require.NoError(t, inviteRepo.Create(ctx, invite))

	member, err := svc.AcceptInvite(ctx, 20, "tok-guest")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), member.TeamID)
	assert.Equal(t, models.RoleGuest, member.Role)
	// 能力标志按邀请角色派生
	assert.True(t, member.CanView)
	assert.False(t, member.CanEdit)
	assert.False(t, member.CanShare)

	// 邀请固化为 accepted 终态并记录受理时间
	assert.Equal(t, models.InviteStatusAccepted, invite.Status)
	require.NotNil(t, invite.AcceptedAt)
	assert.Equal(t, now, *invite.AcceptedAt)
	require.Len(t, rec.events, 1)
	assert.Equal(t, models.AuditActionInviteAccept, rec.events[0].Action)

	// 再次受理同一 token 失败，不重复建成员行
	_, err = svc.AcceptInvite(ctx, 21, "tok-guest")
	assert.ErrorIs(t, err, xerr.ErrInviteNotPending)
	assert.Len(t, teamRepo.added, 1)
}

func TestAcceptInvite_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	svc, inviteRepo, _ := newTestInviteService(teamRepo, now)
	ctx := context.Background()

	invite := pendingInvite(1, "tok-expired", models.RoleMember, now.Add(-time.Minute))
	require.NoError(t, inviteRepo.Create(ctx, invite))

	_, err := svc.AcceptInvite(ctx, 20, "tok-expired")
	assert.ErrorIs(t, err, xerr.ErrInviteExpired)
	// 过期在受理时刻固化为终态
	assert.Equal(t, models.InviteStatusExpired, invite.Status)
	assert.Empty(t, teamRepo.added)
}

func TestAcceptInvite_MemberAlreadyExists(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(20, models.RoleMember))
	svc, inviteRepo, _ := newTestInviteService(teamRepo, now)
	ctx := context.Background()

	invite := pendingInvite(1, "tok-dup", models.RoleMember, now.Add(time.Hour))
	require.NoError(t, inviteRepo.Create(ctx, invite))

	_, err := svc.AcceptInvite(ctx, 20, "tok-dup")
	assert.ErrorIs(t, err, xerr.ErrMemberAlreadyExists)
	// 邀请保持 pending，换账号仍可受理
	assert.Equal(t, models.InviteStatusPending, invite.Status)
}

func TestAcceptInvite_NotFound(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	teamRepo := newFakeTeamRepo()
	svc, _, _ := newTestInviteService(teamRepo, now)

	_, err := svc.AcceptInvite(context.Background(), 20, "tok-missing")
	assert.ErrorIs(t, err, xerr.ErrInviteNotFound)
}

func TestRevokeInvite(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(9, models.RoleMember))
	svc, inviteRepo, rec := newTestInviteService(teamRepo, now)
	ctx := context.Background()

	invite := pendingInvite(1, "tok-revoke", models.RoleMember, now.Add(time.Hour))
	require.NoError(t, inviteRepo.Create(ctx, invite))

	// 普通成员无权撤销
	err := svc.RevokeInvite(ctx, 9, invite.ID)
	assert.ErrorIs(t, err, xerr.ErrPermissionDenied)

	err = svc.RevokeInvite(ctx, 7, invite.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusRevoked, invite.Status)
	require.Len(t, rec.events, 1)
	assert.Equal(t, models.AuditActionInviteRevoke, rec.events[0].Action)

	// 终态不可再撤销
	err = svc.RevokeInvite(ctx, 7, invite.ID)
	assert.ErrorIs(t, err, xerr.ErrInviteNotPending)

	err = svc.RevokeInvite(ctx, 7, 999)
	assert.ErrorIs(t, err, xerr.ErrInviteNotFound)
}

func TestInviteStatusTerminal(t *testing.T) {
	assert.False(t, models.InviteStatusPending.Terminal())
	assert.True(t, models.InviteStatusAccepted.Terminal())
	assert.True(t, models.InviteStatusExpired.Terminal())
	assert.True(t, models.InviteStatusRevoked.Terminal())
}
