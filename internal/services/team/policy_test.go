package team

import (
	"context"
	"testing"

	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicyService(teamRepo *fakeTeamRepo) (*policyService, *fakePolicyRepo, *fakeRecorder) {
	policyRepo := &fakePolicyRepo{policies: make(map[uint64]*models.TeamPolicy)}
	teams, rec := newTestTeamService(teamRepo)
	return &policyService{policyRepo: policyRepo, teams: teams, auditRec: rec}, policyRepo, rec
}

func TestGetPolicy(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(9, models.RoleReadonly))
	svc, policyRepo, _ := newTestPolicyService(teamRepo)
	ctx := context.Background()

	// 策略行缺失时回落到默认策略
	policy, err := svc.GetPolicy(ctx, 9, 1)
	require.NoError(t, err)
	assert.True(t, policy.AllowExternalSharing)
	assert.False(t, policy.RequirePasswordForShares)

	stored := models.DefaultTeamPolicy(1)
	stored.RequirePasswordForShares = true
	policyRepo.policies[1] = stored

	policy, err = svc.GetPolicy(ctx, 9, 1)
	require.NoError(t, err)
	assert.True(t, policy.RequirePasswordForShares)

	// 非成员不可见
	_, err = svc.GetPolicy(ctx, 99, 1)
	assert.ErrorIs(t, err, xerr.ErrPermissionDenied)
}

func TestUpdatePolicy(t *testing.T) {
	teamRepo := newFakeTeamRepo()
	teamRepo.teams[1] = &models.Team{ID: 1, AdminID: 7}
	teamRepo.addMember(1, memberWithRole(9, models.RoleMember))
	svc, policyRepo, rec := newTestPolicyService(teamRepo)
	ctx := context.Background()

	// 仅管理员可改策略
	disabled := false
	_, err := svc.UpdatePolicy(ctx, 9, 1, PolicyPatch{AllowExternalSharing: &disabled})
	assert.ErrorIs(t, err, xerr.ErrPermissionDenied)

	// 部分更新：只动给出的字段，其余保持默认
	expiry := 30
	policy, err := svc.UpdatePolicy(ctx, 7, 1, PolicyPatch{
		AllowExternalSharing:   &disabled,
		DefaultShareExpiryDays: &expiry,
	})
	require.NoError(t, err)
	assert.False(t, policy.AllowExternalSharing)
	assert.Equal(t, 30, policy.DefaultShareExpiryDays)
	assert.False(t, policy.RequirePasswordForShares)
	require.Len(t, policyRepo.updated, 1)

	// 变更字段写入审计元数据
	require.Len(t, rec.events, 1)
	assert.Equal(t, models.AuditActionPolicyUpdated, rec.events[0].Action)
	assert.Equal(t, false, rec.events[0].Metadata["allow_external_sharing"])
	assert.Equal(t, 30, rec.events[0].Metadata["default_share_expiry_days"])
}
