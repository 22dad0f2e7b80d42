package team

import (
	"context"
	"fmt"

	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/skieshare/skieshare/internal/services/audit"
)

// PolicyPatch 团队策略的部分更新
type PolicyPatch struct {
	AllowExternalSharing     *bool
	RequirePasswordForShares *bool
	Require2FA               *bool
	DefaultShareExpiryDays   *int
	MaxFileSizeMB            *int
	RetentionDays            *int
	AutoJoinDomain           *string
}

// PolicyService 定义了团队策略管理需要实现的接口
type PolicyService interface {
	// GetPolicy 读取团队策略，成员可见；策略行缺失时返回默认策略
	GetPolicy(ctx context.Context, actorID, teamID uint64) (*models.TeamPolicy, error)
	// UpdatePolicy 更新团队策略，仅管理员可操作，变更写入审计
	UpdatePolicy(ctx context.Context, actorID, teamID uint64, patch PolicyPatch) (*models.TeamPolicy, error)
}

type policyService struct {
	policyRepo repositories.TeamPolicyRepository
	teams      TeamService
	auditRec   audit.Recorder
}

var _ PolicyService = (*policyService)(nil)

// NewPolicyService 创建一个新的 PolicyService 实例
func NewPolicyService(policyRepo repositories.TeamPolicyRepository, teams TeamService, auditRec audit.Recorder) PolicyService {
	return &policyService{policyRepo: policyRepo, teams: teams, auditRec: auditRec}
}

func (s *policyService) GetPolicy(ctx context.Context, actorID, teamID uint64) (*models.TeamPolicy, error) {
	isMember, err := s.teams.UserIsTeamMember(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, xerr.ErrPermissionDenied
	}

	policy, err := s.policyRepo.GetByTeamID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("查询团队策略失败: %w", err)
	}
	if policy == nil {
		return models.DefaultTeamPolicy(teamID), nil
	}
	return policy, nil
}

func (s *policyService) UpdatePolicy(ctx context.Context, actorID, teamID uint64, patch PolicyPatch) (*models.TeamPolicy, error) {
	isAdmin, err := s.teams.UserIsTeamAdmin(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, xerr.ErrPermissionDenied
	}

	policy, err := s.policyRepo.GetByTeamID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("查询团队策略失败: %w", err)
	}
	if policy == nil {
		policy = models.DefaultTeamPolicy(teamID)
	}

	changes := map[string]any{}
	if patch.AllowExternalSharing != nil {
		policy.AllowExternalSharing = *patch.AllowExternalSharing
		changes["allow_external_sharing"] = *patch.AllowExternalSharing
	}
	if patch.RequirePasswordForShares != nil {
		policy.RequirePasswordForShares = *patch.RequirePasswordForShares
		changes["require_password_for_shares"] = *patch.RequirePasswordForShares
	}
	if patch.Require2FA != nil {
		policy.Require2FA = *patch.Require2FA
		changes["require_2fa"] = *patch.Require2FA
	}
	if patch.DefaultShareExpiryDays != nil {
		policy.DefaultShareExpiryDays = *patch.DefaultShareExpiryDays
		changes["default_share_expiry_days"] = *patch.DefaultShareExpiryDays
	}
	if patch.MaxFileSizeMB != nil {
		policy.MaxFileSizeMB = *patch.MaxFileSizeMB
		changes["max_file_size_mb"] = *patch.MaxFileSizeMB
	}
	if patch.RetentionDays != nil {
		policy.RetentionDays = *patch.RetentionDays
		changes["retention_days"] = *patch.RetentionDays
	}
	if patch.AutoJoinDomain != nil {
		policy.AutoJoinDomain = *patch.AutoJoinDomain
		changes["auto_join_domain"] = *patch.AutoJoinDomain
	}

	if err := s.policyRepo.Update(ctx, policy); err != nil {
		return nil, fmt.Errorf("更新团队策略失败: %w", err)
	}

	s.auditRec.Record(ctx, audit.Event{
		TeamID:     teamID,
		UserID:     actorID,
		Action:     models.AuditActionPolicyUpdated,
		EntityType: "team_policy",
		EntityID:   &policy.ID,
		Metadata:   changes,
	})
	return policy, nil
}
