package team

import (
	"context"
	"fmt"
	"time"

	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/mq"
	"github.com/skieshare/skieshare/internal/pkg/utils"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/skieshare/skieshare/internal/services/audit"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InviteService 定义了团队邀请生命周期需要实现的接口
// 状态迁移单向：pending -> accepted | expired | revoked
type InviteService interface {
	// SendInvite 创建邀请并投递邀请邮件任务
	SendInvite(ctx context.Context, actorID, teamID uint64, email string, role models.TeamRole) (*models.TeamInvite, error)
	// AcceptInvite 受理邀请：行锁下校验 pending 且未过期，建成员行并置终态
	// 同一 token 的并发受理恰好成功一次
	AcceptInvite(ctx context.Context, userID uint64, token string) (*models.TeamMember, error)
	// RevokeInvite 撤销一个待处理的邀请
	RevokeInvite(ctx context.Context, actorID, inviteID uint64) error
	ListInvites(ctx context.Context, actorID, teamID uint64) ([]models.TeamInvite, error)
}

type inviteService struct {
	inviteRepo repositories.TeamInviteRepository
	teamRepo   repositories.TeamRepository
	userRepo   repositories.UserRepository
	teams      TeamService
	tm         repositories.TransactionManager
	mqClient   *mq.RabbitMQClient // 可为空
	auditRec   audit.Recorder
	cfg        *config.Config
	now        func() time.Time
}

var _ InviteService = (*inviteService)(nil)

// NewInviteService 创建一个新的 InviteService 实例
func NewInviteService(
	inviteRepo repositories.TeamInviteRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	teams TeamService,
	tm repositories.TransactionManager,
	mqClient *mq.RabbitMQClient,
	auditRec audit.Recorder,
	cfg *config.Config,
) InviteService {
	return &inviteService{
		inviteRepo: inviteRepo,
		teamRepo:   teamRepo,
		userRepo:   userRepo,
		teams:      teams,
		tm:         tm,
		mqClient:   mqClient,
		auditRec:   auditRec,
		cfg:        cfg,
		now:        time.Now,
	}
}

const defaultInviteTTL = 7 * 24 * time.Hour

// SendInvite 创建团队邀请
func (s *inviteService) SendInvite(ctx context.Context, actorID, teamID uint64, email string, role models.TeamRole) (*models.TeamInvite, error) {
	if email == "" {
		return nil, xerr.ErrInvalidParams
	}
	if !role.Valid() {
		return nil, xerr.ErrInvalidRole
	}
	// 邀请不能授予 owner 身份
	if role == models.RoleOwner {
		return nil, xerr.ErrInvalidRole
	}

	isAdmin, err := s.teams.UserIsTeamAdmin(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, xerr.ErrPermissionDenied
	}

	token, err := utils.GenerateInviteToken()
	if err != nil {
		return nil, err
	}

	invite := &models.TeamInvite{
		TeamID:          teamID,
		Email:           email,
		Role:            role,
		InviteToken:     token,
		Status:          models.InviteStatusPending,
		ExpiresAt:       s.now().Add(defaultInviteTTL),
		InvitedByUserID: actorID,
	}
	if err := s.inviteRepo.Create(ctx, invite); err != nil {
		logger.Error("SendInvite: 创建邀请失败", zap.Uint64("teamID", teamID), zap.Error(err))
		return nil, fmt.Errorf("创建团队邀请失败: %w", err)
	}

	s.enqueueInviteEmail(invite)
	s.auditRec.Record(ctx, audit.Event{
		TeamID:     teamID,
		UserID:     actorID,
		Action:     models.AuditActionInviteSent,
		EntityType: "team_invite",
		EntityID:   &invite.ID,
		Metadata:   map[string]any{"email": email, "role": string(role)},
	})

	logger.Info("SendInvite: 团队邀请已创建",
		zap.Uint64("teamID", teamID), zap.Uint64("inviteID", invite.ID))
	return invite, nil
}

// AcceptInvite 受理团队邀请
// FOR UPDATE 行锁保证并发受理串行化：第一个事务把状态置为终态，
// 后续事务读到终态直接失败，不会重复建成员行
func (s *inviteService) AcceptInvite(ctx context.Context, userID uint64, token string) (*models.TeamMember, error) {
	var member *models.TeamMember

	err := s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		invite, err := s.inviteRepo.FindByTokenForUpdateTx(tx, token)
		if err != nil {
			return err
		}
		if invite == nil {
			return xerr.ErrInviteNotFound
		}
		if invite.Status != models.InviteStatusPending {
			return xerr.ErrInviteNotPending
		}
		if s.now().After(invite.ExpiresAt) {
			// 过期在受理时刻判定并固化为终态
			invite.Status = models.InviteStatusExpired
			if err := s.inviteRepo.UpdateTx(tx, invite); err != nil {
				return err
			}
			return xerr.ErrInviteExpired
		}

		// 成员查询必须走事务连接，与 AddMemberTx 读写一致
		existing, err := s.teamRepo.FindMemberTx(tx, invite.TeamID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return xerr.ErrMemberAlreadyExists
		}

		member = &models.TeamMember{
			TeamID: invite.TeamID,
			UserID: userID,
			Role:   invite.Role,
		}
		member.ApplyCapabilities(models.DefaultCapabilities(invite.Role))
		if err := s.teamRepo.AddMemberTx(tx, member); err != nil {
			return err
		}

		acceptedAt := s.now()
		invite.Status = models.InviteStatusAccepted
		invite.AcceptedAt = &acceptedAt
		return s.inviteRepo.UpdateTx(tx, invite)
	})
	if err != nil {
		return nil, err
	}

	s.auditRec.Record(ctx, audit.Event{
		TeamID:     member.TeamID,
		UserID:     userID,
		Action:     models.AuditActionInviteAccept,
		EntityType: "team_member",
		EntityID:   &member.ID,
	})
	logger.Info("AcceptInvite: 邀请受理成功",
		zap.Uint64("teamID", member.TeamID), zap.Uint64("userID", userID))
	return member, nil
}

// RevokeInvite 撤销邀请，仅 pending 状态可撤销
func (s *inviteService) RevokeInvite(ctx context.Context, actorID, inviteID uint64) error {
	return s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		invite, err := s.inviteRepo.FindByIDForUpdateTx(tx, inviteID)
		if err != nil {
			return err
		}
		if invite == nil {
			return xerr.ErrInviteNotFound
		}

		isAdmin, err := s.teams.UserIsTeamAdmin(ctx, invite.TeamID, actorID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return xerr.ErrPermissionDenied
		}

		if invite.Status != models.InviteStatusPending {
			return xerr.ErrInviteNotPending
		}

		invite.Status = models.InviteStatusRevoked
		if err := s.inviteRepo.UpdateTx(tx, invite); err != nil {
			return err
		}

		s.auditRec.Record(ctx, audit.Event{
			TeamID:     invite.TeamID,
			UserID:     actorID,
			Action:     models.AuditActionInviteRevoke,
			EntityType: "team_invite",
			EntityID:   &invite.ID,
		})
		return nil
	})
}

func (s *inviteService) ListInvites(ctx context.Context, actorID, teamID uint64) ([]models.TeamInvite, error) {
	isAdmin, err := s.teams.UserIsTeamAdmin(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, xerr.ErrPermissionDenied
	}
	return s.inviteRepo.ListByTeam(ctx, teamID)
}

// enqueueInviteEmail 投递邀请邮件任务，尽力而为
func (s *inviteService) enqueueInviteEmail(invite *models.TeamInvite) {
	if s.mqClient == nil {
		logger.Warn("enqueueInviteEmail: 未配置消息队列，邀请邮件丢弃", zap.Uint64("inviteID", invite.ID))
		return
	}
	job := mq.InviteEmailJob{
		To:        invite.Email,
		InviteURL: fmt.Sprintf("%s/invites/%s", s.cfg.Server.BaseURL, invite.InviteToken),
		Role:      string(invite.Role),
	}
	if err := s.mqClient.PublishJSON(mq.ShareEmailQueue, job); err != nil {
		logger.Error("enqueueInviteEmail: 邀请邮件投递失败", zap.String("to", job.To), zap.Error(err))
	}
}
