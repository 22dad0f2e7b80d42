package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/skieshare/skieshare/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TeamInviteRepository interface {
	Create(ctx context.Context, invite *models.TeamInvite) error
	FindByToken(ctx context.Context, token string) (*models.TeamInvite, error)
	// FindByTokenForUpdateTx 在事务内加行锁读取邀请
	// 受理邀请必须持锁复核状态，防止并发双提交产生重复成员行
	FindByTokenForUpdateTx(tx *gorm.DB, token string) (*models.TeamInvite, error)
	FindByIDForUpdateTx(tx *gorm.DB, inviteID uint64) (*models.TeamInvite, error)
	Update(ctx context.Context, invite *models.TeamInvite) error
	UpdateTx(tx *gorm.DB, invite *models.TeamInvite) error
	ListByTeam(ctx context.Context, teamID uint64) ([]models.TeamInvite, error)
}

type teamInviteRepository struct {
	db *gorm.DB
}

var _ TeamInviteRepository = (*teamInviteRepository)(nil)

// NewTeamInviteRepository 创建新的 teamInviteRepository 实例
func NewTeamInviteRepository(db *gorm.DB) TeamInviteRepository {
	return &teamInviteRepository{db: db}
}

func (r *teamInviteRepository) Create(ctx context.Context, invite *models.TeamInvite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

func (r *teamInviteRepository) FindByToken(ctx context.Context, token string) (*models.TeamInvite, error) {
	var invite models.TeamInvite
	err := r.db.WithContext(ctx).Where("invite_token = ?", token).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询邀请失败: %w", err)
	}
	return &invite, nil
}

func (r *teamInviteRepository) FindByTokenForUpdateTx(tx *gorm.DB, token string) (*models.TeamInvite, error) {
	var invite models.TeamInvite
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("invite_token = ?", token).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("锁定邀请记录失败: %w", err)
	}
	return &invite, nil
}

func (r *teamInviteRepository) FindByIDForUpdateTx(tx *gorm.DB, inviteID uint64) (*models.TeamInvite, error) {
	var invite models.TeamInvite
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", inviteID).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("锁定邀请记录失败: %w", err)
	}
	return &invite, nil
}

func (r *teamInviteRepository) Update(ctx context.Context, invite *models.TeamInvite) error {
	return r.db.WithContext(ctx).Save(invite).Error
}

func (r *teamInviteRepository) UpdateTx(tx *gorm.DB, invite *models.TeamInvite) error {
	return tx.Save(invite).Error
}

func (r *teamInviteRepository) ListByTeam(ctx context.Context, teamID uint64) ([]models.TeamInvite, error) {
	var invites []models.TeamInvite
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).
		Order("created_at desc").Find(&invites).Error
	if err != nil {
		return nil, fmt.Errorf("查询团队邀请列表失败: %w", err)
	}
	return invites, nil
}
