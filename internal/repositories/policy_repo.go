package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/skieshare/skieshare/internal/models"
	"gorm.io/gorm"
)

type TeamPolicyRepository interface {
	CreateTx(tx *gorm.DB, policy *models.TeamPolicy) error
	// GetByTeamID 查询团队策略，不存在时返回 nil
	GetByTeamID(ctx context.Context, teamID uint64) (*models.TeamPolicy, error)
	Update(ctx context.Context, policy *models.TeamPolicy) error
}

type teamPolicyRepository struct {
	db *gorm.DB
}

var _ TeamPolicyRepository = (*teamPolicyRepository)(nil)

// NewTeamPolicyRepository 创建新的 teamPolicyRepository 实例
func NewTeamPolicyRepository(db *gorm.DB) TeamPolicyRepository {
	return &teamPolicyRepository{db: db}
}

func (r *teamPolicyRepository) CreateTx(tx *gorm.DB, policy *models.TeamPolicy) error {
	return tx.Create(policy).Error
}

func (r *teamPolicyRepository) GetByTeamID(ctx context.Context, teamID uint64) (*models.TeamPolicy, error) {
	var policy models.TeamPolicy
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询团队策略失败: %w", err)
	}
	return &policy, nil
}

func (r *teamPolicyRepository) Update(ctx context.Context, policy *models.TeamPolicy) error {
	return r.db.WithContext(ctx).Save(policy).Error
}
