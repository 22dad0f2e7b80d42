package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/skieshare/skieshare/internal/models"
	"gorm.io/gorm"
)

type SpaceRepository interface {
	Create(ctx context.Context, space *models.Space) error
	FindByID(ctx context.Context, spaceID uint64) (*models.Space, error)
	ListByTeam(ctx context.Context, teamID uint64, includeArchived bool) ([]models.Space, error)
	Update(ctx context.Context, space *models.Space) error
	Delete(ctx context.Context, spaceID uint64) error
}

type spaceRepository struct {
	db *gorm.DB
}

var _ SpaceRepository = (*spaceRepository)(nil)

// NewSpaceRepository 创建新的 spaceRepository 实例
func NewSpaceRepository(db *gorm.DB) SpaceRepository {
	return &spaceRepository{db: db}
}

func (r *spaceRepository) Create(ctx context.Context, space *models.Space) error {
	return r.db.WithContext(ctx).Create(space).Error
}

func (r *spaceRepository) FindByID(ctx context.Context, spaceID uint64) (*models.Space, error) {
	var space models.Space
	err := r.db.WithContext(ctx).Where("id = ?", spaceID).First(&space).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询空间失败: %w", err)
	}
	return &space, nil
}

func (r *spaceRepository) ListByTeam(ctx context.Context, teamID uint64, includeArchived bool) ([]models.Space, error) {
	var spaces []models.Space
	query := r.db.WithContext(ctx).Where("team_id = ?", teamID)
	if !includeArchived {
		query = query.Where("is_archived = ?", false)
	}
	if err := query.Order("name asc").Find(&spaces).Error; err != nil {
		return nil, fmt.Errorf("查询团队空间列表失败: %w", err)
	}
	return spaces, nil
}

func (r *spaceRepository) Update(ctx context.Context, space *models.Space) error {
	return r.db.WithContext(ctx).Save(space).Error
}

func (r *spaceRepository) Delete(ctx context.Context, spaceID uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Space{}, spaceID).Error
}
