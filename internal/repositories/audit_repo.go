package repositories

import (
	"context"
	"fmt"

	"github.com/skieshare/skieshare/internal/models"
	"gorm.io/gorm"
)

type AuditLogRepository interface {
	// Create 追加一条审计记录，表只增不改
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByTeam(ctx context.Context, teamID uint64, page, pageSize int) ([]models.AuditLog, int64, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

var _ AuditLogRepository = (*auditLogRepository)(nil)

// NewAuditLogRepository 创建新的 auditLogRepository 实例
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("追加审计记录失败: %w", err)
	}
	return nil
}

func (r *auditLogRepository) ListByTeam(ctx context.Context, teamID uint64, page, pageSize int) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.AuditLog{}).Where("team_id = ?", teamID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计审计记录失败: %w", err)
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询审计记录失败: %w", err)
	}
	return logs, total, nil
}
