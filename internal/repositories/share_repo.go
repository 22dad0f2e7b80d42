package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/skieshare/skieshare/internal/models"
	"gorm.io/gorm"
)

type SharedLinkRepository interface {
	Create(ctx context.Context, link *models.SharedLink) error
	FindByToken(ctx context.Context, token string) (*models.SharedLink, error)
	FindByID(ctx context.Context, linkID uint64) (*models.SharedLink, error)
	// FindActiveByFileID 查找文件当前有效的分享链接
	FindActiveByFileID(ctx context.Context, fileID uint64) (*models.SharedLink, error)
	FindActiveByFolderID(ctx context.Context, folderID uint64) (*models.SharedLink, error)
	FindAllByOwner(ctx context.Context, ownerID uint64, page, pageSize int) ([]models.SharedLink, int64, error)
	Update(ctx context.Context, link *models.SharedLink) error
	Delete(ctx context.Context, linkID uint64) error // 逻辑删除分享链接
	// IncrementDownloadCountTx 原子递增链接下载计数
	IncrementDownloadCountTx(tx *gorm.DB, linkID uint64) error
}

type sharedLinkRepository struct {
	db *gorm.DB
}

var _ SharedLinkRepository = (*sharedLinkRepository)(nil)

// NewSharedLinkRepository 创建新的 sharedLinkRepository 实例
func NewSharedLinkRepository(db *gorm.DB) SharedLinkRepository {
	return &sharedLinkRepository{db: db}
}

// 创建新的数据库记录
func (r *sharedLinkRepository) Create(ctx context.Context, link *models.SharedLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// 根据token查找记录
func (r *sharedLinkRepository) FindByToken(ctx context.Context, token string) (*models.SharedLink, error) {
	var link models.SharedLink
	// Preload 关联的文件/文件夹，方便调用方展示
	err := r.db.WithContext(ctx).Preload("File").Preload("Folder").
		Where("share_token = ?", token).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询分享链接失败: %w", err)
	}
	return &link, nil
}

func (r *sharedLinkRepository) FindByID(ctx context.Context, linkID uint64) (*models.SharedLink, error) {
	var link models.SharedLink
	err := r.db.WithContext(ctx).Where("id = ?", linkID).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询分享链接失败: %w", err)
	}
	return &link, nil
}

func (r *sharedLinkRepository) FindActiveByFileID(ctx context.Context, fileID uint64) (*models.SharedLink, error) {
	var link models.SharedLink
	err := r.db.WithContext(ctx).
		Where("file_id = ? AND is_active = ?", fileID, true).
		Order("created_at desc").First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询文件分享状态失败: %w", err)
	}
	return &link, nil
}

func (r *sharedLinkRepository) FindActiveByFolderID(ctx context.Context, folderID uint64) (*models.SharedLink, error) {
	var link models.SharedLink
	err := r.db.WithContext(ctx).
		Where("folder_id = ? AND is_active = ?", folderID, true).
		Order("created_at desc").First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询文件夹分享状态失败: %w", err)
	}
	return &link, nil
}

// 查找特定用户创建的所有分享记录（通过文件/文件夹所有权关联）
func (r *sharedLinkRepository) FindAllByOwner(ctx context.Context, ownerID uint64, page, pageSize int) ([]models.SharedLink, int64, error) {
	var links []models.SharedLink
	var total int64

	offset := (page - 1) * pageSize
	query := r.db.WithContext(ctx).Model(&models.SharedLink{}).
		Joins("LEFT JOIN files ON files.id = shared_links.file_id").
		Joins("LEFT JOIN folders ON folders.id = shared_links.folder_id").
		Where("files.user_id = ? OR folders.user_id = ?", ownerID, ownerID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计分享总数失败: %w", err)
	}

	err := query.Order("shared_links.created_at desc").Offset(offset).Limit(pageSize).
		Preload("File").Preload("Folder").Find(&links).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询分享列表失败: %w", err)
	}
	return links, total, nil
}

// 更新数据库记录
func (r *sharedLinkRepository) Update(ctx context.Context, link *models.SharedLink) error {
	return r.db.WithContext(ctx).Save(link).Error
}

// 软删除记录(设置deleted_at字段)
func (r *sharedLinkRepository) Delete(ctx context.Context, linkID uint64) error {
	return r.db.WithContext(ctx).Delete(&models.SharedLink{}, linkID).Error
}

func (r *sharedLinkRepository) IncrementDownloadCountTx(tx *gorm.DB, linkID uint64) error {
	err := tx.Model(&models.SharedLink{}).Where("id = ?", linkID).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
	if err != nil {
		return fmt.Errorf("递增链接下载计数失败: %w", err)
	}
	return nil
}
