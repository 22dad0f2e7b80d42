package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/skieshare/skieshare/internal/models"
	"gorm.io/gorm"
)

type FolderRepository interface {
	Create(ctx context.Context, folder *models.Folder) error
	FindByID(ctx context.Context, folderID uint64) (*models.Folder, error)
	FindByShareCode(ctx context.Context, code string) (*models.Folder, error)
	ListChildren(ctx context.Context, userID uint64, parentFolderID *uint64) ([]models.Folder, error)
	Update(ctx context.Context, folder *models.Folder) error
	Delete(ctx context.Context, folderID uint64) error
	ShareCodeExists(ctx context.Context, code string) (bool, error)
}

type folderRepository struct {
	db *gorm.DB
}

var _ FolderRepository = (*folderRepository)(nil)

// NewFolderRepository 创建新的 folderRepository 实例
func NewFolderRepository(db *gorm.DB) FolderRepository {
	return &folderRepository{db: db}
}

func (r *folderRepository) Create(ctx context.Context, folder *models.Folder) error {
	return r.db.WithContext(ctx).Create(folder).Error
}

func (r *folderRepository) FindByID(ctx context.Context, folderID uint64) (*models.Folder, error) {
	var folder models.Folder
	err := r.db.WithContext(ctx).Where("id = ?", folderID).First(&folder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询文件夹失败: %w", err)
	}
	return &folder, nil
}

func (r *folderRepository) FindByShareCode(ctx context.Context, code string) (*models.Folder, error) {
	var folder models.Folder
	err := r.db.WithContext(ctx).Where("share_code = ?", code).First(&folder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("按分享码查询文件夹失败: %w", err)
	}
	return &folder, nil
}

func (r *folderRepository) ListChildren(ctx context.Context, userID uint64, parentFolderID *uint64) ([]models.Folder, error) {
	var folders []models.Folder
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if parentFolderID == nil {
		query = query.Where("parent_folder_id IS NULL")
	} else {
		query = query.Where("parent_folder_id = ?", *parentFolderID)
	}
	if err := query.Order("name asc").Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("查询子文件夹失败: %w", err)
	}
	return folders, nil
}

func (r *folderRepository) Update(ctx context.Context, folder *models.Folder) error {
	return r.db.WithContext(ctx).Save(folder).Error
}

func (r *folderRepository) Delete(ctx context.Context, folderID uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Folder{}, folderID).Error
}

func (r *folderRepository) ShareCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Folder{}).Where("share_code = ?", code).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("检查分享码唯一性失败: %w", err)
	}
	return count > 0, nil
}
