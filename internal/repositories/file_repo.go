package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/skieshare/skieshare/internal/models"
	"gorm.io/gorm"
)

type FileRepository interface {
	Create(ctx context.Context, file *models.File) error
	// CreateTx 在调用方事务内插入文件行，与配额更新同事务提交
	CreateTx(tx *gorm.DB, file *models.File) error
	FindByID(ctx context.Context, fileID uint64) (*models.File, error)
	FindByShareCode(ctx context.Context, code string) (*models.File, error)
	ListByFolder(ctx context.Context, userID uint64, parentFolderID *uint64) ([]models.File, error)
	// ListByFolderID 列出某个文件夹下的全部文件，不限所有者
	// 文件夹分享在访问时实时取列表，不做快照
	ListByFolderID(ctx context.Context, folderID uint64) ([]models.File, error)
	Update(ctx context.Context, file *models.File) error
	SoftDelete(ctx context.Context, fileID uint64) error
	// Restore 把回收站中的文件恢复为正常状态
	Restore(ctx context.Context, fileID uint64) error
	PermanentDeleteTx(tx *gorm.DB, fileID uint64) error
	// IncrementDownloadCountTx 原子递增下载计数 (count = count + 1)
	// 绝不能读改写，否则并发下载会丢计数
	IncrementDownloadCountTx(tx *gorm.DB, fileID uint64) error
	ShareCodeExists(ctx context.Context, code string) (bool, error)
}

type fileRepository struct {
	db *gorm.DB
}

var _ FileRepository = (*fileRepository)(nil)

// NewFileRepository 创建新的 fileRepository 实例
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, file *models.File) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *fileRepository) CreateTx(tx *gorm.DB, file *models.File) error {
	return tx.Create(file).Error
}

func (r *fileRepository) FindByID(ctx context.Context, fileID uint64) (*models.File, error) {
	var file models.File
	err := r.db.WithContext(ctx).Where("id = ?", fileID).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询文件失败: %w", err)
	}
	return &file, nil
}

// 根据分享码查找文件，分享码全局唯一
func (r *fileRepository) FindByShareCode(ctx context.Context, code string) (*models.File, error) {
	var file models.File
	err := r.db.WithContext(ctx).Where("share_code = ?", code).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("按分享码查询文件失败: %w", err)
	}
	return &file, nil
}

func (r *fileRepository) ListByFolder(ctx context.Context, userID uint64, parentFolderID *uint64) ([]models.File, error) {
	var files []models.File
	query := r.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, models.StatusNormal)
	if parentFolderID == nil {
		query = query.Where("parent_folder_id IS NULL")
	} else {
		query = query.Where("parent_folder_id = ?", *parentFolderID)
	}
	if err := query.Order("filename asc").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("查询文件列表失败: %w", err)
	}
	return files, nil
}

func (r *fileRepository) ListByFolderID(ctx context.Context, folderID uint64) ([]models.File, error) {
	var files []models.File
	err := r.db.WithContext(ctx).
		Where("parent_folder_id = ? AND status = ?", folderID, models.StatusNormal).
		Order("filename asc").Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("查询文件夹内容失败: %w", err)
	}
	return files, nil
}

func (r *fileRepository) Update(ctx context.Context, file *models.File) error {
	return r.db.WithContext(ctx).Save(file).Error
}

func (r *fileRepository) SoftDelete(ctx context.Context, fileID uint64) error {
	err := r.db.WithContext(ctx).Model(&models.File{}).Where("id = ?", fileID).
		UpdateColumn("status", models.StatusDeleted).Error
	if err != nil {
		return fmt.Errorf("软删除文件失败: %w", err)
	}
	return nil
}

func (r *fileRepository) Restore(ctx context.Context, fileID uint64) error {
	err := r.db.WithContext(ctx).Model(&models.File{}).Where("id = ?", fileID).
		UpdateColumn("status", models.StatusNormal).Error
	if err != nil {
		return fmt.Errorf("恢复文件失败: %w", err)
	}
	return nil
}

func (r *fileRepository) PermanentDeleteTx(tx *gorm.DB, fileID uint64) error {
	return tx.Unscoped().Delete(&models.File{}, fileID).Error
}

func (r *fileRepository) IncrementDownloadCountTx(tx *gorm.DB, fileID uint64) error {
	err := tx.Model(&models.File{}).Where("id = ?", fileID).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
	if err != nil {
		return fmt.Errorf("递增文件下载计数失败: %w", err)
	}
	return nil
}

func (r *fileRepository) ShareCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.File{}).Where("share_code = ?", code).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("检查分享码唯一性失败: %w", err)
	}
	return count > 0, nil
}
