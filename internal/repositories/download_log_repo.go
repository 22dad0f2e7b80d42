package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/skieshare/skieshare/internal/models"
	"gorm.io/gorm"
)

// BucketCount 按时间桶聚合的下载次数
type BucketCount struct {
	BucketStart time.Time `json:"bucket_start"`
	Count       int64     `json:"count"`
}

type DownloadLogRepository interface {
	// CreateTx 在事务内追加下载日志，和计数递增同事务提交
	CreateTx(tx *gorm.DB, log *models.DownloadLog) error
	CountByFileSince(ctx context.Context, fileID uint64, since time.Time) (int64, error)
	// BucketCounts 把 [since, until) 内的下载按 bucket 时长分桶计数
	BucketCounts(ctx context.Context, fileID uint64, since, until time.Time, bucket time.Duration) ([]BucketCount, error)
	ListByFile(ctx context.Context, fileID uint64, page, pageSize int) ([]models.DownloadLog, int64, error)
}

type downloadLogRepository struct {
	db *gorm.DB
}

var _ DownloadLogRepository = (*downloadLogRepository)(nil)

// NewDownloadLogRepository 创建新的 downloadLogRepository 实例
func NewDownloadLogRepository(db *gorm.DB) DownloadLogRepository {
	return &downloadLogRepository{db: db}
}

func (r *downloadLogRepository) CreateTx(tx *gorm.DB, log *models.DownloadLog) error {
	return tx.Create(log).Error
}

func (r *downloadLogRepository) CountByFileSince(ctx context.Context, fileID uint64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DownloadLog{}).
		Where("file_id = ? AND created_at >= ?", fileID, since).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计下载次数失败: %w", err)
	}
	return count, nil
}

func (r *downloadLogRepository) BucketCounts(ctx context.Context, fileID uint64, since, until time.Time, bucket time.Duration) ([]BucketCount, error) {
	bucketSeconds := int64(bucket / time.Second)
	if bucketSeconds <= 0 {
		bucketSeconds = 3600
	}

	type row struct {
		Bucket int64
		Cnt    int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.DownloadLog{}).
		Select("FLOOR(UNIX_TIMESTAMP(created_at) / ?) AS bucket, COUNT(*) AS cnt", bucketSeconds).
		Where("file_id = ? AND created_at >= ? AND created_at < ?", fileID, since, until).
		Group("bucket").Order("bucket asc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("聚合下载统计失败: %w", err)
	}

	counts := make([]BucketCount, 0, len(rows))
	for _, rw := range rows {
		counts = append(counts, BucketCount{
			BucketStart: time.Unix(rw.Bucket*bucketSeconds, 0).UTC(),
			Count:       rw.Cnt,
		})
	}
	return counts, nil
}

func (r *downloadLogRepository) ListByFile(ctx context.Context, fileID uint64, page, pageSize int) ([]models.DownloadLog, int64, error) {
	var logs []models.DownloadLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.DownloadLog{}).Where("file_id = ?", fileID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计下载日志失败: %w", err)
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询下载日志失败: %w", err)
	}
	return logs, total, nil
}
