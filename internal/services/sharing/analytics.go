package sharing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skieshare/skieshare/internal/pkg/cache"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"go.uber.org/zap"
)

// DownloadStats 一个文件在给定时间窗口内的下载统计
type DownloadStats struct {
	FileID        uint64                     `json:"file_id"`
	WindowStart   time.Time                  `json:"window_start"`
	WindowEnd     time.Time                  `json:"window_end"`
	Total         int64                      `json:"total"`
	Buckets       []repositories.BucketCount `json:"buckets"`
	TrendPercent  float64                    `json:"trend_percent"` // 后半窗相对前半窗的增减百分比
	TotalAllTime  uint64                     `json:"total_all_time"`
}

const statsCacheTTL = 2 * time.Minute

// DownloadStats 聚合一个文件的下载统计，带短 TTL 缓存
// 统计是所有者视角的功能，非所有者直接拒绝
func (s *shareService) DownloadStats(ctx context.Context, ownerID, fileID uint64, window time.Duration, buckets int) (*DownloadStats, error) {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("查询文件失败: %w", err)
	}
	if file == nil {
		return nil, xerr.ErrFileNotFound
	}
	if file.UserID != ownerID {
		return nil, xerr.ErrPermissionDenied
	}

	if window <= 0 {
		window = 24 * time.Hour
	}
	if buckets <= 0 {
		buckets = 24
	}

	cacheKey := cache.GenerateDownloadStatsKey(fileID, int(window.Hours()))
	if s.cache != nil {
		var cached DownloadStats
		err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("DownloadStats: 读取统计缓存失败", zap.Uint64("fileID", fileID), zap.Error(err))
		}
	}

	now := s.now()
	since := now.Add(-window)
	bucketSize := window / time.Duration(buckets)

	counts, err := s.dlogRepo.BucketCounts(ctx, fileID, since, now, bucketSize)
	if err != nil {
		return nil, fmt.Errorf("聚合下载统计失败: %w", err)
	}
	total, err := s.dlogRepo.CountByFileSince(ctx, fileID, since)
	if err != nil {
		return nil, fmt.Errorf("统计下载总数失败: %w", err)
	}

	stats := &DownloadStats{
		FileID:       fileID,
		WindowStart:  since,
		WindowEnd:    now,
		Total:        total,
		Buckets:      counts,
		TrendPercent: trendPercent(counts, since, window),
		TotalAllTime: file.DownloadCount,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, statsCacheTTL); err != nil {
			logger.Warn("DownloadStats: 写入统计缓存失败", zap.Uint64("fileID", fileID), zap.Error(err))
		}
	}
	return stats, nil
}

// trendPercent 比较窗口前半段和后半段的下载量
// 前半段为零时：后半段有量记 +100%，否则 0
func trendPercent(counts []repositories.BucketCount, since time.Time, window time.Duration) float64 {
	mid := since.Add(window / 2)
	var first, second int64
	for _, c := range counts {
		if c.BucketStart.Before(mid) {
			first += c.Count
		} else {
			second += c.Count
		}
	}
	if first == 0 {
		if second > 0 {
			return 100
		}
		return 0
	}
	return float64(second-first) / float64(first) * 100
}
