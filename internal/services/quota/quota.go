package quota

import (
	"context"
	"time"

	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"go.uber.org/zap"
)

// Usage 返回给前端的配额使用情况
type Usage struct {
	StorageUsed      uint64  `json:"storage_used"`
	StorageLimit     uint64  `json:"storage_limit"`
	AvailableSpace   uint64  `json:"available_space"`
	UsagePercent     float64 `json:"usage_percent"`
	SubscriptionTier string  `json:"subscription_tier"`
	Unlimited        bool    `json:"unlimited"`
}

// Allowed 是配额判定谓词: used + incoming <= limit，pro 套餐直接放行
// 纯函数，上传事务内持行锁复核时调用的也是它
func Allowed(user *models.User, incoming uint64) bool {
	if user.StorageUnlimited() {
		return true
	}
	return user.StorageUsed+incoming <= user.StorageLimit
}

// DailyUploadAllowed 判断每日上传次数是否还有余量
// 跨过重置时间点后计数视为 0；上限为 0 表示不限次数
func DailyUploadAllowed(user *models.User, limit uint32, now time.Time) bool {
	if limit == 0 {
		return true
	}
	if user.DailyUploadResetAt != nil && !now.Before(*user.DailyUploadResetAt) {
		return true // 已跨过重置点，计数尚未清零但视为新的一天
	}
	return user.DailyUploadCount < limit
}

// DailyUploadLimit 按套餐取每日上传次数上限
func DailyUploadLimit(cfg *config.QuotaConfig, tier string) uint32 {
	switch tier {
	case models.TierFree:
		return cfg.FreeDailyUploads
	case models.TierBasic:
		return cfg.BasicDailyUploads
	default:
		return 0 // pro 不限
	}
}

// StorageLimitForTier 按套餐取存储空间上限
func StorageLimitForTier(cfg *config.QuotaConfig, tier string) uint64 {
	switch tier {
	case models.TierBasic:
		return cfg.BasicStorageLimit
	case models.TierFree:
		if cfg.FreeStorageLimit > 0 {
			return cfg.FreeStorageLimit
		}
		return models.DefaultFreeStorageLimit
	default:
		return 0 // pro 不受限，limit 字段不参与判定
	}
}

// Service 配额评估服务
type Service interface {
	// CheckStorageQuota 判断用户能否再写入 incoming 字节
	// 这是快速路径检查；上传事务内还会持行锁复核一次
	CheckStorageQuota(ctx context.Context, userID uint64, incoming uint64) (bool, error)
	GetUsage(ctx context.Context, userID uint64) (*Usage, error)
}

type service struct {
	userRepo repositories.UserRepository
	cfg      *config.QuotaConfig
}

// NewService 创建配额评估服务
func NewService(userRepo repositories.UserRepository, cfg *config.QuotaConfig) Service {
	return &service{userRepo: userRepo, cfg: cfg}
}

func (s *service) CheckStorageQuota(ctx context.Context, userID uint64, incoming uint64) (bool, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		logger.Error("CheckStorageQuota: 查询用户失败", zap.Uint64("userID", userID), zap.Error(err))
		return false, err
	}
	if user == nil {
		return false, xerr.ErrUserNotFound
	}
	return Allowed(user, incoming), nil
}

func (s *service) GetUsage(ctx context.Context, userID uint64) (*Usage, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, xerr.ErrUserNotFound
	}

	usage := &Usage{
		StorageUsed:      user.StorageUsed,
		StorageLimit:     user.StorageLimit,
		SubscriptionTier: user.SubscriptionTier,
		Unlimited:        user.StorageUnlimited(),
	}
	if !usage.Unlimited && user.StorageLimit > 0 {
		if user.StorageUsed < user.StorageLimit {
			usage.AvailableSpace = user.StorageLimit - user.StorageUsed
		}
		usage.UsagePercent = float64(user.StorageUsed) / float64(user.StorageLimit) * 100
	}
	return usage, nil
}
