package admin

import (
	"context"

	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/skieshare/skieshare/internal/services/quota"
)

// Profile 用户资料及配额使用情况
type Profile struct {
	User  *models.User `json:"user"`
	Usage *quota.Usage `json:"usage"`
}

// UserService 定义了用户资料管理需要实现的接口
type UserService interface {
	GetProfile(ctx context.Context, userID uint64) (*Profile, error)
	// ChangeSubscriptionTier 切换订阅套餐并同步存储上限
	ChangeSubscriptionTier(ctx context.Context, userID uint64, tier string) (*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
	quota    quota.Service
	cfg      *config.Config
}

var _ UserService = (*userService)(nil)

func NewUserService(userRepo repositories.UserRepository, quotaSvc quota.Service, cfg *config.Config) UserService {
	return &userService{userRepo: userRepo, quota: quotaSvc, cfg: cfg}
}

func (s *userService) GetProfile(ctx context.Context, userID uint64) (*Profile, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, xerr.ErrUserNotFound
	}
	usage, err := s.quota.GetUsage(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Usage: usage}, nil
}

func (s *userService) ChangeSubscriptionTier(ctx context.Context, userID uint64, tier string) (*models.User, error) {
	switch tier {
	case models.TierFree, models.TierBasic, models.TierPro:
	default:
		return nil, xerr.ErrInvalidParams
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, xerr.ErrUserNotFound
	}

	user.SubscriptionTier = tier
	user.StorageLimit = quota.StorageLimitForTier(&s.cfg.Quota, tier)
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
