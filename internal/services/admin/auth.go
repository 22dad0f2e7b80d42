package admin

import (
	"context"
	"fmt"

	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/utils"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/skieshare/skieshare/internal/services/quota"
	"go.uber.org/zap"
)

// TokenPair 登录返回的令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService 定义了注册登录需要实现的接口
type AuthService interface {
	RegisterUser(ctx context.Context, username, password, email string) (*models.User, error)
	LoginUser(ctx context.Context, username, password string) (*TokenPair, error)
	// RefreshToken 用合法的 refresh token 换新的令牌对
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
}

type authService struct {
	userRepo repositories.UserRepository
	cfg      *config.Config
}

// 确保authService实现了AuthService的方法
var _ AuthService = (*authService)(nil)

func NewAuthService(userRepo repositories.UserRepository, cfg *config.Config) AuthService {
	return &authService{userRepo: userRepo, cfg: cfg}
}

func (s *authService) RegisterUser(ctx context.Context, username, password, email string) (*models.User, error) {
	//检查用户名是否存在
	existingUser, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("检查用户名是否存在失败: %w", err)
	}
	if existingUser != nil {
		return nil, xerr.ErrUserAlreadyExists
	}

	//检查邮箱是否存在
	existingUser, err = s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("检查邮箱是否存在失败: %w", err)
	}
	if existingUser != nil {
		return nil, xerr.ErrEmailAlreadyExists
	}

	//哈希密码
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	// 新用户默认 free 套餐，配额按套餐配置取
	user := &models.User{
		Username:         username,
		PasswordHash:     hashedPassword,
		Email:            email,
		SubscriptionTier: models.TierFree,
		StorageLimit:     quota.StorageLimitForTier(&s.cfg.Quota, models.TierFree),
		Status:           models.UserStatusNormal,
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	logger.Info("RegisterUser: 用户注册成功", zap.String("username", user.Username))
	return user, nil
}

func (s *authService) LoginUser(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if user == nil || user.Status != models.UserStatusNormal {
		return nil, xerr.ErrInvalidCredentials
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, xerr.ErrInvalidCredentials
	}
	return s.issueTokens(user)
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := utils.ParseToken(refreshToken, s.cfg.JWT.SecretKey)
	if err != nil {
		return nil, xerr.ErrTokenInvalid
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if user == nil || user.Status != models.UserStatusNormal {
		return nil, xerr.ErrTokenInvalid
	}
	return s.issueTokens(user)
}

func (s *authService) issueTokens(user *models.User) (*TokenPair, error) {
	access, err := utils.GenerateToken(user.ID, user.Username, user.Email,
		s.cfg.JWT.SecretKey, s.cfg.JWT.Issuer, s.cfg.JWT.ExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("生成访问令牌失败: %w", err)
	}
	refresh, err := utils.GenerateToken(user.ID, user.Username, user.Email,
		s.cfg.JWT.SecretKey, s.cfg.JWT.Issuer, s.cfg.JWT.RefreshExpireHours)
	if err != nil {
		return nil, fmt.Errorf("生成刷新令牌失败: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
