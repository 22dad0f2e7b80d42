package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByUsername 查询用户，不存在时返回 nil
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	// LockUserTx 在事务内加行锁读取用户，用于配额的事务内复核
	LockUserTx(tx *gorm.DB, userID uint64) (*models.User, error)
	// AddStorageUsedTx 在事务内原子增减 storage_used，delta 可为负
	AddStorageUsedTx(tx *gorm.DB, userID uint64, delta int64) error
	// IncrementDailyUploadTx 在事务内原子递增每日上传计数
	IncrementDailyUploadTx(tx *gorm.DB, userID uint64) error
	// ResetDailyUploadTx 在事务内清零每日上传计数并更新 reset 时间点
	ResetDailyUploadTx(tx *gorm.DB, userID uint64, resetAt time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

var _ UserRepository = (*userRepository)(nil)

// NewUserRepository 创建一个新的 UserRepository 实例
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil {
		logger.Error("Error creating user", zap.Error(err))
		return err
	}
	return nil
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error("Error getting user by username", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error("Error getting user by email", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 用户不存在，返回 nil
		}
		logger.Error("Error getting user by ID", zap.Uint64("userID", id), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateUser(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Save(user).Error
	if err != nil {
		logger.Error("Error updating user", zap.Uint64("userID", user.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *userRepository) LockUserTx(tx *gorm.DB, userID uint64) (*models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("锁定用户行失败: %w", err)
	}
	return &user, nil
}

func (r *userRepository) AddStorageUsedTx(tx *gorm.DB, userID uint64, delta int64) error {
	// storage_used 是无符号列，负增量先在 SQL 层做下界保护
	expr := gorm.Expr("storage_used + ?", delta)
	if delta < 0 {
		expr = gorm.Expr("IF(storage_used >= ?, storage_used - ?, 0)", -delta, -delta)
	}
	err := tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("storage_used", expr).Error
	if err != nil {
		return fmt.Errorf("更新用户已用空间失败: %w", err)
	}
	return nil
}

func (r *userRepository) IncrementDailyUploadTx(tx *gorm.DB, userID uint64) error {
	err := tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("daily_upload_count", gorm.Expr("daily_upload_count + 1")).Error
	if err != nil {
		return fmt.Errorf("更新每日上传计数失败: %w", err)
	}
	return nil
}

func (r *userRepository) ResetDailyUploadTx(tx *gorm.DB, userID uint64, resetAt time.Time) error {
	err := tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumns(map[string]any{
			"daily_upload_count":    0,
			"daily_upload_reset_at": resetAt,
		}).Error
	if err != nil {
		return fmt.Errorf("重置每日上传计数失败: %w", err)
	}
	return nil
}
