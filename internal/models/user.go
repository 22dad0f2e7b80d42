package models

import (
	"time"

	"gorm.io/gorm"
)

// 订阅套餐
const (
	TierFree  = "free"
	TierBasic = "basic"
	TierPro   = "pro" // pro 不限制存储空间
)

// 免费套餐默认存储空间上限 (6GB)
const DefaultFreeStorageLimit uint64 = 6442450944

const (
	UserStatusDisabled = 0
	UserStatusNormal   = 1
)

// User 对应 users 表，包含每个用户的存储配额信息
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"type:varchar(64);unique;not null" json:"username"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"` // - 表示不输出到 JSON
	Email        string `gorm:"type:varchar(255);unique;not null" json:"email"`

	// 存储配额，上传前必须通过配额检查
	StorageUsed      uint64 `gorm:"type:bigint unsigned;not null;default:0" json:"storage_used"`
	StorageLimit     uint64 `gorm:"type:bigint unsigned;not null;default:6442450944" json:"storage_limit"`
	SubscriptionTier string `gorm:"type:varchar(16);not null;default:'free'" json:"subscription_tier"`

	// 每日上传计数，跨过 reset 时间点后清零
	DailyUploadCount   uint32     `gorm:"type:int unsigned;not null;default:0" json:"daily_upload_count"`
	DailyUploadResetAt *time.Time `gorm:"default:null" json:"daily_upload_reset_at"`

	Status uint8 `gorm:"type:tinyint unsigned;not null;default:1" json:"status"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定 GORM 使用的表名
func (User) TableName() string {
	return "users"
}

// StorageUnlimited 判断该用户是否不受存储配额限制
func (u *User) StorageUnlimited() bool {
	return u.SubscriptionTier == TierPro
}
