package models

import (
	"time"

	"gorm.io/gorm"
)

// 分享链接类型
const (
	LinkTypeDirect = "direct" // 直链分享，token 的不可猜测性即访问控制
	LinkTypeEmail  = "email"  // 邮件分享，记录收件人
	LinkTypeCode   = "code"   // 分享码分享，人工输入的短码
)

// SharedLink 对应 shared_links 表
// 一条链接可用当且仅当: is_active 且未过期 且未达下载上限 且(若有密码)密码校验通过
type SharedLink struct {
	ID       uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID   *uint64 `gorm:"index;default:null" json:"file_id"`   // 文件分享
	FolderID *uint64 `gorm:"index;default:null" json:"folder_id"` // 文件夹分享，访问时实时列出内容

	ShareToken string `gorm:"type:varchar(64);unique;not null" json:"share_token"` // 随机长 token，用于公开URL
	LinkType   string `gorm:"type:varchar(16);not null;default:'direct'" json:"link_type"`

	PasswordHash   *string `gorm:"type:varchar(255);default:null" json:"-"` // - 表示不输出到 JSON
	RecipientEmail *string `gorm:"type:varchar(255);default:null" json:"recipient_email"`
	Message        *string `gorm:"type:varchar(1024);default:null" json:"message"`

	DownloadLimit *uint64    `gorm:"type:bigint unsigned;default:null" json:"download_limit"`
	DownloadCount uint64     `gorm:"type:bigint unsigned;not null;default:0" json:"download_count"`
	ExpiresAt     *time.Time `gorm:"default:null" json:"expires_at"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// 关联模型，方便预加载
	File   *File   `gorm:"foreignKey:FileID" json:"-"`
	Folder *Folder `gorm:"foreignKey:FolderID" json:"-"`
}

// TableName 指定 GORM 使用的表名
func (SharedLink) TableName() string {
	return "shared_links"
}

// Expired 判断链接在 now 时刻是否已过期
func (l *SharedLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// LimitReached 判断链接是否已达到下载次数上限
func (l *SharedLink) LimitReached() bool {
	return l.DownloadLimit != nil && l.DownloadCount >= *l.DownloadLimit
}
