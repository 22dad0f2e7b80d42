package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusDeleted  = 0 // 已删除 (软删除/回收站)
	StatusNormal   = 1 // 正常
	StatusBanned   = 2 // 被禁用
	StatusDeleting = 3 // 待删除 (进入异步删除队列)
)

// File 对应 files 表
type File struct {
	ID             uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID           string  `gorm:"type:varchar(36);unique;not null" json:"uuid"` // 文件在OSS中的唯一标识
	UserID         uint64  `gorm:"not null;index" json:"user_id"`
	ParentFolderID *uint64 `gorm:"default:null" json:"parent_folder_id"` // 父文件夹ID，根目录为 null
	FileName       string  `gorm:"type:varchar(255);not null" json:"filename"`
	Size           uint64  `gorm:"type:bigint unsigned;not null;default:0" json:"size"`
	MimeType       *string `gorm:"type:varchar(128);default:null" json:"mime_type"`
	OssBucket      *string `gorm:"type:varchar(64);default:null" json:"oss_bucket"`
	OssKey         *string `gorm:"type:varchar(255);default:null" json:"oss_key"`

	// 分享与访问控制相关字段
	IsPublic     bool    `gorm:"not null;default:false" json:"is_public"`
	IsLocked     bool    `gorm:"not null;default:false" json:"is_locked"`
	PasswordHash *string `gorm:"type:varchar(255);default:null" json:"-"`
	ShareCode    *string `gorm:"type:varchar(16);unique;default:null" json:"share_code"` // 短分享码，全局唯一

	// 下载计数与限制，count 只增不减；达到 limit 后拒绝访问
	DownloadCount uint64     `gorm:"type:bigint unsigned;not null;default:0" json:"download_count"`
	DownloadLimit *uint64    `gorm:"type:bigint unsigned;default:null" json:"download_limit"`
	ExpiresAt     *time.Time `gorm:"default:null" json:"expires_at"`

	Status    uint8          `gorm:"type:tinyint unsigned;not null;default:1" json:"status"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// 定义 GORM 关联，方便预加载
	User         *User   `gorm:"foreignKey:UserID" json:"-"`
	ParentFolder *Folder `gorm:"foreignKey:ParentFolderID" json:"-"`
}

// TableName 指定 GORM 使用的表名
func (File) TableName() string {
	return "files"
}

// Expired 判断文件在 now 时刻是否整体过期
func (f *File) Expired(now time.Time) bool {
	return f.ExpiresAt != nil && !now.Before(*f.ExpiresAt)
}

// LimitReached 判断文件是否已达到下载次数上限
func (f *File) LimitReached() bool {
	return f.DownloadLimit != nil && f.DownloadCount >= *f.DownloadLimit
}
