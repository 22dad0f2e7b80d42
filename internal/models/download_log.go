package models

import "time"

// 下载方式标签
const (
	DownloadMethodOwner     = "owner"      // 所有者直接下载
	DownloadMethodShareLink = "share_link" // 通过分享链接
	DownloadMethodShareCode = "share_code" // 通过分享码
	DownloadMethodTeam      = "team"       // 团队成员下载
)

// DownloadLog 对应 download_logs 表，只追加不修改
// download_count 和下载统计均由该表派生
type DownloadLog struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID       uint64  `gorm:"not null;index" json:"file_id"`
	SharedLinkID *uint64 `gorm:"index;default:null" json:"shared_link_id"`
	Method       string  `gorm:"type:varchar(16);not null" json:"method"`

	// 请求方元信息，仅用于分析
	RequesterUserID *uint64 `gorm:"default:null" json:"requester_user_id"`
	RequesterIP     string  `gorm:"type:varchar(64);not null;default:''" json:"requester_ip"`
	UserAgent       string  `gorm:"type:varchar(255);not null;default:''" json:"user_agent"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定 GORM 使用的表名
func (DownloadLog) TableName() string {
	return "download_logs"
}
