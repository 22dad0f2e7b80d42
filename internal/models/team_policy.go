package models

import "time"

// TeamPolicy 对应 team_policies 表，与 Team 一对一
// require_password_for_shares 为 true 时，创建无密码分享必须被拒绝
type TeamPolicy struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID uint64 `gorm:"not null;uniqueIndex" json:"team_id"`

	AllowExternalSharing     bool `gorm:"not null;default:true" json:"allow_external_sharing"`
	RequirePasswordForShares bool `gorm:"not null;default:false" json:"require_password_for_shares"`
	Require2FA               bool `gorm:"not null;default:false" json:"require_2fa"`

	DefaultShareExpiryDays int    `gorm:"not null;default:0" json:"default_share_expiry_days"` // 0 表示不默认过期
	MaxFileSizeMB          int    `gorm:"not null;default:0" json:"max_file_size_mb"`          // 0 表示不限制
	RetentionDays          int    `gorm:"not null;default:0" json:"retention_days"`
	AutoJoinDomain         string `gorm:"type:varchar(255);not null;default:''" json:"auto_join_domain"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Team *Team `gorm:"foreignKey:TeamID" json:"-"`
}

// TableName 指定 GORM 使用的表名
func (TeamPolicy) TableName() string {
	return "team_policies"
}

// DefaultTeamPolicy 返回新团队的默认策略
func DefaultTeamPolicy(teamID uint64) *TeamPolicy {
	return &TeamPolicy{
		TeamID:               teamID,
		AllowExternalSharing: true,
	}
}
