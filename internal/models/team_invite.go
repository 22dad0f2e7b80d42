package models

import (
	"time"
)

// InviteStatus 邀请状态，状态迁移单向:
// pending -> accepted | expired | revoked，三个终态不可再变更
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusExpired  InviteStatus = "expired"
	InviteStatusRevoked  InviteStatus = "revoked"
)

// Terminal 判断是否为终态
func (s InviteStatus) Terminal() bool {
	return s == InviteStatusAccepted || s == InviteStatusExpired || s == InviteStatusRevoked
}

// TeamInvite 对应 team_invites 表，邀请记录不复用
type TeamInvite struct {
	ID          uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID      uint64       `gorm:"not null;index" json:"team_id"`
	Email       string       `gorm:"type:varchar(255);not null" json:"email"`
	Role        TeamRole     `gorm:"type:varchar(16);not null;default:'member'" json:"role"`
	InviteToken string       `gorm:"type:varchar(64);unique;not null" json:"invite_token"`
	Status      InviteStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	ExpiresAt   time.Time    `gorm:"not null" json:"expires_at"`
	AcceptedAt  *time.Time   `gorm:"default:null" json:"accepted_at"`

	InvitedByUserID uint64    `gorm:"not null" json:"invited_by_user_id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Team *Team `gorm:"foreignKey:TeamID" json:"-"`
}

// TableName 指定 GORM 使用的表名
func (TeamInvite) TableName() string {
	return "team_invites"
}
