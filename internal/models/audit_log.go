package models

import "time"

// 审计动作
const (
	AuditActionInviteSent    = "invite_sent"
	AuditActionInviteAccept  = "invite_accepted"
	AuditActionInviteRevoke  = "invite_revoked"
	AuditActionMemberRemoved = "member_removed"
	AuditActionMemberUpdated = "member_updated"
	AuditActionPolicyUpdated = "policy_updated"
	AuditActionSpaceCreated  = "space_created"
	AuditActionSpaceArchived = "space_archived"
	AuditActionFileShared    = "file_shared"
	AuditActionFileUnshared  = "file_unshared"
	AuditActionFileLocked    = "file_locked"
	AuditActionFileUnlocked  = "file_unlocked"
)

// AuditLog 对应 audit_logs 表，按团队维度追加，永不修改
// 审计写入是尽力而为的旁路，失败不得回滚所伴随的主操作
type AuditLog struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID     uint64  `gorm:"not null;index" json:"team_id"`
	UserID     uint64  `gorm:"not null" json:"user_id"`
	Action     string  `gorm:"type:varchar(64);not null" json:"action"`
	EntityType string  `gorm:"type:varchar(32);not null" json:"entity_type"`
	EntityID   *uint64 `gorm:"default:null" json:"entity_id"`
	Metadata   *string `gorm:"type:json;default:null" json:"metadata"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定 GORM 使用的表名
func (AuditLog) TableName() string {
	return "audit_logs"
}
