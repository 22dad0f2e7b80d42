package models

import (
	"time"

	"gorm.io/gorm"
)

// TeamRole 团队角色，按权限升序排列
type TeamRole string

const (
	RoleReadonly TeamRole = "readonly"
	RoleGuest    TeamRole = "guest"
	RoleMember   TeamRole = "member"
	RoleAdmin    TeamRole = "admin"
	RoleOwner    TeamRole = "owner"
)

// roleRanks 角色到等级的映射，权限比较用等级而不是字符串
var roleRanks = map[TeamRole]int{
	RoleReadonly: 0,
	RoleGuest:    1,
	RoleMember:   2,
	RoleAdmin:    3,
	RoleOwner:    4,
}

// Rank 返回角色等级，未知角色返回 -1
func (r TeamRole) Rank() int {
	rank, ok := roleRanks[r]
	if !ok {
		return -1
	}
	return rank
}

// Valid 判断是否为已定义的角色
func (r TeamRole) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// AtLeast 判断当前角色等级是否不低于 required
func (r TeamRole) AtLeast(required TeamRole) bool {
	return r.Valid() && required.Valid() && r.Rank() >= required.Rank()
}

// Capabilities 成员能力标志
// 入队时按角色派生后冗余存储在成员行上，可按成员单独覆盖，
// 之后的权限检查读存储值而不是按角色重算
type Capabilities struct {
	CanView          bool `json:"can_view"`
	CanEdit          bool `json:"can_edit"`
	CanShare         bool `json:"can_share"`
	CanManageMembers bool `json:"can_manage_members"`
}

// DefaultCapabilities 按角色派生默认能力标志
func DefaultCapabilities(role TeamRole) Capabilities {
	switch role {
	case RoleOwner, RoleAdmin:
		return Capabilities{CanView: true, CanEdit: true, CanShare: true, CanManageMembers: true}
	case RoleMember:
		return Capabilities{CanView: true, CanEdit: true, CanShare: true}
	case RoleGuest:
		return Capabilities{CanView: true, CanShare: false}
	default: // readonly 及未知角色仅可查看
		return Capabilities{CanView: true}
	}
}

// Team 对应 teams 表
// AdminID 对应的用户始终视为 owner，无论其成员行状态如何
type Team struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID    string `gorm:"type:varchar(36);unique;not null" json:"uuid"`
	AdminID uint64 `gorm:"not null;index" json:"admin_id"`
	Name    string `gorm:"type:varchar(128);not null" json:"name"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Admin   *User        `gorm:"foreignKey:AdminID" json:"-"`
	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

// TableName 指定 GORM 使用的表名
func (Team) TableName() string {
	return "teams"
}

// TeamMember 对应 team_members 表
type TeamMember struct {
	ID     uint64   `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID uint64   `gorm:"not null;uniqueIndex:idx_team_user" json:"team_id"`
	UserID uint64   `gorm:"not null;uniqueIndex:idx_team_user" json:"user_id"`
	Role   TeamRole `gorm:"type:varchar(16);not null;default:'member'" json:"role"`

	CanView          bool `gorm:"not null;default:true" json:"can_view"`
	CanEdit          bool `gorm:"not null;default:false" json:"can_edit"`
	CanShare         bool `gorm:"not null;default:false" json:"can_share"`
	CanManageMembers bool `gorm:"not null;default:false" json:"can_manage_members"`

	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Team *Team `gorm:"foreignKey:TeamID" json:"-"`
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName 指定 GORM 使用的表名
func (TeamMember) TableName() string {
	return "team_members"
}

// Capabilities 返回成员行上存储的能力标志
func (m *TeamMember) Capabilities() Capabilities {
	return Capabilities{
		CanView:          m.CanView,
		CanEdit:          m.CanEdit,
		CanShare:         m.CanShare,
		CanManageMembers: m.CanManageMembers,
	}
}

// ApplyCapabilities 把能力标志写回成员行
func (m *TeamMember) ApplyCapabilities(caps Capabilities) {
	m.CanView = caps.CanView
	m.CanEdit = caps.CanEdit
	m.CanShare = caps.CanShare
	m.CanManageMembers = caps.CanManageMembers
}

// TeamFileShare 对应 team_file_shares 表，把文件共享给团队
// 团队成员对该文件的访问由成员能力标志控制，而不是文件所有权
type TeamFileShare struct {
	ID             uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID         uint64  `gorm:"not null;uniqueIndex:idx_team_file" json:"team_id"`
	FileID         uint64  `gorm:"not null;uniqueIndex:idx_team_file" json:"file_id"`
	SpaceID        *uint64 `gorm:"index;default:null" json:"space_id"`
	SharedByUserID uint64  `gorm:"not null" json:"shared_by_user_id"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Team *Team `gorm:"foreignKey:TeamID" json:"-"`
	File *File `gorm:"foreignKey:FileID" json:"-"`
}

// TableName 指定 GORM 使用的表名
func (TeamFileShare) TableName() string {
	return "team_file_shares"
}
