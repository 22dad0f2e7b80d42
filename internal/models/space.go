package models

import (
	"time"

	"gorm.io/gorm"
)

// Space 对应 spaces 表，团队内的层级文件分组
// 通过 parent_space_id 构成树，与个人文件夹树相互独立
type Space struct {
	ID              uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID          uint64  `gorm:"not null;index" json:"team_id"`
	ParentSpaceID   *uint64 `gorm:"default:null" json:"parent_space_id"`
	Name            string  `gorm:"type:varchar(128);not null" json:"name"`
	Description     string  `gorm:"type:varchar(512);not null;default:''" json:"description"`
	CreatedByUserID uint64  `gorm:"not null" json:"created_by_user_id"`
	IsArchived      bool    `gorm:"not null;default:false" json:"is_archived"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Team        *Team  `gorm:"foreignKey:TeamID" json:"-"`
	ParentSpace *Space `gorm:"foreignKey:ParentSpaceID" json:"-"`
}

// TableName 指定 GORM 使用的表名
func (Space) TableName() string {
	return "spaces"
}
