package models

import (
	"time"

	"gorm.io/gorm"
)

// Folder 对应 folders 表，父子关系构成目录树
// 目录树必须无环，禁止把文件夹移动到自己的子孙目录下
type Folder struct {
	ID             uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID           string  `gorm:"type:varchar(36);unique;not null" json:"uuid"`
	UserID         uint64  `gorm:"not null;index" json:"user_id"`
	Name           string  `gorm:"type:varchar(255);not null" json:"name"`
	ParentFolderID *uint64 `gorm:"default:null" json:"parent_folder_id"` // 根目录为 null
	IsPublic       bool    `gorm:"not null;default:false" json:"is_public"`
	ShareCode      *string `gorm:"type:varchar(16);unique;default:null" json:"share_code"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	User         *User   `gorm:"foreignKey:UserID" json:"-"`
	ParentFolder *Folder `gorm:"foreignKey:ParentFolderID" json:"-"` // 自关联，获取父文件夹信息
}

// TableName 指定 GORM 使用的表名
func (Folder) TableName() string {
	return "folders"
}
