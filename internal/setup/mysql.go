package setup

import (
	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// InitMySQL 初始化 MySQL 数据库连接
func InitMySQL(cfg *config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to MySQL database", zap.Error(err))
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get generic database object from GORM", zap.Error(err))
		return nil, err
	}

	// 设置连接池参数
	sqlDB.SetMaxIdleConns(10)  // 最大空闲连接数
	sqlDB.SetMaxOpenConns(100) // 最大打开连接数

	logger.Info("成功连接MySQL数据库!")

	// 自动迁移数据库表结构
	if err := autoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// autoMigrate 自动迁移数据库表结构
func autoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Folder{},
		&models.File{},
		&models.SharedLink{},
		&models.DownloadLog{},
		&models.Team{},
		&models.TeamMember{},
		&models.TeamInvite{},
		&models.TeamFileShare{},
		&models.Space{},
		&models.TeamPolicy{},
		&models.AuditLog{},
	)
	if err != nil {
		logger.Error("Failed to auto migrate database tables", zap.Error(err))
		return err
	}
	logger.Info("Database tables migrated successfully!")
	return nil
}
