package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/skieshare/skieshare/internal/models"
	"gorm.io/gorm"
)

type TeamRepository interface {
	CreateTx(tx *gorm.DB, team *models.Team) error
	FindByID(ctx context.Context, teamID uint64) (*models.Team, error)
	// ListByUserID 列出用户所属的团队（含作为 admin 的团队）
	ListByUserID(ctx context.Context, userID uint64) ([]models.Team, error)
	Delete(ctx context.Context, teamID uint64) error

	AddMember(ctx context.Context, member *models.TeamMember) error
	AddMemberTx(tx *gorm.DB, member *models.TeamMember) error
	FindMember(ctx context.Context, teamID, userID uint64) (*models.TeamMember, error)
	FindMemberTx(tx *gorm.DB, teamID, userID uint64) (*models.TeamMember, error)
	ListMembers(ctx context.Context, teamID uint64) ([]models.TeamMember, error)
	UpdateMember(ctx context.Context, member *models.TeamMember) error
	RemoveMember(ctx context.Context, teamID, userID uint64) error

	CreateFileShare(ctx context.Context, share *models.TeamFileShare) error
	FindFileShare(ctx context.Context, teamID, fileID uint64) (*models.TeamFileShare, error)
	ListTeamFiles(ctx context.Context, teamID uint64, spaceID *uint64) ([]models.TeamFileShare, error)
	// ListFileTeams 列出一个文件被共享到的所有团队
	ListFileTeams(ctx context.Context, fileID uint64) ([]models.TeamFileShare, error)
	DeleteFileShare(ctx context.Context, teamID, fileID uint64) error
}

type teamRepository struct {
	db *gorm.DB
}

var _ TeamRepository = (*teamRepository)(nil)

// NewTeamRepository 创建新的 teamRepository 实例
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) CreateTx(tx *gorm.DB, team *models.Team) error {
	return tx.Create(team).Error
}

func (r *teamRepository) FindByID(ctx context.Context, teamID uint64) (*models.Team, error) {
	var team models.Team
	err := r.db.WithContext(ctx).Where("id = ?", teamID).First(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询团队失败: %w", err)
	}
	return &team, nil
}

func (r *teamRepository) ListByUserID(ctx context.Context, userID uint64) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.WithContext(ctx).
		Joins("LEFT JOIN team_members ON team_members.team_id = teams.id").
		Where("teams.admin_id = ? OR team_members.user_id = ?", userID, userID).
		Group("teams.id").
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("查询用户所属团队失败: %w", err)
	}
	return teams, nil
}

func (r *teamRepository) Delete(ctx context.Context, teamID uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Team{}, teamID).Error
}

func (r *teamRepository) AddMember(ctx context.Context, member *models.TeamMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *teamRepository) AddMemberTx(tx *gorm.DB, member *models.TeamMember) error {
	return tx.Create(member).Error
}

func (r *teamRepository) FindMember(ctx context.Context, teamID, userID uint64) (*models.TeamMember, error) {
	var member models.TeamMember
	err := r.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询团队成员失败: %w", err)
	}
	return &member, nil
}

func (r *teamRepository) FindMemberTx(tx *gorm.DB, teamID, userID uint64) (*models.TeamMember, error) {
	var member models.TeamMember
	err := tx.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询团队成员失败: %w", err)
	}
	return &member, nil
}

func (r *teamRepository) ListMembers(ctx context.Context, teamID uint64) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).
		Order("joined_at asc").Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("查询团队成员列表失败: %w", err)
	}
	return members, nil
}

func (r *teamRepository) UpdateMember(ctx context.Context, member *models.TeamMember) error {
	return r.db.WithContext(ctx).Save(member).Error
}

func (r *teamRepository) RemoveMember(ctx context.Context, teamID, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMember{}).Error
}

func (r *teamRepository) CreateFileShare(ctx context.Context, share *models.TeamFileShare) error {
	return r.db.WithContext(ctx).Create(share).Error
}

func (r *teamRepository) FindFileShare(ctx context.Context, teamID, fileID uint64) (*models.TeamFileShare, error) {
	var share models.TeamFileShare
	err := r.db.WithContext(ctx).Where("team_id = ? AND file_id = ?", teamID, fileID).First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询团队文件共享失败: %w", err)
	}
	return &share, nil
}

func (r *teamRepository) ListTeamFiles(ctx context.Context, teamID uint64, spaceID *uint64) ([]models.TeamFileShare, error) {
	var shares []models.TeamFileShare
	query := r.db.WithContext(ctx).Preload("File").Where("team_id = ?", teamID)
	if spaceID != nil {
		query = query.Where("space_id = ?", *spaceID)
	}
	err := query.Order("created_at desc").Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("查询团队文件列表失败: %w", err)
	}
	return shares, nil
}

func (r *teamRepository) ListFileTeams(ctx context.Context, fileID uint64) ([]models.TeamFileShare, error) {
	var shares []models.TeamFileShare
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("查询文件所属团队共享失败: %w", err)
	}
	return shares, nil
}

func (r *teamRepository) DeleteFileShare(ctx context.Context, teamID, fileID uint64) error {
	return r.db.WithContext(ctx).
		Where("team_id = ? AND file_id = ?", teamID, fileID).
		Delete(&models.TeamFileShare{}).Error
}
