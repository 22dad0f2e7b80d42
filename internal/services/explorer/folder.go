package explorer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"go.uber.org/zap"
)

// FolderService 定义了文件夹管理需要实现的接口
type FolderService interface {
	CreateFolder(ctx context.Context, userID uint64, name string, parentFolderID *uint64) (*models.Folder, error)
	GetFolder(ctx context.Context, userID, folderID uint64) (*models.Folder, error)
	RenameFolder(ctx context.Context, userID, folderID uint64, newName string) error
	// MoveFolder 移动文件夹，目标不能是自身或自身的后代
	MoveFolder(ctx context.Context, userID, folderID uint64, targetFolderID *uint64) error
	DeleteFolder(ctx context.Context, userID, folderID uint64) error
}

type folderService struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
}

var _ FolderService = (*folderService)(nil)

// NewFolderService 创建一个新的 FolderService 实例
func NewFolderService(folderRepo repositories.FolderRepository, fileRepo repositories.FileRepository) FolderService {
	return &folderService{folderRepo: folderRepo, fileRepo: fileRepo}
}

func (s *folderService) CreateFolder(ctx context.Context, userID uint64, name string, parentFolderID *uint64) (*models.Folder, error) {
	if !validFileName(name) {
		return nil, xerr.ErrFileNameInvalid
	}
	if parentFolderID != nil {
		if _, err := s.ownedFolder(ctx, userID, *parentFolderID); err != nil {
			return nil, err
		}
	}

	folder := &models.Folder{
		UUID:           uuid.New().String(),
		UserID:         userID,
		Name:           name,
		ParentFolderID: parentFolderID,
	}
	if err := s.folderRepo.Create(ctx, folder); err != nil {
		logger.Error("CreateFolder: 创建文件夹失败", zap.Uint64("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("创建文件夹失败: %w", err)
	}
	return folder, nil
}

func (s *folderService) GetFolder(ctx context.Context, userID, folderID uint64) (*models.Folder, error) {
	return s.ownedFolder(ctx, userID, folderID)
}

func (s *folderService) RenameFolder(ctx context.Context, userID, folderID uint64, newName string) error {
	if !validFileName(newName) {
		return xerr.ErrFileNameInvalid
	}
	folder, err := s.ownedFolder(ctx, userID, folderID)
	if err != nil {
		return err
	}
	folder.Name = newName
	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return fmt.Errorf("重命名文件夹失败: %w", err)
	}
	return nil
}

// MoveFolder 移动文件夹
// 沿目标的祖先链向上走，途中遇到被移动的文件夹即构成环，拒绝
func (s *folderService) MoveFolder(ctx context.Context, userID, folderID uint64, targetFolderID *uint64) error {
	folder, err := s.ownedFolder(ctx, userID, folderID)
	if err != nil {
		return err
	}

	if targetFolderID != nil {
		if *targetFolderID == folderID {
			return xerr.ErrCannotMoveIntoSubtree
		}
		target, err := s.ownedFolder(ctx, userID, *targetFolderID)
		if err != nil {
			return err
		}

		cursor := target
		for cursor.ParentFolderID != nil {
			if *cursor.ParentFolderID == folderID {
				return xerr.ErrCannotMoveIntoSubtree
			}
			cursor, err = s.folderRepo.FindByID(ctx, *cursor.ParentFolderID)
			if err != nil {
				return err
			}
			if cursor == nil {
				break
			}
		}
	}

	folder.ParentFolderID = targetFolderID
	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return fmt.Errorf("移动文件夹失败: %w", err)
	}
	return nil
}

// DeleteFolder 删除空文件夹；含子项时拒绝，避免误删整棵子树
func (s *folderService) DeleteFolder(ctx context.Context, userID, folderID uint64) error {
	folder, err := s.ownedFolder(ctx, userID, folderID)
	if err != nil {
		return err
	}

	children, err := s.folderRepo.ListChildren(ctx, userID, &folder.ID)
	if err != nil {
		return err
	}
	files, err := s.fileRepo.ListByFolder(ctx, userID, &folder.ID)
	if err != nil {
		return err
	}
	if len(children) > 0 || len(files) > 0 {
		return xerr.ErrFileStatusInvalid
	}

	if err := s.folderRepo.Delete(ctx, folderID); err != nil {
		return fmt.Errorf("删除文件夹失败: %w", err)
	}
	return nil
}

func (s *folderService) ownedFolder(ctx context.Context, userID, folderID uint64) (*models.Folder, error) {
	folder, err := s.folderRepo.FindByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, xerr.ErrFolderNotFound
	}
	if folder.UserID != userID {
		return nil, xerr.ErrPermissionDenied
	}
	return folder, nil
}
