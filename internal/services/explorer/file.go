package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/storage"
	"github.com/skieshare/skieshare/internal/pkg/utils"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/skieshare/skieshare/internal/services/audit"
	"github.com/skieshare/skieshare/internal/services/quota"
	"github.com/skieshare/skieshare/internal/services/sharing"
	"github.com/skieshare/skieshare/internal/services/team"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UploadInput 上传请求
type UploadInput struct {
	FileName       string
	Size           uint64
	MimeType       *string
	ParentFolderID *uint64
	Reader         io.Reader
}

// FilePatch 文件设置的部分更新
type FilePatch struct {
	DownloadLimit *uint64
	ExpiresAt     *time.Time
	Password      *string // 明文，内部哈希
}

// FileService 定义了文件管理需要实现的接口
type FileService interface {
	// Upload 上传文件：先传对象存储，再在事务内持用户行锁复核配额后落库
	Upload(ctx context.Context, userID uint64, input UploadInput) (*models.File, error)
	// DownloadURL 生成所有者下载的预签名 URL 并记账
	DownloadURL(ctx context.Context, userID, fileID uint64) (string, error)
	GetFile(ctx context.Context, userID, fileID uint64) (*models.File, error)
	List(ctx context.Context, userID uint64, parentFolderID *uint64) ([]models.Folder, []models.File, error)
	Rename(ctx context.Context, userID, fileID uint64, newName string) error
	// Move 移动文件到目标文件夹，nil 表示根目录
	Move(ctx context.Context, userID, fileID uint64, targetFolderID *uint64) error
	// SoftDelete 移入回收站，配额占用保留到彻底删除
	SoftDelete(ctx context.Context, userID, fileID uint64) error
	Restore(ctx context.Context, userID, fileID uint64) error
	// PermanentDelete 彻底删除：删库行、释放配额、清对象存储
	PermanentDelete(ctx context.Context, userID, fileID uint64) error
	// ToggleLock 切换文件锁定状态
	// 非所有者必须带团队上下文，且在该团队具备编辑能力
	ToggleLock(ctx context.Context, actorID, fileID uint64, teamID *uint64, password *string) (*models.File, error)
	// TogglePublic 切换文件公开状态，仅所有者
	TogglePublic(ctx context.Context, userID, fileID uint64) (*models.File, error)
	UpdateSettings(ctx context.Context, userID, fileID uint64, patch FilePatch) error
}

type fileService struct {
	fileRepo   repositories.FileRepository
	folderRepo repositories.FolderRepository
	userRepo   repositories.UserRepository
	tm         repositories.TransactionManager
	store      storage.StorageService
	shares     sharing.ShareService
	teams      team.TeamService
	search     SearchService // 可为空，为空时跳过索引
	auditRec   audit.Recorder
	cfg        *config.Config
	now        func() time.Time
}

var _ FileService = (*fileService)(nil)

// NewFileService 创建一个新的 FileService 实例
func NewFileService(
	fileRepo repositories.FileRepository,
	folderRepo repositories.FolderRepository,
	userRepo repositories.UserRepository,
	tm repositories.TransactionManager,
	store storage.StorageService,
	shares sharing.ShareService,
	teams team.TeamService,
	search SearchService,
	auditRec audit.Recorder,
	cfg *config.Config,
) FileService {
	return &fileService{
		fileRepo:   fileRepo,
		folderRepo: folderRepo,
		userRepo:   userRepo,
		tm:         tm,
		store:      store,
		shares:     shares,
		teams:      teams,
		search:     search,
		auditRec:   auditRec,
		cfg:        cfg,
		now:        time.Now,
	}
}

func validFileName(name string) bool {
	if name == "" || len(name) > 255 {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// Upload 上传文件
// 配额检查两段式：入口先快速判定一次挡掉明显超额的请求，
// 事务内持用户行锁再复核一次。并发上传在锁上串行化，
// 不会出现两个请求同时通过检查后双双入账的情况
func (s *fileService) Upload(ctx context.Context, userID uint64, input UploadInput) (*models.File, error) {
	if !validFileName(input.FileName) {
		return nil, xerr.ErrFileNameInvalid
	}
	if input.ParentFolderID != nil {
		folder, err := s.folderRepo.FindByID(ctx, *input.ParentFolderID)
		if err != nil {
			return nil, err
		}
		if folder == nil || folder.UserID != userID {
			return nil, xerr.ErrFolderNotFound
		}
	}

	// 快速路径检查，不加锁
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, xerr.ErrUserNotFound
	}
	if !quota.Allowed(user, input.Size) {
		return nil, xerr.ErrQuotaExceeded
	}
	dailyLimit := quota.DailyUploadLimit(&s.cfg.Quota, user.SubscriptionTier)
	if !quota.DailyUploadAllowed(user, dailyLimit, s.now()) {
		return nil, xerr.ErrDailyLimitExceeded
	}

	// 先写对象存储，落库失败时回收对象
	objectKey := uuid.New().String()
	bucket := s.cfg.MinIO.BucketName
	contentType := "application/octet-stream"
	if input.MimeType != nil {
		contentType = *input.MimeType
	}
	if _, err := s.store.PutObject(ctx, bucket, objectKey, input.Reader, int64(input.Size), contentType); err != nil {
		logger.Error("Upload: 写入对象存储失败", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, fmt.Errorf("上传文件到存储失败: %w", err)
	}

	file := &models.File{
		UUID:           objectKey,
		UserID:         userID,
		ParentFolderID: input.ParentFolderID,
		FileName:       input.FileName,
		Size:           input.Size,
		MimeType:       input.MimeType,
		OssBucket:      &bucket,
		OssKey:         &objectKey,
		Status:         models.StatusNormal,
	}

	err = s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		locked, err := s.userRepo.LockUserTx(tx, userID)
		if err != nil {
			return err
		}
		if locked == nil {
			return xerr.ErrUserNotFound
		}
		// 持锁复核，挡掉与快速路径检查之间挤进来的并发上传
		if !quota.Allowed(locked, input.Size) {
			return xerr.ErrQuotaExceeded
		}
		if !quota.DailyUploadAllowed(locked, dailyLimit, s.now()) {
			return xerr.ErrDailyLimitExceeded
		}
		if locked.DailyUploadResetAt != nil && !s.now().Before(*locked.DailyUploadResetAt) {
			nextReset := s.now().Truncate(24 * time.Hour).Add(24 * time.Hour)
			if err := s.userRepo.ResetDailyUploadTx(tx, userID, nextReset); err != nil {
				return err
			}
		}
		if err := s.fileRepo.CreateTx(tx, file); err != nil {
			return err
		}
		if err := s.userRepo.AddStorageUsedTx(tx, userID, int64(input.Size)); err != nil {
			return err
		}
		return s.userRepo.IncrementDailyUploadTx(tx, userID)
	})
	if err != nil {
		if removeErr := s.store.RemoveObject(ctx, bucket, objectKey); removeErr != nil {
			logger.Error("Upload: 回收存储对象失败", zap.String("objectKey", objectKey), zap.Error(removeErr))
		}
		if errors.Is(err, xerr.ErrQuotaExceeded) || errors.Is(err, xerr.ErrDailyLimitExceeded) {
			return nil, err
		}
		logger.Error("Upload: 文件落库失败", zap.Uint64("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("保存文件记录失败: %w", err)
	}

	s.indexFile(ctx, file)
	logger.Info("Upload: 文件上传成功",
		zap.Uint64("fileID", file.ID), zap.Uint64("userID", userID), zap.Uint64("size", input.Size))
	return file, nil
}

// DownloadURL 所有者下载入口
func (s *fileService) DownloadURL(ctx context.Context, userID, fileID uint64) (string, error) {
	file, err := s.ownedFile(ctx, userID, fileID)
	if err != nil {
		return "", err
	}
	if file.OssBucket == nil || file.OssKey == nil {
		return "", xerr.ErrFileStatusInvalid
	}

	url, err := s.store.PresignedGetURL(ctx, *file.OssBucket, *file.OssKey, file.FileName,
		time.Duration(s.cfg.Storage.PresignedURLExpiry)*time.Minute)
	if err != nil {
		logger.Error("DownloadURL: 生成预签名URL失败", zap.Uint64("fileID", fileID), zap.Error(err))
		return "", fmt.Errorf("生成下载链接失败: %w", err)
	}

	if err := s.shares.RecordDownload(ctx, fileID, nil, models.DownloadMethodOwner, sharing.RequesterInfo{UserID: &userID}); err != nil {
		// 记账失败不阻断下载
		logger.Warn("DownloadURL: 下载记账失败", zap.Uint64("fileID", fileID), zap.Error(err))
	}
	return url, nil
}

func (s *fileService) GetFile(ctx context.Context, userID, fileID uint64) (*models.File, error) {
	return s.ownedFile(ctx, userID, fileID)
}

func (s *fileService) List(ctx context.Context, userID uint64, parentFolderID *uint64) ([]models.Folder, []models.File, error) {
	folders, err := s.folderRepo.ListChildren(ctx, userID, parentFolderID)
	if err != nil {
		return nil, nil, fmt.Errorf("查询子文件夹失败: %w", err)
	}
	files, err := s.fileRepo.ListByFolder(ctx, userID, parentFolderID)
	if err != nil {
		return nil, nil, fmt.Errorf("查询文件列表失败: %w", err)
	}
	return folders, files, nil
}

func (s *fileService) Rename(ctx context.Context, userID, fileID uint64, newName string) error {
	if !validFileName(newName) {
		return xerr.ErrFileNameInvalid
	}
	file, err := s.ownedFile(ctx, userID, fileID)
	if err != nil {
		return err
	}
	file.FileName = newName
	if err := s.fileRepo.Update(ctx, file); err != nil {
		return fmt.Errorf("重命名文件失败: %w", err)
	}
	s.indexFile(ctx, file)
	return nil
}

func (s *fileService) Move(ctx context.Context, userID, fileID uint64, targetFolderID *uint64) error {
	file, err := s.ownedFile(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if targetFolderID != nil {
		target, err := s.folderRepo.FindByID(ctx, *targetFolderID)
		if err != nil {
			return err
		}
		if target == nil || target.UserID != userID {
			return xerr.ErrFolderNotFound
		}
	}
	file.ParentFolderID = targetFolderID
	if err := s.fileRepo.Update(ctx, file); err != nil {
		return fmt.Errorf("移动文件失败: %w", err)
	}
	return nil
}

// SoftDelete 移入回收站，对象存储和配额占用保持不动
func (s *fileService) SoftDelete(ctx context.Context, userID, fileID uint64) error {
	file, err := s.ownedFile(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if err := s.fileRepo.SoftDelete(ctx, file.ID); err != nil {
		return fmt.Errorf("删除文件失败: %w", err)
	}
	s.removeFromIndex(ctx, file.ID)
	return nil
}

func (s *fileService) Restore(ctx context.Context, userID, fileID uint64) error {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file == nil || file.UserID != userID {
		return xerr.ErrFileNotFound
	}
	if file.Status == models.StatusNormal {
		return nil
	}
	if file.Status != models.StatusDeleted {
		return xerr.ErrFileStatusInvalid
	}
	if err := s.fileRepo.Restore(ctx, fileID); err != nil {
		return fmt.Errorf("恢复文件失败: %w", err)
	}
	file.Status = models.StatusNormal
	s.indexFile(ctx, file)
	return nil
}

// PermanentDelete 彻底删除文件并释放配额
func (s *fileService) PermanentDelete(ctx context.Context, userID, fileID uint64) error {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file == nil || file.UserID != userID {
		return xerr.ErrFileNotFound
	}

	err = s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.fileRepo.PermanentDeleteTx(tx, fileID); err != nil {
			return err
		}
		return s.userRepo.AddStorageUsedTx(tx, userID, -int64(file.Size))
	})
	if err != nil {
		logger.Error("PermanentDelete: 删除文件记录失败", zap.Uint64("fileID", fileID), zap.Error(err))
		return fmt.Errorf("彻底删除文件失败: %w", err)
	}

	// 对象清理尽力而为，失败留给巡检任务兜底
	if file.OssBucket != nil && file.OssKey != nil {
		if err := s.store.RemoveObject(ctx, *file.OssBucket, *file.OssKey); err != nil {
			logger.Error("PermanentDelete: 删除存储对象失败",
				zap.String("ossKey", *file.OssKey), zap.Error(err))
		}
	}
	s.removeFromIndex(ctx, fileID)
	logger.Info("PermanentDelete: 文件已彻底删除", zap.Uint64("fileID", fileID), zap.Uint64("userID", userID))
	return nil
}

// ToggleLock 切换文件锁定状态
func (s *fileService) ToggleLock(ctx context.Context, actorID, fileID uint64, teamID *uint64, password *string) (*models.File, error) {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, xerr.ErrFileNotFound
	}

	if file.UserID != actorID {
		// 非所有者走团队授权：文件必须共享给该团队，且操作者具备编辑能力
		if teamID == nil {
			return nil, xerr.ErrPermissionDenied
		}
		if err := s.teams.AuthorizeFileOp(ctx, *teamID, actorID, fileID, team.FileOpEdit); err != nil {
			return nil, err
		}
	}

	file.IsLocked = !file.IsLocked
	if password != nil && *password != "" {
		hashed, err := utils.HashPassword(*password)
		if err != nil {
			return nil, fmt.Errorf("密码处理失败: %w", err)
		}
		file.PasswordHash = &hashed
	}
	if err := s.fileRepo.Update(ctx, file); err != nil {
		return nil, fmt.Errorf("更新文件锁定状态失败: %w", err)
	}

	if teamID != nil {
		action := models.AuditActionFileUnlocked
		if file.IsLocked {
			action = models.AuditActionFileLocked
		}
		s.auditRec.Record(ctx, audit.Event{
			TeamID:     *teamID,
			UserID:     actorID,
			Action:     action,
			EntityType: "file",
			EntityID:   &fileID,
		})
	}
	return file, nil
}

// TogglePublic 切换文件公开状态
func (s *fileService) TogglePublic(ctx context.Context, userID, fileID uint64) (*models.File, error) {
	file, err := s.ownedFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	file.IsPublic = !file.IsPublic
	if err := s.fileRepo.Update(ctx, file); err != nil {
		return nil, fmt.Errorf("更新文件公开状态失败: %w", err)
	}
	return file, nil
}

func (s *fileService) UpdateSettings(ctx context.Context, userID, fileID uint64, patch FilePatch) error {
	file, err := s.ownedFile(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if patch.DownloadLimit != nil {
		file.DownloadLimit = patch.DownloadLimit
	}
	if patch.ExpiresAt != nil {
		file.ExpiresAt = patch.ExpiresAt
	}
	if patch.Password != nil && *patch.Password != "" {
		hashed, err := utils.HashPassword(*patch.Password)
		if err != nil {
			return fmt.Errorf("密码处理失败: %w", err)
		}
		file.PasswordHash = &hashed
	}
	if err := s.fileRepo.Update(ctx, file); err != nil {
		return fmt.Errorf("更新文件设置失败: %w", err)
	}
	return nil
}

// ownedFile 读取文件并校验所有权
func (s *fileService) ownedFile(ctx context.Context, userID, fileID uint64) (*models.File, error) {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, xerr.ErrFileNotFound
	}
	if file.UserID != userID {
		return nil, xerr.ErrPermissionDenied
	}
	return file, nil
}

func (s *fileService) indexFile(ctx context.Context, file *models.File) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexFile(ctx, file); err != nil {
		logger.Warn("indexFile: 写入搜索索引失败", zap.Uint64("fileID", file.ID), zap.Error(err))
	}
}

func (s *fileService) removeFromIndex(ctx context.Context, fileID uint64) {
	if s.search == nil {
		return
	}
	if err := s.search.RemoveFile(ctx, fileID); err != nil {
		logger.Warn("removeFromIndex: 删除搜索索引失败", zap.Uint64("fileID", fileID), zap.Error(err))
	}
}
