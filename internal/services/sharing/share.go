package sharing

import (
	"context"
	"fmt"
	"time"

	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/cache"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/mq"
	"github.com/skieshare/skieshare/internal/pkg/utils"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/skieshare/skieshare/internal/services/audit"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ShareOptions 创建分享时的可选项
type ShareOptions struct {
	Password       *string    // 明文密码，内部哈希后存储，绝不落库明文
	ExpiresAt      *time.Time // 绝对过期时间点，nil 时按团队策略/全局配置取默认
	DownloadLimit  *uint64
	RecipientEmail *string // email 类型必填
	Message        *string
	TeamID         *uint64 // 团队上下文，创建时校验该团队策略
}

// LinkSettingsPatch 分享链接设置的部分更新
type LinkSettingsPatch struct {
	IsActive      *bool
	ExpiresAt     *time.Time
	DownloadLimit *uint64
	Password      *string
}

// ShareResult 创建分享的返回，只含标识符，绝不回传明文密码
type ShareResult struct {
	Link       *models.SharedLink `json:"link"`
	ShareToken string             `json:"share_token"`
	ShareCode  *string            `json:"share_code,omitempty"`
}

// RequesterInfo 下载方元信息，写入下载日志
type RequesterInfo struct {
	UserID    *uint64
	IP        string
	UserAgent string
}

// ShareService 定义了文件分享策略引擎需要实现的接口
type ShareService interface {
	// CreateFileShare 为文件创建分享链接，linkType 为 direct/email/code
	CreateFileShare(ctx context.Context, ownerID, fileID uint64, linkType string, opts ShareOptions) (*ShareResult, error)
	// CreateFolderShare 为文件夹创建分享，访问者看到的是访问时刻的实时文件列表
	CreateFolderShare(ctx context.Context, ownerID, folderID uint64, linkType string, opts ShareOptions) (*ShareResult, error)
	// UpdateSharedLinkSettings 部分更新链接设置，锁定切换要求链接已设密码
	UpdateSharedLinkSettings(ctx context.Context, ownerID, linkID uint64, patch LinkSettingsPatch) error
	// RevokeShare 撤销一个分享链接
	RevokeShare(ctx context.Context, ownerID, linkID uint64) error
	// ListUserShares 列出指定用户创建的所有分享链接
	ListUserShares(ctx context.Context, ownerID uint64, page, pageSize int) ([]models.SharedLink, int64, error)
	// GetShareByToken 按 token 取分享详情，不做任何访问判定
	GetShareByToken(ctx context.Context, token string) (*models.SharedLink, error)
	// ValidateSharePassword 校验分享密码
	ValidateSharePassword(ctx context.Context, token string, password string) (bool, error)
	// CheckFileAccess 访问判定，见 access.go
	CheckFileAccess(ctx context.Context, req AccessRequest) (AccessDecision, error)
	// CheckFolderAccess 文件夹分享的访问判定
	CheckFolderAccess(ctx context.Context, req FolderAccessRequest) (AccessDecision, error)
	// SharedFolderListing 文件夹分享的实时文件列表
	SharedFolderListing(ctx context.Context, folderID uint64) ([]models.File, error)
	// ResolveShareCode 把短分享码解析为文件或文件夹
	ResolveShareCode(ctx context.Context, code string) (*ShareCodeResource, error)
	// RecordDownload 追加下载日志并原子递增文件/链接的下载计数
	RecordDownload(ctx context.Context, fileID uint64, linkID *uint64, method string, requester RequesterInfo) error
	// DownloadStats 下载统计，见 analytics.go
	DownloadStats(ctx context.Context, ownerID, fileID uint64, window time.Duration, buckets int) (*DownloadStats, error)
}

// shareService 是 ShareService 接口的具体实现
type shareService struct {
	shareRepo  repositories.SharedLinkRepository
	fileRepo   repositories.FileRepository
	folderRepo repositories.FolderRepository
	teamRepo   repositories.TeamRepository
	policyRepo repositories.TeamPolicyRepository
	dlogRepo   repositories.DownloadLogRepository
	tm         repositories.TransactionManager
	cache      cache.Cache        // 可为空
	mqClient   *mq.RabbitMQClient // 可为空，为空时邮件任务只记日志
	auditRec   audit.Recorder     // 可为空
	cfg        *config.Config
	now        func() time.Time // 注入时钟，便于过期判定的测试
}

// NewShareService 创建一个新的 ShareService 实例
func NewShareService(
	shareRepo repositories.SharedLinkRepository,
	fileRepo repositories.FileRepository,
	folderRepo repositories.FolderRepository,
	teamRepo repositories.TeamRepository,
	policyRepo repositories.TeamPolicyRepository,
	dlogRepo repositories.DownloadLogRepository,
	tm repositories.TransactionManager,
	cacheService cache.Cache,
	mqClient *mq.RabbitMQClient,
	auditRec audit.Recorder,
	cfg *config.Config,
) ShareService {
	return &shareService{
		shareRepo:  shareRepo,
		fileRepo:   fileRepo,
		folderRepo: folderRepo,
		teamRepo:   teamRepo,
		policyRepo: policyRepo,
		dlogRepo:   dlogRepo,
		tm:         tm,
		cache:      cacheService,
		mqClient:   mqClient,
		auditRec:   auditRec,
		cfg:        cfg,
		now:        time.Now,
	}
}

func validLinkType(linkType string) bool {
	switch linkType {
	case models.LinkTypeDirect, models.LinkTypeEmail, models.LinkTypeCode:
		return true
	}
	return false
}

// CreateFileShare 处理创建文件分享链接的业务逻辑
func (s *shareService) CreateFileShare(ctx context.Context, ownerID, fileID uint64, linkType string, opts ShareOptions) (*ShareResult, error) {
	if !validLinkType(linkType) {
		return nil, xerr.ErrInvalidLinkType
	}
	if linkType == models.LinkTypeEmail && (opts.RecipientEmail == nil || *opts.RecipientEmail == "") {
		return nil, xerr.ErrInvalidParams
	}

	// 1. 验证文件是否存在，并且是否属于当前用户
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("查询文件失败: %w", err)
	}
	if file == nil {
		return nil, xerr.ErrFileNotFound
	}
	if file.UserID != ownerID {
		return nil, xerr.ErrPermissionDenied
	}
	// 检查文件状态是否正常，例如文件不在回收站中
	if file.Status != models.StatusNormal || file.DeletedAt.Valid {
		return nil, xerr.ErrFileStatusInvalid
	}

	// 2. 校验相关团队的分享策略（文件已共享到的团队 + 请求指定的团队上下文）
	if err := s.enforceTeamPolicies(ctx, fileID, opts); err != nil {
		return nil, err
	}

	// 3. 检查该文件是否已经存在一个有效的分享链接
	existing, err := s.shareRepo.FindActiveByFileID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("检查现有分享链接失败: %w", err)
	}
	if existing != nil {
		logger.Warn("CreateFileShare: 文件已存在有效分享链接",
			zap.Uint64("fileID", fileID), zap.Uint64("linkID", existing.ID))
		return nil, xerr.ErrShareAlreadyExists
	}

	link, err := s.buildLink(ctx, linkType, opts)
	if err != nil {
		return nil, err
	}
	link.FileID = &fileID

	// 4. code 类型需要生成全局唯一的短分享码，挂在文件行上
	var shareCode *string
	if linkType == models.LinkTypeCode {
		code, err := s.uniqueShareCode(ctx)
		if err != nil {
			return nil, err
		}
		file.ShareCode = &code
		if err := s.fileRepo.Update(ctx, file); err != nil {
			return nil, fmt.Errorf("保存文件分享码失败: %w", err)
		}
		shareCode = &code
	}

	// 5. 将新的分享记录保存到数据库
	if err := s.shareRepo.Create(ctx, link); err != nil {
		logger.Error("CreateFileShare: 创建分享链接记录失败", zap.Error(err))
		return nil, fmt.Errorf("创建分享链接失败: %w", err)
	}

	s.cacheLink(ctx, link)

	// 6. email 类型投递发信任务，失败不影响分享创建
	if linkType == models.LinkTypeEmail {
		s.enqueueShareEmail(link, file.FileName, opts)
	}

	if s.auditRec != nil && opts.TeamID != nil {
		s.auditRec.Record(ctx, audit.Event{
			TeamID:     *opts.TeamID,
			UserID:     ownerID,
			Action:     models.AuditActionFileShared,
			EntityType: "file",
			EntityID:   &fileID,
		})
	}

	logger.Info("CreateFileShare: 分享链接创建成功",
		zap.Uint64("linkID", link.ID),
		zap.String("linkType", linkType),
		zap.Uint64("fileID", fileID))
	return &ShareResult{Link: link, ShareToken: link.ShareToken, ShareCode: shareCode}, nil
}

// CreateFolderShare 处理创建文件夹分享的业务逻辑
// 文件夹分享总是生成短分享码，方便口头/带外传播
func (s *shareService) CreateFolderShare(ctx context.Context, ownerID, folderID uint64, linkType string, opts ShareOptions) (*ShareResult, error) {
	if !validLinkType(linkType) {
		return nil, xerr.ErrInvalidLinkType
	}

	folder, err := s.folderRepo.FindByID(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("查询文件夹失败: %w", err)
	}
	if folder == nil {
		return nil, xerr.ErrFolderNotFound
	}
	if folder.UserID != ownerID {
		return nil, xerr.ErrPermissionDenied
	}

	if opts.TeamID != nil {
		if err := s.enforcePolicyOfTeam(ctx, *opts.TeamID, opts); err != nil {
			return nil, err
		}
	}

	existing, err := s.shareRepo.FindActiveByFolderID(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("检查现有分享链接失败: %w", err)
	}
	if existing != nil {
		return nil, xerr.ErrShareAlreadyExists
	}

	link, err := s.buildLink(ctx, linkType, opts)
	if err != nil {
		return nil, err
	}
	link.FolderID = &folderID

	code, err := s.uniqueShareCode(ctx)
	if err != nil {
		return nil, err
	}
	folder.ShareCode = &code
	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return nil, fmt.Errorf("保存文件夹分享码失败: %w", err)
	}

	if err := s.shareRepo.Create(ctx, link); err != nil {
		logger.Error("CreateFolderShare: 创建分享链接记录失败", zap.Error(err))
		return nil, fmt.Errorf("创建分享链接失败: %w", err)
	}

	s.cacheLink(ctx, link)

	logger.Info("CreateFolderShare: 文件夹分享创建成功",
		zap.Uint64("linkID", link.ID), zap.Uint64("folderID", folderID))
	return &ShareResult{Link: link, ShareToken: link.ShareToken, ShareCode: &code}, nil
}

// buildLink 构造分享链接记录：token、密码哈希、过期时间
func (s *shareService) buildLink(ctx context.Context, linkType string, opts ShareOptions) (*models.SharedLink, error) {
	token, err := utils.GenerateShareToken(s.cfg.Share.TokenLength)
	if err != nil {
		return nil, err
	}

	link := &models.SharedLink{
		ShareToken:     token,
		LinkType:       linkType,
		RecipientEmail: opts.RecipientEmail,
		Message:        opts.Message,
		DownloadLimit:  opts.DownloadLimit,
		ExpiresAt:      opts.ExpiresAt,
		IsActive:       true,
	}

	// 如果设置了密码，对密码进行哈希处理
	if opts.Password != nil && *opts.Password != "" {
		hashed, err := utils.HashPassword(*opts.Password)
		if err != nil {
			logger.Error("buildLink: 密码哈希失败", zap.Error(err))
			return nil, fmt.Errorf("密码处理失败: %w", err)
		}
		link.PasswordHash = &hashed
	}

	// 未指定过期时间时按全局配置取默认
	if link.ExpiresAt == nil && s.cfg.Share.DefaultExpiryDays > 0 {
		expiresAt := s.now().AddDate(0, 0, s.cfg.Share.DefaultExpiryDays)
		link.ExpiresAt = &expiresAt
	}

	return link, nil
}

// uniqueShareCode 生成全局唯一的短分享码
// 短码空间小，并发创建可能撞码，用有界重试解决
func (s *shareService) uniqueShareCode(ctx context.Context) (string, error) {
	attempts := s.cfg.Share.CodeMaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	for i := 0; i < attempts; i++ {
		code, err := utils.GenerateShareCode(s.cfg.Share.CodeLength)
		if err != nil {
			return "", err
		}
		inFiles, err := s.fileRepo.ShareCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		inFolders, err := s.folderRepo.ShareCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !inFiles && !inFolders {
			return code, nil
		}
		logger.Warn("uniqueShareCode: 分享码碰撞，重试", zap.String("code", code), zap.Int("attempt", i+1))
	}
	return "", xerr.ErrShareCodeExhausted
}

// enforceTeamPolicies 校验文件相关团队的分享策略
func (s *shareService) enforceTeamPolicies(ctx context.Context, fileID uint64, opts ShareOptions) error {
	teamIDs := make([]uint64, 0, 2)
	if opts.TeamID != nil {
		teamIDs = append(teamIDs, *opts.TeamID)
	}
	shares, err := s.teamRepo.ListFileTeams(ctx, fileID)
	if err != nil {
		return err
	}
	for _, share := range shares {
		teamIDs = append(teamIDs, share.TeamID)
	}

	seen := make(map[uint64]bool, len(teamIDs))
	for _, teamID := range teamIDs {
		if seen[teamID] {
			continue
		}
		seen[teamID] = true
		if err := s.enforcePolicyOfTeam(ctx, teamID, opts); err != nil {
			return err
		}
	}
	return nil
}

func (s *shareService) enforcePolicyOfTeam(ctx context.Context, teamID uint64, opts ShareOptions) error {
	policy, err := s.policyRepo.GetByTeamID(ctx, teamID)
	if err != nil {
		return err
	}
	if policy == nil {
		return nil
	}
	if !policy.AllowExternalSharing {
		return xerr.ErrExternalSharingDisabled
	}
	if policy.RequirePasswordForShares && (opts.Password == nil || *opts.Password == "") {
		return xerr.ErrSharePasswordRequired
	}
	return nil
}

// UpdateSharedLinkSettings 部分更新分享链接设置
// "锁定"在产品上即 is_active=false；切换锁定状态要求链接已设密码，
// 未设密码的链接不允许通过该控制切换（刻意的产品规则，不是实现疏漏）
func (s *shareService) UpdateSharedLinkSettings(ctx context.Context, ownerID, linkID uint64, patch LinkSettingsPatch) error {
	link, err := s.shareRepo.FindByID(ctx, linkID)
	if err != nil {
		return fmt.Errorf("查询分享链接失败: %w", err)
	}
	if link == nil {
		return xerr.ErrShareNotFound
	}
	if err := s.ensureLinkOwner(ctx, link, ownerID); err != nil {
		return err
	}

	if patch.Password != nil && *patch.Password != "" {
		hashed, err := utils.HashPassword(*patch.Password)
		if err != nil {
			return fmt.Errorf("密码处理失败: %w", err)
		}
		link.PasswordHash = &hashed
	}

	if patch.IsActive != nil && *patch.IsActive != link.IsActive {
		if link.PasswordHash == nil {
			return xerr.ErrLinkLockRequiresPassword
		}
		link.IsActive = *patch.IsActive
	}

	if patch.ExpiresAt != nil {
		link.ExpiresAt = patch.ExpiresAt
	}
	if patch.DownloadLimit != nil {
		link.DownloadLimit = patch.DownloadLimit
	}

	if err := s.shareRepo.Update(ctx, link); err != nil {
		logger.Error("UpdateSharedLinkSettings: 更新分享链接失败", zap.Uint64("linkID", linkID), zap.Error(err))
		return fmt.Errorf("更新分享链接失败: %w", err)
	}

	s.invalidateLink(ctx, link)
	return nil
}

// RevokeShare 撤销一个分享链接
func (s *shareService) RevokeShare(ctx context.Context, ownerID, linkID uint64) error {
	link, err := s.shareRepo.FindByID(ctx, linkID)
	if err != nil {
		return fmt.Errorf("查询分享链接失败: %w", err)
	}
	if link == nil {
		return xerr.ErrShareNotFound
	}
	if err := s.ensureLinkOwner(ctx, link, ownerID); err != nil {
		return err
	}

	link.IsActive = false
	if err := s.shareRepo.Update(ctx, link); err != nil {
		logger.Error("RevokeShare: 更新分享链接状态失败", zap.Uint64("linkID", linkID), zap.Error(err))
		return fmt.Errorf("撤销分享链接失败: %w", err)
	}
	if err := s.shareRepo.Delete(ctx, linkID); err != nil {
		logger.Error("RevokeShare: 逻辑删除分享链接失败", zap.Uint64("linkID", linkID), zap.Error(err))
		return fmt.Errorf("撤销分享链接失败: %w", err)
	}

	s.invalidateLink(ctx, link)
	logger.Info("RevokeShare: 分享链接撤销成功", zap.Uint64("linkID", linkID), zap.Uint64("userID", ownerID))
	return nil
}

// ensureLinkOwner 校验操作者是否拥有链接背后的文件/文件夹
func (s *shareService) ensureLinkOwner(ctx context.Context, link *models.SharedLink, userID uint64) error {
	if link.FileID != nil {
		file, err := s.fileRepo.FindByID(ctx, *link.FileID)
		if err != nil {
			return err
		}
		if file == nil || file.UserID != userID {
			return xerr.ErrPermissionDenied
		}
		return nil
	}
	if link.FolderID != nil {
		folder, err := s.folderRepo.FindByID(ctx, *link.FolderID)
		if err != nil {
			return err
		}
		if folder == nil || folder.UserID != userID {
			return xerr.ErrPermissionDenied
		}
		return nil
	}
	return xerr.ErrShareNotFound
}

// ListUserShares 获取指定用户创建的所有分享链接列表（分页）
func (s *shareService) ListUserShares(ctx context.Context, ownerID uint64, page, pageSize int) ([]models.SharedLink, int64, error) {
	links, total, err := s.shareRepo.FindAllByOwner(ctx, ownerID, page, pageSize)
	if err != nil {
		logger.Error("ListUserShares: 查询用户分享列表失败", zap.Uint64("userID", ownerID), zap.Error(err))
		return nil, 0, fmt.Errorf("查询分享列表失败: %w", err)
	}
	return links, total, nil
}

func (s *shareService) GetShareByToken(ctx context.Context, token string) (*models.SharedLink, error) {
	link, err := s.shareRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("获取分享链接失败: %w", err)
	}
	if link == nil {
		return nil, xerr.ErrShareNotFound
	}
	return link, nil
}

// ValidateSharePassword 校验分享密码，链接无密码时视为校验通过
func (s *shareService) ValidateSharePassword(ctx context.Context, token string, password string) (bool, error) {
	link, err := s.GetShareByToken(ctx, token)
	if err != nil {
		return false, err
	}
	if link.PasswordHash == nil {
		return true, nil
	}
	return utils.CheckPasswordHash(password, *link.PasswordHash), nil
}

// RecordDownload 追加下载日志并递增计数
// 日志插入和两处计数递增在同一事务内提交，计数是 SQL 原子自增，
// 并发下载不会丢计数
func (s *shareService) RecordDownload(ctx context.Context, fileID uint64, linkID *uint64, method string, requester RequesterInfo) error {
	entry := &models.DownloadLog{
		FileID:          fileID,
		SharedLinkID:    linkID,
		Method:          method,
		RequesterUserID: requester.UserID,
		RequesterIP:     requester.IP,
		UserAgent:       requester.UserAgent,
	}

	err := s.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.dlogRepo.CreateTx(tx, entry); err != nil {
			return err
		}
		if err := s.fileRepo.IncrementDownloadCountTx(tx, fileID); err != nil {
			return err
		}
		if linkID != nil {
			if err := s.shareRepo.IncrementDownloadCountTx(tx, *linkID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("RecordDownload: 记录下载失败", zap.Uint64("fileID", fileID), zap.Error(err))
		return fmt.Errorf("记录下载失败: %w", err)
	}
	return nil
}

// SharedFolderListing 返回文件夹分享的实时文件列表（非快照）
func (s *shareService) SharedFolderListing(ctx context.Context, folderID uint64) ([]models.File, error) {
	return s.fileRepo.ListByFolderID(ctx, folderID)
}

// ShareCodeResource 短分享码指向的资源，文件和文件夹二选一
type ShareCodeResource struct {
	File   *models.File
	Folder *models.Folder
}

// ResolveShareCode 把短分享码解析为文件或文件夹
func (s *shareService) ResolveShareCode(ctx context.Context, code string) (*ShareCodeResource, error) {
	file, err := s.fileRepo.FindByShareCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("解析分享码失败: %w", err)
	}
	if file != nil {
		return &ShareCodeResource{File: file}, nil
	}
	folder, err := s.folderRepo.FindByShareCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("解析分享码失败: %w", err)
	}
	if folder != nil {
		return &ShareCodeResource{Folder: folder}, nil
	}
	return nil, xerr.ErrShareNotFound
}

// cacheLink 把分享详情写进缓存，加速公开访问入口
// 缓存失败只记日志，不影响主流程
func (s *shareService) cacheLink(ctx context.Context, link *models.SharedLink) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cache.GenerateShareTokenKey(link.ShareToken), link, 10*time.Minute); err != nil {
		logger.Warn("cacheLink: 写入分享缓存失败", zap.String("token", link.ShareToken), zap.Error(err))
	}
}

func (s *shareService) invalidateLink(ctx context.Context, link *models.SharedLink) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cache.GenerateShareTokenKey(link.ShareToken)); err != nil {
		logger.Warn("invalidateLink: 删除分享缓存失败", zap.String("token", link.ShareToken), zap.Error(err))
	}
}

// enqueueShareEmail 投递邮件分享的发信任务，尽力而为
func (s *shareService) enqueueShareEmail(link *models.SharedLink, fileName string, opts ShareOptions) {
	if s.mqClient == nil {
		logger.Warn("enqueueShareEmail: 未配置消息队列，发信任务丢弃", zap.String("token", link.ShareToken))
		return
	}
	job := mq.ShareEmailJob{
		To:       *opts.RecipientEmail,
		FileName: fileName,
		ShareURL: fmt.Sprintf("%s/share/%s", s.cfg.Server.BaseURL, link.ShareToken),
	}
	if opts.Message != nil {
		job.Message = *opts.Message
	}
	if err := s.mqClient.PublishJSON(mq.ShareEmailQueue, job); err != nil {
		logger.Error("enqueueShareEmail: 发信任务投递失败", zap.String("to", job.To), zap.Error(err))
	}
}
