package sharing

import (
	"context"
	"fmt"

	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/utils"
)

// 访问判定结论，顺序固定：所有者直通 > 文件级限额/过期 > 资源可见性 >
// 链接生效状态 > 过期 > 次数限额 > 密码。先判过期和限额再验密码，
// 密码错误的响应不泄露链接是否仍然可用
const (
	ReasonOwner        = "owner"         // 请求者即所有者
	ReasonPrivate      = "private"       // 资源非公开且无分享途径
	ReasonNotFound     = "not_found"     // 资源或分享途径不存在
	ReasonLocked       = "locked"        // 链接被锁定（is_active=false）
	ReasonExpired      = "expired"       // 链接已过期
	ReasonLimitReached = "limit_reached" // 下载次数已达上限
	ReasonBadPassword  = "bad_password"  // 密码缺失或不正确
	ReasonGranted      = "granted"       // 放行
)

// AccessDecision 访问判定结果
type AccessDecision struct {
	CanAccess bool    `json:"can_access"`
	Reason    string  `json:"reason"`
	LinkID    *uint64 `json:"-"` // 放行时携带命中的链接，供下载记账
}

// AccessRequest 文件访问判定的输入
// ShareToken 与 ShareCode 最多给一个；都不给时按文件公开性判定
type AccessRequest struct {
	FileID     uint64
	UserID     *uint64 // 已登录用户，可为空（匿名访问）
	ShareToken *string
	ShareCode  *string
	Password   *string
}

// FolderAccessRequest 文件夹访问判定的输入
type FolderAccessRequest struct {
	FolderID   uint64
	UserID     *uint64
	ShareToken *string
	ShareCode  *string
	Password   *string
}

func deny(reason string) AccessDecision {
	return AccessDecision{CanAccess: false, Reason: reason}
}

func grant(linkID *uint64) AccessDecision {
	return AccessDecision{CanAccess: true, Reason: ReasonGranted, LinkID: linkID}
}

// CheckFileAccess 文件访问判定
// 判定只读不写：不递增计数、不落日志，那些由 RecordDownload 在
// 实际下载发生时记账
func (s *shareService) CheckFileAccess(ctx context.Context, req AccessRequest) (AccessDecision, error) {
	file, err := s.fileRepo.FindByID(ctx, req.FileID)
	if err != nil {
		return AccessDecision{}, fmt.Errorf("访问判定查询文件失败: %w", err)
	}
	if file == nil || file.Status != models.StatusNormal || file.DeletedAt.Valid {
		return deny(ReasonNotFound), nil
	}

	// 所有者直通，不受链接状态、过期、密码约束
	if req.UserID != nil && *req.UserID == file.UserID {
		return grant(nil), nil
	}

	// 文件级闸门先于任何分享途径：文件自身的下载上限和过期时间
	// 对所有非所有者访问生效，链接状态和密码不再参与判定
	if file.LimitReached() {
		return deny(ReasonLimitReached), nil
	}
	if file.Expired(s.now()) {
		return deny(ReasonExpired), nil
	}

	// 解析分享途径
	var link *models.SharedLink
	switch {
	case req.ShareToken != nil:
		link, err = s.shareRepo.FindByToken(ctx, *req.ShareToken)
		if err != nil {
			return AccessDecision{}, fmt.Errorf("访问判定查询分享链接失败: %w", err)
		}
		// token 指向别的资源时视同不存在
		if link != nil && (link.FileID == nil || *link.FileID != file.ID) {
			link = nil
		}
	case req.ShareCode != nil:
		if file.ShareCode == nil || *file.ShareCode != *req.ShareCode {
			return deny(ReasonNotFound), nil
		}
		link, err = s.shareRepo.FindActiveByFileID(ctx, file.ID)
		if err != nil {
			return AccessDecision{}, fmt.Errorf("访问判定查询分享链接失败: %w", err)
		}
		// 分享码挂在文件上但链接已撤销，对外表现为锁定
		if link == nil {
			return deny(ReasonLocked), nil
		}
	default:
		// 无分享途径：公开文件放行，否则私有。锁定的公开文件设有
		// 文件密码时凭密码放行，未设密码则只能由所有者解锁
		if file.IsPublic {
			if file.IsLocked {
				if file.PasswordHash == nil {
					return deny(ReasonLocked), nil
				}
				if req.Password == nil || !utils.CheckPasswordHash(*req.Password, *file.PasswordHash) {
					return deny(ReasonBadPassword), nil
				}
			}
			return grant(nil), nil
		}
		return deny(ReasonPrivate), nil
	}

	if link == nil {
		return deny(ReasonNotFound), nil
	}
	return s.evaluateLink(link, req.Password), nil
}

// CheckFolderAccess 文件夹访问判定，规则与文件一致
func (s *shareService) CheckFolderAccess(ctx context.Context, req FolderAccessRequest) (AccessDecision, error) {
	folder, err := s.folderRepo.FindByID(ctx, req.FolderID)
	if err != nil {
		return AccessDecision{}, fmt.Errorf("访问判定查询文件夹失败: %w", err)
	}
	if folder == nil || folder.DeletedAt.Valid {
		return deny(ReasonNotFound), nil
	}

	if req.UserID != nil && *req.UserID == folder.UserID {
		return grant(nil), nil
	}

	var link *models.SharedLink
	switch {
	case req.ShareToken != nil:
		link, err = s.shareRepo.FindByToken(ctx, *req.ShareToken)
		if err != nil {
			return AccessDecision{}, fmt.Errorf("访问判定查询分享链接失败: %w", err)
		}
		if link != nil && (link.FolderID == nil || *link.FolderID != folder.ID) {
			link = nil
		}
	case req.ShareCode != nil:
		if folder.ShareCode == nil || *folder.ShareCode != *req.ShareCode {
			return deny(ReasonNotFound), nil
		}
		link, err = s.shareRepo.FindActiveByFolderID(ctx, folder.ID)
		if err != nil {
			return AccessDecision{}, fmt.Errorf("访问判定查询分享链接失败: %w", err)
		}
		if link == nil {
			return deny(ReasonLocked), nil
		}
	default:
		return deny(ReasonPrivate), nil
	}

	if link == nil {
		return deny(ReasonNotFound), nil
	}
	return s.evaluateLink(link, req.Password), nil
}

// evaluateLink 对命中的分享链接按固定顺序判定
func (s *shareService) evaluateLink(link *models.SharedLink, password *string) AccessDecision {
	if !link.IsActive {
		return deny(ReasonLocked)
	}
	if link.Expired(s.now()) {
		return deny(ReasonExpired)
	}
	if link.LimitReached() {
		return deny(ReasonLimitReached)
	}
	if link.PasswordHash != nil {
		if password == nil || !utils.CheckPasswordHash(*password, *link.PasswordHash) {
			return deny(ReasonBadPassword)
		}
	}
	return grant(&link.ID)
}
