package xerr

import "errors"

var (
	// 通用错误
	ErrInternalServer = errors.New("服务器内部错误")

	// 客户端请求错误
	ErrInvalidParams         = errors.New("无效的请求参数")
	ErrValidationFailed      = errors.New("参数验证失败")
	ErrFileTooLarge          = errors.New("上传文件过大，超出团队策略限制")
	ErrFileNameInvalid       = errors.New("文件名包含非法字符")
	ErrFileStatusInvalid     = errors.New("文件状态异常，无法执行操作")
	ErrCannotMoveRoot        = errors.New("不能移动根目录")
	ErrCannotMoveIntoSubtree = errors.New("不能移动目录到其子目录下")
	ErrTargetNotFolder       = errors.New("操作目标不是一个文件夹")
	ErrInvalidLinkType       = errors.New("未知的分享链接类型")
	ErrInvalidRole           = errors.New("未知的团队角色")

	// 认证与授权错误
	ErrUnauthorized       = errors.New("用户未授权")
	ErrTokenInvalid       = errors.New("认证 Token 无效或已过期")
	ErrInvalidCredentials = errors.New("用户名或密码不正确")
	ErrUserAlreadyExists  = errors.New("该用户名已被注册")
	ErrEmailAlreadyExists = errors.New("邮箱已被注册")

	// 权限错误
	ErrForbidden                 = errors.New("禁止访问")
	ErrPermissionDenied          = errors.New("您没有操作此资源的权限")
	ErrSharePasswordRequired     = errors.New("团队策略要求分享链接必须设置密码")
	ErrSharePasswordIncorrect    = errors.New("分享密码不正确")
	ErrLinkLockRequiresPassword  = errors.New("未设置密码的分享链接不能使用锁定控制")
	ErrInsufficientTeamRole      = errors.New("团队角色等级不足")
	ErrExternalSharingDisabled   = errors.New("团队策略禁止对外分享")

	// 资源未找到错误
	ErrUserNotFound      = errors.New("用户不存在")
	ErrFileNotFound      = errors.New("文件不存在")
	ErrFolderNotFound    = errors.New("文件夹不存在")
	ErrShareNotFound     = errors.New("分享链接不存在或已失效")
	ErrTeamNotFound      = errors.New("团队不存在")
	ErrInviteNotFound    = errors.New("邀请不存在")
	ErrSpaceNotFound     = errors.New("空间不存在")
	ErrTeamShareNotFound = errors.New("该文件未共享给此团队")

	// 业务逻辑冲突
	ErrShareAlreadyExists  = errors.New("该文件已存在有效的分享链接")
	ErrFileAlreadyExists   = errors.New("文件或目录已存在")
	ErrInviteNotPending    = errors.New("邀请已被处理，不能重复受理")
	ErrMemberAlreadyExists = errors.New("该用户已经是团队成员")
	ErrCannotRemoveAdmin   = errors.New("团队管理员不能通过成员移除操作移除")
	ErrShareCodeExhausted  = errors.New("分享码生成重试次数耗尽，请重试")

	// 策略/配额拒绝
	ErrQuotaExceeded      = errors.New("存储空间不足，无法完成上传")
	ErrDailyLimitExceeded = errors.New("今日上传次数已达上限")
	ErrInviteExpired      = errors.New("邀请已过期")

	// 缓存错误
	ErrEmptyCache = errors.New("缓存为空")

	// 数据库与外部服务错误
	ErrDatabaseError = errors.New("数据库操作失败")
	ErrStorageError  = errors.New("存储服务操作失败")
	ErrMQError       = errors.New("消息队列操作失败")
	ErrSearchError   = errors.New("搜索服务操作失败")
)
