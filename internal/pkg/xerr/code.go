package xerr

// 定义了统一的业务错误码
const (
	SuccessCode = 20000 // 通用成功码

	// --- 客户端请求错误系列 (400xx) ---
	InvalidParamsCode         = 40000 // 无效的请求参数
	ValidationFailedCode      = 40001 // 参数验证失败
	FileTooLargeCode          = 40002 // 文件过大，超出团队策略限制
	FileNameInvalidCode       = 40003 // 文件名无效
	FileStatusInvalidCode     = 40004 // 文件状态异常，无法操作
	CannotMoveRootCode        = 40005 // 不能移动根目录
	CannotMoveIntoSubtreeCode = 40006 // 不能移动目录到其子目录下
	TargetNotFolderCode       = 40007 // 操作目标不是一个文件夹
	InvalidLinkTypeCode       = 40008 // 未知的分享链接类型
	InvalidRoleCode           = 40009 // 未知的团队角色

	// --- 认证与授权错误系列 (401xx) ---
	UnauthorizedCode       = 40100 // 通用未授权
	TokenInvalidCode       = 40101 // Token 无效或过期
	InvalidCredentialsCode = 40102 // 用户名或密码错误

	// --- 权限错误系列 (403xx) ---
	ForbiddenCode              = 40300 // 通用无权限
	PermissionDeniedCode       = 40301 // 权限不足 (细分)
	SharePasswordRequiredCode  = 40302 // 团队策略要求分享必须设置密码
	SharePasswordIncorrectCode = 40303 // 分享密码不正确
	LinkLockRequiresPassword   = 40304 // 无密码的链接不能通过锁定控制切换
	InsufficientTeamRoleCode   = 40305 // 团队角色等级不足
	ExternalSharingDisabled    = 40306 // 团队策略禁止外部分享

	// --- 资源未找到错误系列 (404xx) ---
	NotFoundCode          = 40400 // 通用资源未找到
	UserNotFoundCode      = 40401 // 用户不存在
	FileNotFoundCode      = 40402 // 文件不存在
	FolderNotFoundCode    = 40403 // 文件夹不存在
	ShareNotFoundCode     = 40404 // 分享链接不存在
	TeamNotFoundCode      = 40405 // 团队不存在
	InviteNotFoundCode    = 40406 // 邀请不存在
	SpaceNotFoundCode     = 40407 // 空间不存在
	TeamShareNotFound     = 40408 // 文件未共享给该团队

	// --- 业务逻辑冲突系列 (409xx) ---
	UserAlreadyExistsCode   = 40900 // 用户名已存在
	EmailAlreadyExistsCode  = 40901 // 邮箱已存在
	ShareAlreadyExistsCode  = 40902 // 分享链接已存在
	FileAlreadyExistsCode   = 40903 // 文件或目录已存在
	InviteNotPendingCode    = 40904 // 邀请不在 pending 状态，无法受理
	MemberAlreadyExistsCode = 40905 // 用户已是团队成员
	CannotRemoveAdminCode   = 40906 // 不能通过成员移除操作移除团队管理员
	ShareCodeExhaustedCode  = 40907 // 分享码生成重试耗尽

	// --- 策略/配额拒绝系列 (422xx) ---
	QuotaExceededCode      = 42200 // 存储配额不足
	DailyLimitExceededCode = 42201 // 每日上传次数已用完
	InviteExpiredCode      = 42202 // 邀请已过期

	// --- 服务器内部错误系列 (500xx) ---
	InternalServerErrorCode = 50000 // 服务器内部通用错误
	DatabaseErrorCode       = 50001 // 数据库操作失败
	StorageErrorCode        = 50002 // 存储服务操作失败（如MinIO）
	MQErrorCode             = 50003 // 消息队列操作失败
	SearchErrorCode         = 50004 // 搜索服务操作失败
)
