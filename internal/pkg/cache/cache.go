package cache

import (
	"context"
	"fmt"
	"time"
)

// 缓存通用接口
type Cache interface {
	// Set在缓存中设置一个值，并指定过期时间。
	// value应该是一个可以被JSON封送的结构体或指向结构体的指针。
	Set(ctx context.Context, key string, value any, expiration time.Duration) error

	// Get从缓存中检索一个值，并将其解编组到目标接口。
	// target应该是一个指针，指向希望解编组成的类型。
	Get(ctx context.Context, key string, target any) error

	// 删除一个或多个key
	Del(ctx context.Context, keys ...string) error

	// 检查key是否存在
	Exists(ctx context.Context, key string) (bool, error)

	Expire(ctx context.Context, key string, expiration time.Duration) error
}

// GenerateShareTokenKey 分享 token 详情缓存键
func GenerateShareTokenKey(token string) string {
	return fmt.Sprintf("share:token:%s", token)
}

// GenerateShareCodeKey 分享码到文件的映射缓存键
func GenerateShareCodeKey(code string) string {
	return fmt.Sprintf("share:code:%s", code)
}

// GenerateDownloadStatsKey 文件下载统计缓存键，按窗口区分
func GenerateDownloadStatsKey(fileID uint64, windowHours int) string {
	return fmt.Sprintf("stats:downloads:%d:%dh", fileID, windowHours)
}

// GenerateTeamMembersKey 团队成员列表缓存键
func GenerateTeamMembersKey(teamID uint64) string {
	return fmt.Sprintf("team:members:%d", teamID)
}
