package quota

import (
	"context"
	"testing"
	"time"

	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	repositories.UserRepository
	users map[uint64]*models.User
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	return f.users[id], nil
}

func TestAllowed(t *testing.T) {
	const gb = uint64(1024 * 1024 * 1024)

	tests := []struct {
		name     string
		user     models.User
		incoming uint64
		want     bool
	}{
		{
			name:     "余量充足",
			user:     models.User{StorageUsed: 1 * gb, StorageLimit: 6 * gb, SubscriptionTier: models.TierFree},
			incoming: 100 * 1024 * 1024,
			want:     true,
		},
		{
			name:     "恰好用满边界放行",
			user:     models.User{StorageUsed: 5 * gb, StorageLimit: 6 * gb, SubscriptionTier: models.TierFree},
			incoming: 1 * gb,
			want:     true,
		},
		{
			name:     "超出一字节拒绝",
			user:     models.User{StorageUsed: 5 * gb, StorageLimit: 6 * gb, SubscriptionTier: models.TierFree},
			incoming: 1*gb + 1,
			want:     false,
		},
		{
			name:     "接近满额的大文件拒绝",
			user:     models.User{StorageUsed: 6*gb - 100*1024*1024, StorageLimit: 6 * gb, SubscriptionTier: models.TierFree},
			incoming: 200 * 1024 * 1024,
			want:     false,
		},
		{
			name:     "pro 套餐不受限",
			user:     models.User{StorageUsed: 100 * gb, StorageLimit: 6 * gb, SubscriptionTier: models.TierPro},
			incoming: 500 * gb,
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(&tt.user, tt.incoming))
		})
	}
}

func TestDailyUploadAllowed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// 上限为 0 表示不限次数
	user := models.User{DailyUploadCount: 9999}
	assert.True(t, DailyUploadAllowed(&user, 0, now))

	// 未达上限
	user = models.User{DailyUploadCount: 99}
	assert.True(t, DailyUploadAllowed(&user, 100, now))

	// 已达上限
	user = models.User{DailyUploadCount: 100}
	assert.False(t, DailyUploadAllowed(&user, 100, now))

	// 已跨过重置点，计数尚未清零但视为新的一天
	reset := now.Add(-time.Minute)
	user = models.User{DailyUploadCount: 100, DailyUploadResetAt: &reset}
	assert.True(t, DailyUploadAllowed(&user, 100, now))

	// 重置点还在未来，计数仍然有效
	reset = now.Add(time.Hour)
	user = models.User{DailyUploadCount: 100, DailyUploadResetAt: &reset}
	assert.False(t, DailyUploadAllowed(&user, 100, now))
}

func TestStorageLimitForTier(t *testing.T) {
	cfg := &config.QuotaConfig{
		FreeStorageLimit:  6442450944,
		BasicStorageLimit: 107374182400,
	}

	assert.Equal(t, uint64(6442450944), StorageLimitForTier(cfg, models.TierFree))
	assert.Equal(t, uint64(107374182400), StorageLimitForTier(cfg, models.TierBasic))
	// pro 的 limit 字段不参与判定
	assert.Equal(t, uint64(0), StorageLimitForTier(cfg, models.TierPro))

	// 配置缺省时回落到内置默认值
	assert.Equal(t, models.DefaultFreeStorageLimit, StorageLimitForTier(&config.QuotaConfig{}, models.TierFree))
}

func TestDailyUploadLimit(t *testing.T) {
	cfg := &config.QuotaConfig{FreeDailyUploads: 100, BasicDailyUploads: 1000}

	assert.Equal(t, uint32(100), DailyUploadLimit(cfg, models.TierFree))
	assert.Equal(t, uint32(1000), DailyUploadLimit(cfg, models.TierBasic))
	assert.Equal(t, uint32(0), DailyUploadLimit(cfg, models.TierPro))
}

func TestCheckStorageQuota(t *testing.T) {
	const gb = uint64(1024 * 1024 * 1024)
	userRepo := &fakeUserRepo{users: map[uint64]*models.User{
		7: {ID: 7, StorageUsed: 5 * gb, StorageLimit: 6 * gb, SubscriptionTier: models.TierFree},
	}}
	svc := NewService(userRepo, &config.QuotaConfig{})
	ctx := context.Background()

	ok, err := svc.CheckStorageQuota(ctx, 7, 1*gb)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckStorageQuota(ctx, 7, 1*gb+1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.CheckStorageQuota(ctx, 999, 1)
	assert.ErrorIs(t, err, xerr.ErrUserNotFound)
}
