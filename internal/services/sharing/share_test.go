package sharing

import (
	"context"
	"testing"
	"time"

	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/utils"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFileShare_Basic(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, FileName: "报表.xlsx", Status: models.StatusNormal},
	}}
	shareRepo := &fakeShareRepo{}
	svc := newTestShareService(shareRepo, fileRepo, &fakeFolderRepo{}, now)
	ctx := context.Background()

	result, err := svc.CreateFileShare(ctx, 7, 10, models.LinkTypeDirect, ShareOptions{})
	require.NoError(t, err)
	require.NotNil(t, result.Link)
	assert.NotEmpty(t, result.ShareToken)
	assert.Nil(t, result.ShareCode) // direct 类型不生成短码
	assert.True(t, result.Link.IsActive)

	// 未指定过期时间时按全局配置取默认（7天）
	require.NotNil(t, result.Link.ExpiresAt)
	assert.Equal(t, now.AddDate(0, 0, 7), *result.Link.ExpiresAt)
}

func TestCreateFileShare_Validation(t *testing.T) {
	now := time.Now()
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, Status: models.StatusNormal},
		11: {ID: 11, UserID: 7, Status: models.StatusDeleted},
	}}
	svc := newTestShareService(&fakeShareRepo{}, fileRepo, &fakeFolderRepo{}, now)
	ctx := context.Background()

	_, err := svc.CreateFileShare(ctx, 7, 10, "magic", ShareOptions{})
	assert.ErrorIs(t, err, xerr.ErrInvalidLinkType)

	// email 类型必须给收件人
	_, err = svc.CreateFileShare(ctx, 7, 10, models.LinkTypeEmail, ShareOptions{})
	assert.ErrorIs(t, err, xerr.ErrInvalidParams)

	_, err = svc.CreateFileShare(ctx, 7, 999, models.LinkTypeDirect, ShareOptions{})
	assert.ErrorIs(t, err, xerr.ErrFileNotFound)

	// 非所有者不能创建分享
	_, err = svc.CreateFileShare(ctx, 8, 10, models.LinkTypeDirect, ShareOptions{})
	assert.ErrorIs(t, err, xerr.ErrPermissionDenied)

	// 回收站中的文件不能分享
	_, err = svc.CreateFileShare(ctx, 7, 11, models.LinkTypeDirect, ShareOptions{})
	assert.ErrorIs(t, err, xerr.ErrFileStatusInvalid)
}

func TestCreateFileShare_AlreadyExists(t *testing.T) {
	now := time.Now()
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, Status: models.StatusNormal},
	}}
	shareRepo := &fakeShareRepo{activeByFile: map[uint64]*models.SharedLink{
		10: {ID: 1, FileID: uintPtr(10), IsActive: true},
	}}
	svc := newTestShareService(shareRepo, fileRepo, &fakeFolderRepo{}, now)

	_, err := svc.CreateFileShare(context.Background(), 7, 10, models.LinkTypeDirect, ShareOptions{})
	assert.ErrorIs(t, err, xerr.ErrShareAlreadyExists)
}

func TestCreateFileShare_TeamPolicies(t *testing.T) {
	now := time.Now()
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, Status: models.StatusNormal},
	}}
	ctx := context.Background()

	// 指定的团队上下文禁止对外分享
	svc := newTestShareService(&fakeShareRepo{}, fileRepo, &fakeFolderRepo{}, now)
	svc.policyRepo = &fakePolicyRepo{policies: map[uint64]*models.TeamPolicy{
		1: {TeamID: 1, AllowExternalSharing: false},
	}}
	_, err := svc.CreateFileShare(ctx, 7, 10, models.LinkTypeDirect, ShareOptions{TeamID: uintPtr(1)})
	assert.ErrorIs(t, err, xerr.ErrExternalSharingDisabled)

	// 团队策略要求分享必须设置密码
	svc = newTestShareService(&fakeShareRepo{}, fileRepo, &fakeFolderRepo{}, now)
	svc.policyRepo = &fakePolicyRepo{policies: map[uint64]*models.TeamPolicy{
		2: {TeamID: 2, AllowExternalSharing: true, RequirePasswordForShares: true},
	}}
	_, err = svc.CreateFileShare(ctx, 7, 10, models.LinkTypeDirect, ShareOptions{TeamID: uintPtr(2)})
	assert.ErrorIs(t, err, xerr.ErrSharePasswordRequired)

	// 带密码则放行
	result, err := svc.CreateFileShare(ctx, 7, 10, models.LinkTypeDirect, ShareOptions{
		TeamID:   uintPtr(2),
		Password: strPtr("secret"),
	})
	require.NoError(t, err)
	assert.NotNil(t, result.Link.PasswordHash)

	// 文件已共享到的团队的策略同样生效，即便请求没带团队上下文
	svc = newTestShareService(&fakeShareRepo{}, fileRepo, &fakeFolderRepo{}, now)
	svc.teamRepo = &fakeTeamRepo{fileTeams: map[uint64][]models.TeamFileShare{
		10: {{TeamID: 3, FileID: 10}},
	}}
	svc.policyRepo = &fakePolicyRepo{policies: map[uint64]*models.TeamPolicy{
		3: {TeamID: 3, AllowExternalSharing: false},
	}}
	_, err = svc.CreateFileShare(ctx, 7, 10, models.LinkTypeDirect, ShareOptions{})
	assert.ErrorIs(t, err, xerr.ErrExternalSharingDisabled)
}

func TestCreateFileShare_CodeType(t *testing.T) {
	now := time.Now()
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, Status: models.StatusNormal},
	}}
	svc := newTestShareService(&fakeShareRepo{}, fileRepo, &fakeFolderRepo{}, now)

	result, err := svc.CreateFileShare(context.Background(), 7, 10, models.LinkTypeCode, ShareOptions{})
	require.NoError(t, err)
	require.NotNil(t, result.ShareCode)
	assert.Len(t, *result.ShareCode, 8)
	// 短码写回文件行
	require.Len(t, fileRepo.updated, 1)
	assert.Equal(t, *result.ShareCode, *fileRepo.updated[0].ShareCode)
}

func TestUniqueShareCode_Exhausted(t *testing.T) {
	now := time.Now()
	// 每次生成的码都已被占用，重试耗尽后报错
	fileRepo := &fakeFileRepo{codeExists: true}
	svc := newTestShareService(&fakeShareRepo{}, fileRepo, &fakeFolderRepo{}, now)

	_, err := svc.uniqueShareCode(context.Background())
	assert.ErrorIs(t, err, xerr.ErrShareCodeExhausted)
	assert.Equal(t, 5, fileRepo.codeChecks)
}

func TestUpdateSharedLinkSettings_LockRequiresPassword(t *testing.T) {
	now := time.Now()
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, Status: models.StatusNormal},
	}}
	link := &models.SharedLink{ID: 1, FileID: uintPtr(10), ShareToken: "tok", IsActive: true}
	shareRepo := &fakeShareRepo{byToken: map[string]*models.SharedLink{"tok": link}}
	svc := newTestShareService(shareRepo, fileRepo, &fakeFolderRepo{}, now)
	ctx := context.Background()

	// 未设密码的链接不能通过锁定控制切换
	inactive := false
	err := svc.UpdateSharedLinkSettings(ctx, 7, 1, LinkSettingsPatch{IsActive: &inactive})
	assert.ErrorIs(t, err, xerr.ErrLinkLockRequiresPassword)

	// 同一请求里先设密码再锁定是允许的
	err = svc.UpdateSharedLinkSettings(ctx, 7, 1, LinkSettingsPatch{
		IsActive: &inactive,
		Password: strPtr("secret"),
	})
	require.NoError(t, err)
	assert.False(t, link.IsActive)
	require.NotNil(t, link.PasswordHash)
}

func TestUpdateSharedLinkSettings_OwnerOnly(t *testing.T) {
	now := time.Now()
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, Status: models.StatusNormal},
	}}
	link := &models.SharedLink{ID: 1, FileID: uintPtr(10), ShareToken: "tok", IsActive: true}
	shareRepo := &fakeShareRepo{byToken: map[string]*models.SharedLink{"tok": link}}
	svc := newTestShareService(shareRepo, fileRepo, &fakeFolderRepo{}, now)

	limit := uint64(5)
	err := svc.UpdateSharedLinkSettings(context.Background(), 8, 1, LinkSettingsPatch{DownloadLimit: &limit})
	assert.ErrorIs(t, err, xerr.ErrPermissionDenied)
}

func TestRevokeShare(t *testing.T) {
	now := time.Now()
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, Status: models.StatusNormal},
	}}
	link := &models.SharedLink{ID: 1, FileID: uintPtr(10), ShareToken: "tok", IsActive: true}
	shareRepo := &fakeShareRepo{byToken: map[string]*models.SharedLink{"tok": link}}
	svc := newTestShareService(shareRepo, fileRepo, &fakeFolderRepo{}, now)

	err := svc.RevokeShare(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.False(t, link.IsActive)
	assert.Equal(t, []uint64{1}, shareRepo.deletedIDs)
}

func TestValidateSharePassword(t *testing.T) {
	now := time.Now()
	hash, err := utils.HashPassword("secret")
	require.NoError(t, err)
	shareRepo := &fakeShareRepo{byToken: map[string]*models.SharedLink{
		"open":   {ID: 1, ShareToken: "open", IsActive: true},
		"closed": {ID: 2, ShareToken: "closed", IsActive: true, PasswordHash: &hash},
	}}
	svc := newTestShareService(shareRepo, &fakeFileRepo{}, &fakeFolderRepo{}, now)
	ctx := context.Background()

	// 无密码链接视为校验通过
	ok, err := svc.ValidateSharePassword(ctx, "open", "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.ValidateSharePassword(ctx, "closed", "secret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.ValidateSharePassword(ctx, "closed", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.ValidateSharePassword(ctx, "missing", "x")
	assert.ErrorIs(t, err, xerr.ErrShareNotFound)
}

func TestRecordDownload(t *testing.T) {
	now := time.Now()
	fileRepo := &fakeFileRepo{}
	shareRepo := &fakeShareRepo{}
	dlogRepo := &fakeDlogRepo{}
	svc := newTestShareService(shareRepo, fileRepo, &fakeFolderRepo{}, now)
	svc.dlogRepo = dlogRepo
	ctx := context.Background()

	err := svc.RecordDownload(ctx, 10, uintPtr(5), models.DownloadMethodShareLink, RequesterInfo{
		IP:        "203.0.113.9",
		UserAgent: "curl/8.0",
	})
	require.NoError(t, err)
	require.Len(t, dlogRepo.created, 1)
	assert.Equal(t, uint64(10), dlogRepo.created[0].FileID)
	assert.Equal(t, []uint64{10}, fileRepo.fileIncrements)
	assert.Equal(t, []uint64{5}, shareRepo.linkIncrements)

	// 无链接（所有者直接下载）时只递增文件计数
	err = svc.RecordDownload(ctx, 10, nil, models.DownloadMethodOwner, RequesterInfo{UserID: uintPtr(7)})
	require.NoError(t, err)
	assert.Len(t, shareRepo.linkIncrements, 1)
	assert.Len(t, fileRepo.fileIncrements, 2)
}

func TestResolveShareCode(t *testing.T) {
	now := time.Now()
	code := "FILE2345"
	folderCode := "FOLD2345"
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, ShareCode: &code},
	}}
	folderRepo := &fakeFolderRepo{folders: map[uint64]*models.Folder{
		20: {ID: 20, ShareCode: &folderCode},
	}}
	svc := newTestShareService(&fakeShareRepo{}, fileRepo, folderRepo, now)
	ctx := context.Background()

	res, err := svc.ResolveShareCode(ctx, code)
	require.NoError(t, err)
	require.NotNil(t, res.File)
	assert.Nil(t, res.Folder)

	res, err = svc.ResolveShareCode(ctx, folderCode)
	require.NoError(t, err)
	require.NotNil(t, res.Folder)

	_, err = svc.ResolveShareCode(ctx, "NOPE2345")
	assert.ErrorIs(t, err, xerr.ErrShareNotFound)
}

func TestTrendPercent(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	buckets := func(firstHalf, secondHalf int64) []repositories.BucketCount {
		return []repositories.BucketCount{
			{BucketStart: since.Add(time.Hour), Count: firstHalf},
			{BucketStart: since.Add(13 * time.Hour), Count: secondHalf},
		}
	}

	assert.Equal(t, float64(100), trendPercent(buckets(10, 20), since, window))
	assert.Equal(t, float64(-50), trendPercent(buckets(10, 5), since, window))
	assert.Equal(t, float64(0), trendPercent(buckets(10, 10), since, window))
	// 前半窗为零的边界
	assert.Equal(t, float64(100), trendPercent(buckets(0, 3), since, window))
	assert.Equal(t, float64(0), trendPercent(nil, since, window))
}
