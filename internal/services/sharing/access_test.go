package sharing

import (
	"context"
	"testing"
	"time"

	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/utils"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 测试用仓库 fake，内嵌接口只覆盖用到的方法，
// 未覆盖的方法被调到会 panic，顺带暴露意料之外的依赖
type fakeShareRepo struct {
	repositories.SharedLinkRepository
	byToken        map[string]*models.SharedLink
	activeByFile   map[uint64]*models.SharedLink
	activeByFolder map[uint64]*models.SharedLink
	created        []*models.SharedLink
	updated        []*models.SharedLink
	deletedIDs     []uint64
	linkIncrements []uint64
}

func (f *fakeShareRepo) FindByToken(ctx context.Context, token string) (*models.SharedLink, error) {
	return f.byToken[token], nil
}

func (f *fakeShareRepo) FindByID(ctx context.Context, linkID uint64) (*models.SharedLink, error) {
	for _, link := range f.byToken {
		if link.ID == linkID {
			return link, nil
		}
	}
	return nil, nil
}

func (f *fakeShareRepo) FindActiveByFileID(ctx context.Context, fileID uint64) (*models.SharedLink, error) {
	return f.activeByFile[fileID], nil
}

func (f *fakeShareRepo) FindActiveByFolderID(ctx context.Context, folderID uint64) (*models.SharedLink, error) {
	return f.activeByFolder[folderID], nil
}

func (f *fakeShareRepo) Create(ctx context.Context, link *models.SharedLink) error {
	link.ID = uint64(len(f.created) + 1)
	f.created = append(f.created, link)
	return nil
}

func (f *fakeShareRepo) Update(ctx context.Context, link *models.SharedLink) error {
	f.updated = append(f.updated, link)
	return nil
}

func (f *fakeShareRepo) Delete(ctx context.Context, linkID uint64) error {
	f.deletedIDs = append(f.deletedIDs, linkID)
	return nil
}

func (f *fakeShareRepo) IncrementDownloadCountTx(tx *gorm.DB, linkID uint64) error {
	f.linkIncrements = append(f.linkIncrements, linkID)
	return nil
}

type fakeFileRepo struct {
	repositories.FileRepository
	files           map[uint64]*models.File
	codeExists      bool
	codeChecks      int
	updated         []*models.File
	fileIncrements  []uint64
	listByFolderOut []models.File
}

func (f *fakeFileRepo) FindByID(ctx context.Context, fileID uint64) (*models.File, error) {
	return f.files[fileID], nil
}

func (f *fakeFileRepo) FindByShareCode(ctx context.Context, code string) (*models.File, error) {
	for _, file := range f.files {
		if file.ShareCode != nil && *file.ShareCode == code {
			return file, nil
		}
	}
	return nil, nil
}

func (f *fakeFileRepo) ShareCodeExists(ctx context.Context, code string) (bool, error) {
	f.codeChecks++
	return f.codeExists, nil
}

func (f *fakeFileRepo) Update(ctx context.Context, file *models.File) error {
	f.updated = append(f.updated, file)
	return nil
}

func (f *fakeFileRepo) IncrementDownloadCountTx(tx *gorm.DB, fileID uint64) error {
	f.fileIncrements = append(f.fileIncrements, fileID)
	return nil
}

func (f *fakeFileRepo) ListByFolderID(ctx context.Context, folderID uint64) ([]models.File, error) {
	return f.listByFolderOut, nil
}

type fakeFolderRepo struct {
	repositories.FolderRepository
	folders    map[uint64]*models.Folder
	codeExists bool
	updated    []*models.Folder
}

func (f *fakeFolderRepo) FindByID(ctx context.Context, folderID uint64) (*models.Folder, error) {
	return f.folders[folderID], nil
}

func (f *fakeFolderRepo) FindByShareCode(ctx context.Context, code string) (*models.Folder, error) {
	for _, folder := range f.folders {
		if folder.ShareCode != nil && *folder.ShareCode == code {
			return folder, nil
		}
	}
	return nil, nil
}

func (f *fakeFolderRepo) ShareCodeExists(ctx context.Context, code string) (bool, error) {
	return f.codeExists, nil
}

func (f *fakeFolderRepo) Update(ctx context.Context, folder *models.Folder) error {
	f.updated = append(f.updated, folder)
	return nil
}

type fakeTeamRepo struct {
	repositories.TeamRepository
	fileTeams map[uint64][]models.TeamFileShare
}

func (f *fakeTeamRepo) ListFileTeams(ctx context.Context, fileID uint64) ([]models.TeamFileShare, error) {
	return f.fileTeams[fileID], nil
}

type fakePolicyRepo struct {
	repositories.TeamPolicyRepository
	policies map[uint64]*models.TeamPolicy
}

func (f *fakePolicyRepo) GetByTeamID(ctx context.Context, teamID uint64) (*models.TeamPolicy, error) {
	return f.policies[teamID], nil
}

type fakeDlogRepo struct {
	repositories.DownloadLogRepository
	created []*models.DownloadLog
	buckets []repositories.BucketCount
	total   int64
}

func (f *fakeDlogRepo) CreateTx(tx *gorm.DB, log *models.DownloadLog) error {
	f.created = append(f.created, log)
	return nil
}

func (f *fakeDlogRepo) BucketCounts(ctx context.Context, fileID uint64, since, until time.Time, bucket time.Duration) ([]repositories.BucketCount, error) {
	return f.buckets, nil
}

func (f *fakeDlogRepo) CountByFileSince(ctx context.Context, fileID uint64, since time.Time) (int64, error) {
	return f.total, nil
}

// fakeTxManager 直接执行事务函数，tx 为 nil（fake 仓库不使用 tx）
type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{BaseURL: "http://localhost:8080"},
		Share: config.ShareConfig{
			TokenLength:       32,
			CodeLength:        8,
			CodeMaxAttempts:   5,
			DefaultExpiryDays: 7,
		},
	}
}

func newTestShareService(
	shareRepo *fakeShareRepo,
	fileRepo *fakeFileRepo,
	folderRepo *fakeFolderRepo,
	now time.Time,
) *shareService {
	return &shareService{
		shareRepo:  shareRepo,
		fileRepo:   fileRepo,
		folderRepo: folderRepo,
		teamRepo:   &fakeTeamRepo{},
		policyRepo: &fakePolicyRepo{},
		dlogRepo:   &fakeDlogRepo{},
		tm:         fakeTxManager{},
		cfg:        testConfig(),
		now:        func() time.Time { return now },
	}
}

func uintPtr(v uint64) *uint64       { return &v }
func strPtr(s string) *string        { return &s }
func timePtr(t time.Time) *time.Time { return &t }

func TestCheckFileAccess_OwnerBypass(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, Status: models.StatusNormal},
	}}
	// 链接已过期，但所有者不受链接状态约束
	expired := now.Add(-time.Hour)
	shareRepo := &fakeShareRepo{byToken: map[string]*models.SharedLink{
		"tok": {ID: 1, FileID: uintPtr(10), ShareToken: "tok", IsActive: true, ExpiresAt: &expired},
	}}
	svc := newTestShareService(shareRepo, fileRepo, &fakeFolderRepo{}, now)

	decision, err := svc.CheckFileAccess(context.Background(), AccessRequest{
		FileID:     10,
		UserID:     uintPtr(7),
		ShareToken: strPtr("tok"),
	})
	require.NoError(t, err)
	assert.True(t, decision.CanAccess)
	assert.Equal(t, ReasonGranted, decision.Reason)
	assert.Nil(t, decision.LinkID) // 所有者下载不记到任何链接头上
}

func TestCheckFileAccess_NotFound(t *testing.T) {
	now := time.Now()
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		11: {ID: 11, UserID: 7, Status: models.StatusDeleted},
	}}
	svc := newTestShareService(&fakeShareRepo{}, fileRepo, &fakeFolderRepo{}, now)

	for _, fileID := range []uint64{11, 999} {
		decision, err := svc.CheckFileAccess(context.Background(), AccessRequest{FileID: fileID})
		require.NoError(t, err)
		assert.False(t, decision.CanAccess)
		assert.Equal(t, ReasonNotFound, decision.Reason)
	}
}

func TestCheckFileAccess_PrivateAndPublic(t *testing.T) {
	now := time.Now()
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		1: {ID: 1, UserID: 7, Status: models.StatusNormal},
		2: {ID: 2, UserID: 7, Status: models.StatusNormal, IsPublic: true},
		3: {ID: 3, UserID: 7, Status: models.StatusNormal, IsPublic: true, IsLocked: true},
	}}
	svc := newTestShareService(&fakeShareRepo{}, fileRepo, &fakeFolderRepo{}, now)
	ctx := context.Background()

	decision, err := svc.CheckFileAccess(ctx, AccessRequest{FileID: 1})
	require.NoError(t, err)
	assert.Equal(t, ReasonPrivate, decision.Reason)

	decision, err = svc.CheckFileAccess(ctx, AccessRequest{FileID: 2})
	require.NoError(t, err)
	assert.True(t, decision.CanAccess)

	// 公开但被锁定的文件拒绝访问
	decision, err = svc.CheckFileAccess(ctx, AccessRequest{FileID: 3})
	require.NoError(t, err)
	assert.Equal(t, ReasonLocked, decision.Reason)
}

func TestCheckFileAccess_LinkStates(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hash, err := utils.HashPassword("secret")
	require.NoError(t, err)

	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, Status: models.StatusNormal},
	}}

	tests := []struct {
		name       string
		link       models.SharedLink
		password   *string
		wantReason string
		wantAccess bool
	}{
		{
			name:       "锁定链接",
			link:       models.SharedLink{IsActive: false},
			wantReason: ReasonLocked,
		},
		{
			name:       "已过期",
			link:       models.SharedLink{IsActive: true, ExpiresAt: timePtr(now.Add(-time.Minute))},
			wantReason: ReasonExpired,
		},
		{
			name: "过期优先于密码判定",
			link: models.SharedLink{
				IsActive:     true,
				ExpiresAt:    timePtr(now.Add(-time.Minute)),
				PasswordHash: &hash,
			},
			password:   strPtr("wrong"),
			wantReason: ReasonExpired,
		},
		{
			name: "下载次数达上限",
			link: models.SharedLink{
				IsActive:      true,
				DownloadLimit: uintPtr(3),
				DownloadCount: 3,
			},
			wantReason: ReasonLimitReached,
		},
		{
			name: "限额优先于密码判定",
			link: models.SharedLink{
				IsActive:      true,
				DownloadLimit: uintPtr(1),
				DownloadCount: 1,
				PasswordHash:  &hash,
			},
			password:   strPtr("secret"),
			wantReason: ReasonLimitReached,
		},
		{
			name:       "缺少密码",
			link:       models.SharedLink{IsActive: true, PasswordHash: &hash},
			wantReason: ReasonBadPassword,
		},
		{
			name:       "密码错误",
			link:       models.SharedLink{IsActive: true, PasswordHash: &hash},
			password:   strPtr("nope"),
			wantReason: ReasonBadPassword,
		},
		{
			name:       "密码正确放行",
			link:       models.SharedLink{IsActive: true, PasswordHash: &hash},
			password:   strPtr("secret"),
			wantReason: ReasonGranted,
			wantAccess: true,
		},
		{
			name: "未达限额放行",
			link: models.SharedLink{
				IsActive:      true,
				DownloadLimit: uintPtr(3),
				DownloadCount: 2,
			},
			wantReason: ReasonGranted,
			wantAccess: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := tt.link
			link.ID = 99
			link.FileID = uintPtr(10)
			link.ShareToken = "tok"
			shareRepo := &fakeShareRepo{byToken: map[string]*models.SharedLink{"tok": &link}}
			svc := newTestShareService(shareRepo, fileRepo, &fakeFolderRepo{}, now)

			decision, err := svc.CheckFileAccess(context.Background(), AccessRequest{
				FileID:     10,
				ShareToken: strPtr("tok"),
				Password:   tt.password,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantAccess, decision.CanAccess)
			assert.Equal(t, tt.wantReason, decision.Reason)
			if tt.wantAccess {
				require.NotNil(t, decision.LinkID)
				assert.Equal(t, uint64(99), *decision.LinkID)
			}
		})
	}
}

func TestCheckFileAccess_FileLevelGates(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	// 文件自身达到下载上限：公开访问和有效链接一律拒绝
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, Status: models.StatusNormal, IsPublic: true,
			DownloadLimit: uintPtr(1), DownloadCount: 1},
	}}
	shareRepo := &fakeShareRepo{byToken: map[string]*models.SharedLink{
		"tok": {ID: 1, FileID: uintPtr(10), ShareToken: "tok", IsActive: true},
	}}
	svc := newTestShareService(shareRepo, fileRepo, &fakeFolderRepo{}, now)

	decision, err := svc.CheckFileAccess(ctx, AccessRequest{FileID: 10})
	require.NoError(t, err)
	assert.False(t, decision.CanAccess)
	assert.Equal(t, ReasonLimitReached, decision.Reason)

	decision, err = svc.CheckFileAccess(ctx, AccessRequest{FileID: 10, ShareToken: strPtr("tok")})
	require.NoError(t, err)
	assert.Equal(t, ReasonLimitReached, decision.Reason)

	// 所有者不受文件级限额约束
	decision, err = svc.CheckFileAccess(ctx, AccessRequest{FileID: 10, UserID: uintPtr(7)})
	require.NoError(t, err)
	assert.True(t, decision.CanAccess)

	// 文件整体过期
	fileRepo = &fakeFileRepo{files: map[uint64]*models.File{
		11: {ID: 11, UserID: 7, Status: models.StatusNormal, IsPublic: true,
			ExpiresAt: timePtr(now.Add(-time.Hour))},
	}}
	svc = newTestShareService(&fakeShareRepo{}, fileRepo, &fakeFolderRepo{}, now)

	decision, err = svc.CheckFileAccess(ctx, AccessRequest{FileID: 11})
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, decision.Reason)

	// 文件级限额优先于过期
	fileRepo = &fakeFileRepo{files: map[uint64]*models.File{
		12: {ID: 12, UserID: 7, Status: models.StatusNormal, IsPublic: true,
			DownloadLimit: uintPtr(2), DownloadCount: 2,
			ExpiresAt: timePtr(now.Add(-time.Hour))},
	}}
	svc = newTestShareService(&fakeShareRepo{}, fileRepo, &fakeFolderRepo{}, now)

	decision, err = svc.CheckFileAccess(ctx, AccessRequest{FileID: 12})
	require.NoError(t, err)
	assert.Equal(t, ReasonLimitReached, decision.Reason)
}

func TestCheckFileAccess_LockedPublicWithPassword(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hash, err := utils.HashPassword("file-secret")
	require.NoError(t, err)

	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, Status: models.StatusNormal, IsPublic: true,
			IsLocked: true, PasswordHash: &hash},
	}}
	svc := newTestShareService(&fakeShareRepo{}, fileRepo, &fakeFolderRepo{}, now)
	ctx := context.Background()

	// 锁定且设有文件密码：缺少或错误密码拒绝，密码正确放行
	decision, err := svc.CheckFileAccess(ctx, AccessRequest{FileID: 10})
	require.NoError(t, err)
	assert.Equal(t, ReasonBadPassword, decision.Reason)

	decision, err = svc.CheckFileAccess(ctx, AccessRequest{FileID: 10, Password: strPtr("nope")})
	require.NoError(t, err)
	assert.Equal(t, ReasonBadPassword, decision.Reason)

	decision, err = svc.CheckFileAccess(ctx, AccessRequest{FileID: 10, Password: strPtr("file-secret")})
	require.NoError(t, err)
	assert.True(t, decision.CanAccess)
	assert.Equal(t, ReasonGranted, decision.Reason)
}

func TestCheckFileAccess_TokenForDifferentFile(t *testing.T) {
	now := time.Now()
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, Status: models.StatusNormal},
	}}
	shareRepo := &fakeShareRepo{byToken: map[string]*models.SharedLink{
		"tok": {ID: 1, FileID: uintPtr(77), ShareToken: "tok", IsActive: true},
	}}
	svc := newTestShareService(shareRepo, fileRepo, &fakeFolderRepo{}, now)

	decision, err := svc.CheckFileAccess(context.Background(), AccessRequest{
		FileID:     10,
		ShareToken: strPtr("tok"),
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, decision.Reason)
}

func TestCheckFileAccess_ShareCode(t *testing.T) {
	now := time.Now()
	code := "ABCD2345"
	fileRepo := &fakeFileRepo{files: map[uint64]*models.File{
		10: {ID: 10, UserID: 7, Status: models.StatusNormal, ShareCode: &code},
	}}
	svc := newTestShareService(&fakeShareRepo{}, fileRepo, &fakeFolderRepo{}, now)
	ctx := context.Background()

	// 分享码不匹配
	decision, err := svc.CheckFileAccess(ctx, AccessRequest{FileID: 10, ShareCode: strPtr("WRONG234")})
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, decision.Reason)

	// 分享码挂在文件上但有效链接已撤销，对外表现为锁定
	decision, err = svc.CheckFileAccess(ctx, AccessRequest{FileID: 10, ShareCode: &code})
	require.NoError(t, err)
	assert.Equal(t, ReasonLocked, decision.Reason)

	// 有效链接存在则正常放行
	shareRepo := &fakeShareRepo{activeByFile: map[uint64]*models.SharedLink{
		10: {ID: 5, FileID: uintPtr(10), IsActive: true},
	}}
	svc = newTestShareService(shareRepo, fileRepo, &fakeFolderRepo{}, now)
	decision, err = svc.CheckFileAccess(ctx, AccessRequest{FileID: 10, ShareCode: &code})
	require.NoError(t, err)
	assert.True(t, decision.CanAccess)
}

func TestCheckFolderAccess(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	folderRepo := &fakeFolderRepo{folders: map[uint64]*models.Folder{
		20: {ID: 20, UserID: 7},
	}}
	shareRepo := &fakeShareRepo{byToken: map[string]*models.SharedLink{
		"ftok": {ID: 2, FolderID: uintPtr(20), ShareToken: "ftok", IsActive: true},
	}}
	svc := newTestShareService(shareRepo, &fakeFileRepo{}, folderRepo, now)
	ctx := context.Background()

	// 所有者直通
	decision, err := svc.CheckFolderAccess(ctx, FolderAccessRequest{FolderID: 20, UserID: uintPtr(7)})
	require.NoError(t, err)
	assert.True(t, decision.CanAccess)

	// 匿名 + 有效 token
	decision, err = svc.CheckFolderAccess(ctx, FolderAccessRequest{FolderID: 20, ShareToken: strPtr("ftok")})
	require.NoError(t, err)
	assert.True(t, decision.CanAccess)

	// 文件夹没有公开访问概念，无分享途径即私有
	decision, err = svc.CheckFolderAccess(ctx, FolderAccessRequest{FolderID: 20})
	require.NoError(t, err)
	assert.Equal(t, ReasonPrivate, decision.Reason)
}
