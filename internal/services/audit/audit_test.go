package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/skieshare/skieshare/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuditRepo struct {
	entries []*models.AuditLog
	err     error
}

func (f *fakeAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	entry.ID = uint64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) ListByTeam(ctx context.Context, teamID uint64, page, pageSize int) ([]models.AuditLog, int64, error) {
	var out []models.AuditLog
	for _, e := range f.entries {
		if e.TeamID == teamID {
			out = append(out, *e)
		}
	}
	return out, int64(len(out)), nil
}

func TestLog(t *testing.T) {
	repo := &fakeAuditRepo{}
	rec := NewRecorder(repo, nil)
	ctx := context.Background()

	entityID := uint64(42)
	id, err := rec.Log(ctx, 1, 7, models.AuditActionFileShared, "file", &entityID,
		map[string]any{"team_id": 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, models.AuditActionFileShared, entry.Action)
	assert.Equal(t, &entityID, entry.EntityID)
	require.NotNil(t, entry.Metadata)
	assert.Contains(t, *entry.Metadata, "team_id")

	// 空元数据不序列化
	_, err = rec.Log(ctx, 1, 7, models.AuditActionFileUnshared, "file", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, repo.entries[1].Metadata)
}

func TestRecord_FallsBackToDirectWrite(t *testing.T) {
	repo := &fakeAuditRepo{}
	rec := NewRecorder(repo, nil)

	// 未配置 MQ 时直接落库
	rec.Record(context.Background(), Event{
		TeamID: 1, UserID: 7,
		Action:     models.AuditActionInviteSent,
		EntityType: "team_invite",
	})
	require.Len(t, repo.entries, 1)
	assert.Equal(t, models.AuditActionInviteSent, repo.entries[0].Action)
}

func TestRecord_WriteFailureDoesNotPanic(t *testing.T) {
	repo := &fakeAuditRepo{err: errors.New("数据库不可用")}
	rec := NewRecorder(repo, nil)

	// 旁路写入失败只记日志，事件丢弃
	rec.Record(context.Background(), Event{TeamID: 1, UserID: 7, Action: models.AuditActionInviteSent})
	assert.Empty(t, repo.entries)
}
