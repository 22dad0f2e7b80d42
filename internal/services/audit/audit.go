package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/mq"
	"github.com/skieshare/skieshare/internal/repositories"
	"go.uber.org/zap"
)

// Event 审计事件消息，经由 MQ 投递给 audit worker 落库
type Event struct {
	TeamID     uint64         `json:"team_id"`
	UserID     uint64         `json:"user_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   *uint64        `json:"entity_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Recorder 审计记录服务
// 审计是尽力而为的旁路: Record 的任何失败只记日志，绝不影响主操作
type Recorder interface {
	// Log 同步追加一条审计记录并返回记录ID（对外暴露的 log_audit_event 操作）
	Log(ctx context.Context, teamID, userID uint64, action, entityType string, entityID *uint64, metadata map[string]any) (uint64, error)
	// Record 异步投递一条审计事件，永不返回错误
	Record(ctx context.Context, event Event)
}

type recorder struct {
	auditRepo repositories.AuditLogRepository
	mqClient  *mq.RabbitMQClient // 可为空，为空时退化为直接落库
}

// NewRecorder 创建审计记录服务
func NewRecorder(auditRepo repositories.AuditLogRepository, mqClient *mq.RabbitMQClient) Recorder {
	return &recorder{auditRepo: auditRepo, mqClient: mqClient}
}

func (r *recorder) Log(ctx context.Context, teamID, userID uint64, action, entityType string, entityID *uint64, metadata map[string]any) (uint64, error) {
	entry := &models.AuditLog{
		TeamID:     teamID,
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   marshalMetadata(metadata),
	}
	if err := r.auditRepo.Create(ctx, entry); err != nil {
		return 0, err
	}
	return entry.ID, nil
}

func (r *recorder) Record(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	// 优先走消息队列，由 worker 异步落库
	if r.mqClient != nil {
		if err := r.mqClient.PublishJSON(mq.AuditEventQueue, event); err == nil {
			return
		} else {
			logger.Warn("Record: 审计事件投递MQ失败，降级为直接落库",
				zap.String("action", event.Action), zap.Error(err))
		}
	}

	// 降级路径：直接落库，失败只记日志
	if _, err := r.Log(ctx, event.TeamID, event.UserID, event.Action, event.EntityType, event.EntityID, event.Metadata); err != nil {
		logger.Error("Record: 审计记录写入失败，事件丢弃",
			zap.Uint64("teamID", event.TeamID),
			zap.String("action", event.Action),
			zap.Error(err))
	}
}

func marshalMetadata(metadata map[string]any) *string {
	if len(metadata) == 0 {
		return nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		logger.Warn("审计元数据序列化失败，按空处理", zap.Error(err))
		return nil
	}
	s := string(data)
	return &s
}
