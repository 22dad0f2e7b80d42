package worker

import (
	"context"
	"encoding/json"
	"log"

	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/mq"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/skieshare/skieshare/internal/services/audit"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// AuditWorker 消费审计事件队列，把事件落库
// 审计是尽力而为的旁路：单条消息处理失败不重试，记日志后丢弃
type AuditWorker struct {
	mqClient  *mq.RabbitMQClient
	auditRepo repositories.AuditLogRepository
}

func NewAuditWorker(mqClient *mq.RabbitMQClient, auditRepo repositories.AuditLogRepository) *AuditWorker {
	return &AuditWorker{
		mqClient:  mqClient,
		auditRepo: auditRepo,
	}
}

func (w *AuditWorker) Start() {
	_, err := w.mqClient.DeclareQueue(mq.AuditEventQueue)
	if err != nil {
		log.Fatalf("Failed to declare queue: %s", err)
	}
	err = w.mqClient.Consume(mq.AuditEventQueue, w.HandleEvent)
	if err != nil {
		log.Fatalf("Failed to start consuming from queue: %s", err)
	}

	log.Println("Audit worker started...")
}

func (w *AuditWorker) HandleEvent(msg amqp.Delivery) {
	var event audit.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		logger.Error("Failed to unmarshal audit event", zap.Error(err))
		_ = msg.Nack(false, false) // 解析失败,直接抛弃
		return
	}

	entry := &models.AuditLog{
		TeamID:     event.TeamID,
		UserID:     event.UserID,
		Action:     event.Action,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
	}
	if len(event.Metadata) > 0 {
		if raw, err := json.Marshal(event.Metadata); err == nil {
			s := string(raw)
			entry.Metadata = &s
		}
	}

	if err := w.auditRepo.Create(context.Background(), entry); err != nil {
		logger.Error("Failed to persist audit event",
			zap.String("action", event.Action), zap.Uint64("teamID", event.TeamID), zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
}
