package worker

import (
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/mq"
	"github.com/skieshare/skieshare/internal/repositories"
)

// StartAllWorkers 启动应用中所有定义的后台 Worker
func StartAllWorkers(
	mqClient *mq.RabbitMQClient,
	auditRepo repositories.AuditLogRepository,
) {
	// --- 启动审计事件 Worker ---
	auditWorker := NewAuditWorker(mqClient, auditRepo)
	go auditWorker.Start()

	// --- 启动邮件发送 Worker ---
	mailWorker := NewMailWorker(mqClient)
	go mailWorker.Start()

	logger.Info("所有后台工作进程已启动。")
}
