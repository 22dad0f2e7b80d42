package worker

import (
	"encoding/json"
	"log"

	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/mq"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// MailWorker 消费发信任务队列
// 当前没有接真实的邮件网关，投递动作以结构化日志落地，
// TODO: 对接 SMTP 网关后把 dispatch 换成真实发送
type MailWorker struct {
	mqClient *mq.RabbitMQClient
}

func NewMailWorker(mqClient *mq.RabbitMQClient) *MailWorker {
	return &MailWorker{mqClient: mqClient}
}

func (w *MailWorker) Start() {
	_, err := w.mqClient.DeclareQueue(mq.ShareEmailQueue)
	if err != nil {
		log.Fatalf("Failed to declare queue: %s", err)
	}
	err = w.mqClient.Consume(mq.ShareEmailQueue, w.HandleJob)
	if err != nil {
		log.Fatalf("Failed to start consuming from queue: %s", err)
	}

	log.Println("Mail worker started...")
}

func (w *MailWorker) HandleJob(msg amqp.Delivery) {
	var job mq.ShareEmailJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		logger.Error("Failed to unmarshal mail job", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	logger.Info("Dispatching share email",
		zap.String("to", job.To),
		zap.String("shareURL", job.ShareURL),
		zap.String("fileName", job.FileName))
	_ = msg.Ack(false)
}
