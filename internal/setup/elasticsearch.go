package setup

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"go.uber.org/zap"
)

// InitElasticsearchClient 初始化 Elasticsearch 客户端，用于文件名搜索
func InitElasticsearchClient(cfg *config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		logger.Error("Failed to create Elasticsearch client", zap.Error(err))
		return nil, err
	}

	// 尝试连接并获取集群信息，验证连接是否成功
	res, err := client.Info()
	if err != nil {
		logger.Error("Failed to connect to Elasticsearch", zap.Error(err))
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		logger.Error("Error connecting to Elasticsearch", zap.String("status", res.Status()))
		return nil, err
	}

	logger.Info("Elasticsearch client initialized successfully.")
	return client, nil
}
