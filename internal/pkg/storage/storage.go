package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/skieshare/skieshare/internal/config"
)

// PutObjectResult 上传结果
type PutObjectResult struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

// GetObjectResult 下载结果
type GetObjectResult struct {
	Reader   io.ReadCloser
	Size     int64
	MimeType string
}

// StorageService 定义了通用的文件存储操作接口
// 文件字节本身由对象存储托管，本服务只经手流和预签名URL
type StorageService interface {
	// 上传文件到指定存储桶，返回存储对象的信息或错误
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (PutObjectResult, error)
	// 从指定存储桶下载文件，返回一个读取器和对象信息
	GetObject(ctx context.Context, bucketName, objectName string) (GetObjectResult, error)
	// 从指定存储桶删除文件
	RemoveObject(ctx context.Context, bucketName, objectName string) error
	// 检查存储桶是否存在
	IsBucketExist(ctx context.Context, bucketName string) (bool, error)
	// 创建存储桶
	MakeBucket(ctx context.Context, bucketName string) error
	// PresignedGetURL 生成限时有效的下载URL
	PresignedGetURL(ctx context.Context, bucketName, objectName, fileName string, expiry time.Duration) (string, error)
}

// NewStorageService 根据配置选择存储后端
func NewStorageService(cfg *config.Config) (StorageService, error) {
	switch cfg.Storage.Type {
	case "minio":
		return NewMinIOStorageService(&cfg.MinIO)
	case "aliyun_oss":
		return NewAliyunOSSStorageService(&cfg.AliyunOSS)
	default:
		return nil, errors.New("未知的存储服务类型: " + cfg.Storage.Type)
	}
}
