package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/skieshare/skieshare/internal/models"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/xerr"
	"go.uber.org/zap"
)

// FileDocument 写入搜索索引的文件文档
type FileDocument struct {
	FileID   uint64  `json:"file_id"`
	UserID   uint64  `json:"user_id"`
	FileName string  `json:"filename"`
	MimeType *string `json:"mime_type,omitempty"`
	Size     uint64  `json:"size"`
}

// SearchService 定义了文件名搜索需要实现的接口
// 索引写入是旁路操作，失败只降级搜索体验，不影响文件主流程
type SearchService interface {
	IndexFile(ctx context.Context, file *models.File) error
	RemoveFile(ctx context.Context, fileID uint64) error
	// SearchFiles 在用户自己的文件内按文件名模糊搜索
	SearchFiles(ctx context.Context, userID uint64, keyword string, limit int) ([]FileDocument, error)
}

type searchService struct {
	client *elasticsearch.Client
	index  string
}

var _ SearchService = (*searchService)(nil)

// NewSearchService 创建一个新的 SearchService 实例
func NewSearchService(client *elasticsearch.Client, index string) SearchService {
	return &searchService{client: client, index: index}
}

func (s *searchService) IndexFile(ctx context.Context, file *models.File) error {
	doc := FileDocument{
		FileID:   file.ID,
		UserID:   file.UserID,
		FileName: file.FileName,
		MimeType: file.MimeType,
		Size:     file.Size,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("序列化搜索文档失败: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: strconv.FormatUint(file.ID, 10),
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("写入搜索索引失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("写入搜索索引失败: %s", res.Status())
	}
	return nil
}

func (s *searchService) RemoveFile(ctx context.Context, fileID uint64) error {
	req := esapi.DeleteRequest{
		Index:      s.index,
		DocumentID: strconv.FormatUint(fileID, 10),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("删除搜索索引失败: %w", err)
	}
	defer res.Body.Close()
	// 文档不存在视为删除成功
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("删除搜索索引失败: %s", res.Status())
	}
	return nil
}

func (s *searchService) SearchFiles(ctx context.Context, userID uint64, keyword string, limit int) ([]FileDocument, error) {
	if keyword == "" {
		return nil, xerr.ErrInvalidParams
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{
						"match": map[string]any{
							"filename": map[string]any{
								"query":     keyword,
								"fuzziness": "AUTO",
							},
						},
					},
				},
				"filter": []any{
					map[string]any{"term": map[string]any{"user_id": userID}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("序列化搜索请求失败: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		logger.Error("SearchFiles: 搜索请求失败", zap.String("keyword", keyword), zap.Error(err))
		return nil, fmt.Errorf("搜索文件失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("搜索文件失败: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source FileDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("解析搜索结果失败: %w", err)
	}

	docs := make([]FileDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}
