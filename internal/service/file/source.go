package file

import (
	"context"
	"fmt"
	"io"

	"github.com/ashwinyue/velobot/internal/config"
)

// Source 上下文文档来源
// 资源置备时从这里拉取文档再上传到远程
type Source interface {
	// List 列出前缀下的逻辑文件名
	List(ctx context.Context, prefix string) ([]string, error)
	// Get 获取文档内容
	Get(ctx context.Context, name string) (io.ReadCloser, error)
}

// SourceType 来源类型
type SourceType string

const (
	SourceTypeLocal SourceType = "local"
	SourceTypeMinIO SourceType = "minio"
)

// NewSource 根据配置创建文档来源
func NewSource(cfg config.StorageConfig) (Source, error) {
	switch SourceType(cfg.Type) {
	case SourceTypeLocal, "":
		return NewLocalSource(cfg.LocalPath)
	case SourceTypeMinIO:
		return NewMinIOSource(&MinIOConfig{
			Endpoint:   cfg.Endpoint,
			AccessKey:  cfg.AccessKey,
			SecretKey:  cfg.SecretKey,
			BucketName: cfg.Bucket,
			UseSSL:     cfg.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
