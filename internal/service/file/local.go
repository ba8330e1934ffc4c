package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalSource 本地目录文档来源
type LocalSource struct {
	basePath string
}

// NewLocalSource 创建本地来源
func NewLocalSource(basePath string) (*LocalSource, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalSource{basePath: basePath}, nil
}

// List 列出前缀目录下的文件名（不递归）
func (s *LocalSource) List(ctx context.Context, prefix string) ([]string, error) {
	dir := filepath.Join(s.basePath, prefix)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, filepath.Join(prefix, entry.Name()))
	}
	return names, nil
}

// Get 获取文件内容
func (s *LocalSource) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.basePath, name))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}
