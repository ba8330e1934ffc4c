// Package file 提供上下文文档存储单元测试
package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ashwinyue/velobot/internal/config"
)

func TestLocalSourceListAndGet(t *testing.T) {
	base := t.TempDir()
	docs := filepath.Join(base, "docs")
	if err := os.MkdirAll(docs, 0o755); err != nil {
		t.Fatalf("Failed to create docs dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(docs, "faq.html"), []byte("<html/>"), 0o644); err != nil {
		t.Fatalf("Failed to seed docs dir: %v", err)
	}

	src, err := NewLocalSource(base)
	if err != nil {
		t.Fatalf("NewLocalSource failed: %v", err)
	}
	names, err := src.List(context.Background(), "docs")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(names))
	}

	rc, err := src.Get(context.Background(), names[0])
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "<html/>" {
		t.Errorf("Unexpected content: %s", data)
	}
}

func TestLocalSourceMissingDir(t *testing.T) {
	src, err := NewLocalSource(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalSource failed: %v", err)
	}

	names, err := src.List(context.Background(), "nope")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("Expected no documents, got %v", names)
	}
}

func TestNewSourceDefaultsToLocal(t *testing.T) {
	src, err := NewSource(config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	if _, ok := src.(*LocalSource); !ok {
		t.Errorf("Expected *LocalSource, got %T", src)
	}
}
