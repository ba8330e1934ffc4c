// Package assistant 提供助手生命周期与换代单元测试
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashwinyue/velobot/internal/config"
	"github.com/ashwinyue/velobot/internal/service/openai"
	"github.com/ashwinyue/velobot/internal/service/provision"
	"github.com/ashwinyue/velobot/internal/service/tools"
)

// fakeRemote 记录创建与删除的远程端
type fakeRemote struct {
	mu         sync.Mutex
	assistants int
	deleted    []string
}

func (f *fakeRemote) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.Method == http.MethodDelete {
			f.deleted = append(f.deleted, r.URL.Path)
			json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
			return
		}

		switch {
		case r.URL.Path == "/files":
			json.NewEncoder(w).Encode(map[string]string{"id": "file_1", "filename": "faq.html"})
		case r.URL.Path == "/vector_stores":
			json.NewEncoder(w).Encode(map[string]string{"id": "vs_1"})
		case r.URL.Path == "/assistants":
			f.assistants++
			json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("asst_%d", f.assistants)})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func (f *fakeRemote) deletedAssistants() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, path := range f.deleted {
		if strings.HasPrefix(path, "/assistants/") {
			out = append(out, strings.TrimPrefix(path, "/assistants/"))
		}
	}
	return out
}

func newTestService(t *testing.T, remote *fakeRemote) (*Service, string) {
	t.Helper()
	srv := httptest.NewServer(remote.handler())
	t.Cleanup(srv.Close)

	contextDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(contextDir, "faq.html"), []byte("<html/>"), 0o644); err != nil {
		t.Fatalf("Failed to seed context dir: %v", err)
	}
	instructionPath := filepath.Join(t.TempDir(), "instructions.txt")
	if err := os.WriteFile(instructionPath, []byte("Be helpful."), 0o644); err != nil {
		t.Fatalf("Failed to write instructions: %v", err)
	}

	cfg := config.AssistantConfig{
		Name:            "test",
		InstructionPath: instructionPath,
		ContextDir:      contextDir,
		InterpreterDir:  t.TempDir(),
		VectorStoreDays: 7,
	}
	client := openai.NewClientWithHTTP(config.OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	}, srv.Client())
	registry := tools.NewRegistry(nil, config.OrdersConfig{}, nil)
	provisioner := provision.NewProvisioner(client, nil, nil, cfg)
	return NewService(client, provisioner, registry, cfg, "gpt-4o-mini"), instructionPath
}

func TestSupervisorInitialize(t *testing.T) {
	remote := &fakeRemote{}
	svc, _ := newTestService(t, remote)
	s := NewSupervisor(svc, time.Hour)

	if s.ActiveID() != "" {
		t.Errorf("Expected empty active id before Initialize, got %s", s.ActiveID())
	}
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if s.ActiveID() != "asst_1" {
		t.Errorf("Expected asst_1, got %s", s.ActiveID())
	}
}

func TestSupervisorRefreshSwapsThenDestroys(t *testing.T) {
	remote := &fakeRemote{}
	svc, _ := newTestService(t, remote)
	s := NewSupervisor(svc, time.Hour)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if s.ActiveID() != "asst_2" {
		t.Errorf("Expected asst_2 after refresh, got %s", s.ActiveID())
	}

	// 旧一代在后台回收
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		deleted := remote.deletedAssistants()
		if len(deleted) == 1 {
			if deleted[0] != "asst_1" {
				t.Errorf("Expected asst_1 destroyed, got %s", deleted[0])
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("Old generation was not destroyed")
}

func TestSupervisorRefreshFailureKeepsGeneration(t *testing.T) {
	remote := &fakeRemote{}
	svc, instructionPath := newTestService(t, remote)
	s := NewSupervisor(svc, time.Hour)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// 指令文件消失导致换代失败，当前一代保持不变
	if err := os.Remove(instructionPath); err != nil {
		t.Fatalf("Failed to remove instructions: %v", err)
	}
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("Expected refresh error, got nil")
	}
	if s.ActiveID() != "asst_1" {
		t.Errorf("Expected asst_1, got %s", s.ActiveID())
	}
}

func TestSupervisorSwapIsolation(t *testing.T) {
	remote := &fakeRemote{}
	svc, _ := newTestService(t, remote)
	s := NewSupervisor(svc, time.Hour)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// 换代前读到的 id 换代后依然有效，持有者不受切换影响
	before := s.ActiveID()
	if before != "asst_1" {
		t.Fatalf("Expected asst_1 before refresh, got %s", before)
	}

	// 换代期间并发读，任何时刻都不能读到空值或被撕裂的 id
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if id := s.ActiveID(); id != "asst_1" && id != "asst_2" {
					t.Errorf("Read inconsistent active id %q", id)
					return
				}
			}
		}()
	}

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	close(done)
	wg.Wait()

	if before != "asst_1" {
		t.Errorf("Held id changed under refresh: %s", before)
	}
	if s.ActiveID() != "asst_2" {
		t.Errorf("Expected asst_2 after refresh, got %s", s.ActiveID())
	}
}
