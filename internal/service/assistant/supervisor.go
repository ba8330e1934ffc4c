package assistant

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"
)

// Supervisor 管理当前活跃助手并按周期换代
// 活跃 id 存在 atomic.Value 里，读方永远不会被换代阻塞
type Supervisor struct {
	svc     *Service
	active  atomic.Value // *Generation
	refresh time.Duration
	started bool
	stop    chan struct{}
	done    chan struct{}
}

// NewSupervisor 创建监督器
func NewSupervisor(svc *Service, refresh time.Duration) *Supervisor {
	return &Supervisor{
		svc:     svc,
		refresh: refresh,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Initialize 创建首代助手
// 失败即返回错误，进程不应继续启动
func (s *Supervisor) Initialize(ctx context.Context) error {
	gen, err := s.svc.Create(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize assistant: %w", err)
	}
	s.active.Store(gen)
	return nil
}

// ActiveID 当前活跃助手 id
func (s *Supervisor) ActiveID() string {
	gen, _ := s.active.Load().(*Generation)
	if gen == nil {
		return ""
	}
	return gen.AssistantID
}

// Start 启动换代循环，需在 Initialize 之后调用
func (s *Supervisor) Start() {
	s.started = true
	go s.loop()
}

func (s *Supervisor) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Refresh(context.Background()); err != nil {
				log.Printf("supervisor: refresh failed, keeping current generation: %v", err)
			}
		case <-s.stop:
			return
		}
	}
}

// Refresh 创建新一代助手并切换，旧一代在后台回收
// 先换后删，换代瞬间进行中的运行仍指向旧助手，不受影响
func (s *Supervisor) Refresh(ctx context.Context) error {
	next, err := s.svc.Create(ctx)
	if err != nil {
		return err
	}

	old, _ := s.active.Load().(*Generation)
	s.active.Store(next)
	log.Printf("supervisor: switched to assistant %s", next.AssistantID)

	if old != nil {
		go s.svc.Destroy(context.Background(), old)
	}
	return nil
}

// UpdateInstructions 原地更新当前活跃助手的指令
func (s *Supervisor) UpdateInstructions(ctx context.Context, instructions string) error {
	gen, _ := s.active.Load().(*Generation)
	if gen == nil {
		return fmt.Errorf("no active assistant")
	}
	return s.svc.UpdateInstructions(ctx, gen, instructions)
}

// Stop 停止换代循环并回收当前活跃助手
func (s *Supervisor) Stop(ctx context.Context) {
	close(s.stop)
	if s.started {
		<-s.done
	}

	gen, _ := s.active.Load().(*Generation)
	if gen != nil {
		s.svc.Destroy(ctx, gen)
	}
}
