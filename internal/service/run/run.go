package run

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ashwinyue/velobot/internal/service/openai"
	"github.com/ashwinyue/velobot/internal/service/tools"
)

// Outcome 一次运行驱动的结局
type Outcome int

const (
	// Completed 运行在期限内完成
	Completed Outcome = iota
	// TimedOut 期限内未完成，属正常结局而非错误
	TimedOut
)

// API 驱动运行所需的远程操作
type API interface {
	CreateRun(ctx context.Context, threadID, assistantID string) (*openai.Run, error)
	GetRun(ctx context.Context, threadID, runID string) (*openai.Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []openai.ToolOutput) error
}

// Dispatcher 本地工具调度
type Dispatcher interface {
	Dispatch(ctx context.Context, userID, name, arguments string) (string, error)
}

// Coordinator 驱动单次运行到终态
// 固定间隔轮询，期间代为执行本地工具调用
type Coordinator struct {
	api      API
	tools    Dispatcher
	timeout  time.Duration
	interval time.Duration
}

// NewCoordinator 创建运行协调器
func NewCoordinator(api API, dispatcher Dispatcher, timeout, interval time.Duration) *Coordinator {
	return &Coordinator{
		api:      api,
		tools:    dispatcher,
		timeout:  timeout,
		interval: interval,
	}
}

// Drive 创建运行并轮询至完成或超期
// 超期返回 TimedOut 而非错误，由调用方决定如何答复用户
func (c *Coordinator) Drive(ctx context.Context, threadID, assistantID, userID string) (Outcome, error) {
	r, err := c.api.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		return TimedOut, err
	}

	deadline := time.Now().Add(c.timeout)
	for time.Now().Before(deadline) {
		r, err = c.api.GetRun(ctx, threadID, r.ID)
		if err != nil {
			return TimedOut, err
		}

		switch r.Status {
		case openai.StatusCompleted:
			return Completed, nil
		case openai.StatusRequiresAction:
			if err := c.serveToolCalls(ctx, threadID, r, userID); err != nil {
				return TimedOut, err
			}
		}

		select {
		case <-ctx.Done():
			return TimedOut, ctx.Err()
		case <-time.After(c.interval):
		}
	}

	log.Printf("run: %s on thread %s timed out after %s", r.ID, threadID, c.timeout)
	return TimedOut, nil
}

// serveToolCalls 执行一批本地工具调用并立即回传结果
// 未注册的函数和解析失败的参数记录日志后跳过，不中断运行
func (c *Coordinator) serveToolCalls(ctx context.Context, threadID string, r *openai.Run, userID string) error {
	if r.RequiredAction == nil || r.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}

	calls := r.RequiredAction.SubmitToolOutputs.ToolCalls
	outputs := make([]openai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		out, err := c.tools.Dispatch(ctx, userID, call.Function.Name, call.Function.Arguments)
		if err != nil {
			if errors.Is(err, tools.ErrUnknownFunction) || errors.Is(err, tools.ErrBadArguments) {
				log.Printf("run: skipping tool call %s (%s): %v", call.ID, call.Function.Name, err)
				continue
			}
			return err
		}
		outputs = append(outputs, openai.ToolOutput{ToolCallID: call.ID, Output: out})
	}

	if len(outputs) == 0 {
		return nil
	}
	return c.api.SubmitToolOutputs(ctx, threadID, r.ID, outputs)
}
