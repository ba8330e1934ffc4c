package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ashwinyue/velobot/internal/config"
)

// Client 助手 API 的薄封装
// 无内部状态，所有方法并发安全
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient 创建客户端
func NewClient(cfg config.OpenAIConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewClientWithHTTP(cfg, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP 创建客户端并指定 HTTP 客户端（测试用）
func NewClientWithHTTP(cfg config.OpenAIConfig, hc *http.Client) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		http:    hc,
	}
}

// setHeaders 设置认证和 beta 特性头
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")
}

// do 发送请求，非 2xx 统一转为 RemoteError
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Status: resp.StatusCode, Body: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// doJSON 发送 JSON 请求并解码响应
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	respBody, err := c.do(req)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &DecodeError{Err: err}
		}
	}
	return nil
}

// UploadFile 上传文件，purpose 固定为 assistants
func (c *Client) UploadFile(ctx context.Context, filename string, content []byte) (*FileInfo, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write file content: %w", err)
	}
	if err := w.WriteField("purpose", "assistants"); err != nil {
		return nil, fmt.Errorf("failed to write purpose field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var info FileInfo
	if err := json.Unmarshal(respBody, &info); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if info.ID == "" {
		return nil, &DecodeError{Err: fmt.Errorf("missing file id in response")}
	}
	return &info, nil
}

// DeleteFile 删除已上传文件
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/files/"+fileID, nil, nil)
}

// CreateVectorStore 以一组文件创建 vector store，返回其 ID
func (c *Client) CreateVectorStore(ctx context.Context, name string, fileIDs []string, expireDays int) (string, error) {
	payload := map[string]interface{}{
		"file_ids": fileIDs,
		"name":     name,
		"expires_after": map[string]interface{}{
			"anchor": "last_active_at",
			"days":   expireDays,
		},
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/vector_stores", payload, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &DecodeError{Err: fmt.Errorf("missing vector store id in response")}
	}
	return out.ID, nil
}

// DeleteVectorStore 删除 vector store
func (c *Client) DeleteVectorStore(ctx context.Context, storeID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/vector_stores/"+storeID, nil, nil)
}

// CreateAssistant 创建助手，返回其 ID
func (c *Client) CreateAssistant(ctx context.Context, req *CreateAssistantRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/assistants", req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &DecodeError{Err: fmt.Errorf("missing assistant id in response")}
	}
	return out.ID, nil
}

// UpdateAssistantInstructions 原地更新助手指令，不轮换身份
func (c *Client) UpdateAssistantInstructions(ctx context.Context, assistantID, instructions string) error {
	payload := map[string]string{"instructions": instructions}
	return c.doJSON(ctx, http.MethodPatch, "/assistants/"+assistantID, payload, nil)
}

// DeleteAssistant 删除助手
func (c *Client) DeleteAssistant(ctx context.Context, assistantID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/assistants/"+assistantID, nil, nil)
}

// CreateThread 创建远程 thread，返回其 ID
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/threads", struct{}{}, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &DecodeError{Err: fmt.Errorf("missing thread id in response")}
	}
	return out.ID, nil
}

// AddMessage 向 thread 追加一条消息
func (c *Client) AddMessage(ctx context.Context, threadID, role, content string) error {
	payload := map[string]string{
		"role":    role,
		"content": content,
	}
	return c.doJSON(ctx, http.MethodPost, "/threads/"+threadID+"/messages", payload, nil)
}

// ListMessages 列出 thread 的消息，仅保留 text 内容
// onlyLast 为真时只返回 created_at 最大的一条
func (c *Client) ListMessages(ctx context.Context, threadID string, onlyLast bool) ([]SimplifiedMessage, error) {
	var out struct {
		Data []ThreadMessage `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/threads/"+threadID+"/messages", nil, &out); err != nil {
		return nil, err
	}

	simplified := make([]SimplifiedMessage, 0, len(out.Data))
	for _, msg := range out.Data {
		for _, content := range msg.Content {
			if content.Type == "text" && content.Text != nil {
				simplified = append(simplified, SimplifiedMessage{
					CreatedAt: msg.CreatedAt,
					Role:      msg.Role,
					Text:      content.Text.Value,
				})
				break
			}
		}
	}

	if onlyLast {
		var last *SimplifiedMessage
		for i := range simplified {
			if last == nil || simplified[i].CreatedAt > last.CreatedAt {
				last = &simplified[i]
			}
		}
		if last == nil {
			return []SimplifiedMessage{}, nil
		}
		return []SimplifiedMessage{*last}, nil
	}

	// 升序，最旧在前
	for i := 0; i < len(simplified); i++ {
		for j := i + 1; j < len(simplified); j++ {
			if simplified[j].CreatedAt < simplified[i].CreatedAt {
				simplified[i], simplified[j] = simplified[j], simplified[i]
			}
		}
	}
	return simplified, nil
}

// CreateRun 对指定 thread 和助手发起一次运行
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	payload := map[string]string{"assistant_id": assistantID}

	var run Run
	if err := c.doJSON(ctx, http.MethodPost, "/threads/"+threadID+"/runs", payload, &run); err != nil {
		return nil, err
	}
	if run.ID == "" {
		return nil, &DecodeError{Err: fmt.Errorf("missing run id in response")}
	}
	return &run, nil
}

// GetRun 获取运行状态，含 requires_action 负载
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var run Run
	if err := c.doJSON(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// SubmitToolOutputs 提交工具结果
// 不更新本地状态，下一次 GetRun 观察效果
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error {
	payload := map[string]interface{}{"tool_outputs": outputs}
	return c.doJSON(ctx, http.MethodPost, "/threads/"+threadID+"/runs/"+runID+"/submit_tool_outputs", payload, nil)
}
