package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/kaptinlin/jsonrepair"
	"gorm.io/gorm"

	"github.com/ashwinyue/velobot/internal/config"
	"github.com/ashwinyue/velobot/internal/service/openai"
)

// 调度错误，调用方据此决定跳过还是中止
var (
	// ErrUnknownFunction 未注册的函数名
	ErrUnknownFunction = errors.New("tools: unknown function")
	// ErrBadArguments 参数无法解析为预期结构
	ErrBadArguments = errors.New("tools: bad arguments")
)

// Registry 本地工具注册表
// 远程 run 进入 requires_action 时按函数名调度到这里
type Registry struct {
	marketDB *gorm.DB
	http     *http.Client
	orders   config.OrdersConfig
}

// NewRegistry 创建注册表
func NewRegistry(marketDB *gorm.DB, orders config.OrdersConfig, hc *http.Client) *Registry {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Registry{
		marketDB: marketDB,
		http:     hc,
		orders:   orders,
	}
}

// Definitions 助手创建时注册的 function 工具定义
func (r *Registry) Definitions() []openai.Tool {
	return []openai.Tool{
		{
			Type: "function",
			Function: &openai.ToolFunction{
				Name:        "get_orders",
				Description: "get the list of orders",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"user_id": map[string]interface{}{
							"type":        "string",
							"description": "The ID of the user",
						},
					},
				},
			},
		},
		{
			Type: "function",
			Function: &openai.ToolFunction{
				Name:        "get_order_status",
				Description: "Get the status of an order by the order id",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"order_id": map[string]interface{}{
							"type":        "string",
							"description": "The ID of the order",
						},
					},
					"required": []string{"order_id"},
				},
			},
		},
	}
}

// Dispatch 按函数名执行本地工具并返回输出
// 未注册的函数名返回 ErrUnknownFunction，参数不合法返回 ErrBadArguments，
// 两者都应由调用方记录日志后跳过；其余错误为下游调用失败，向上传播
func (r *Registry) Dispatch(ctx context.Context, userID, name, arguments string) (string, error) {
	args, err := parseArguments(arguments)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadArguments, err)
	}

	switch name {
	case "get_orders":
		out, err := r.getOrders(ctx, userID)
		if err != nil {
			return "", err
		}
		if out == "" {
			return "No orders found", nil
		}
		return out, nil
	case "get_order_status", "get_order_status_dummy":
		orderID, ok := args["order_id"].(string)
		if !ok || orderID == "" {
			return "", fmt.Errorf("%w: missing order_id", ErrBadArguments)
		}
		out, err := r.getOrderStatus(ctx, userID, orderID)
		if err != nil {
			return "", err
		}
		if out == "" {
			return "Unknown order ID", nil
		}
		return out, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
}

// parseArguments 解析远程端给出的参数 JSON
// 先走快速路径，失败后用 jsonrepair 修复一次再解析
func parseArguments(raw string) (map[string]interface{}, error) {
	if raw == "" {
		return map[string]interface{}{}, nil
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args, nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to repair arguments: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}
	return args, nil
}

// getOrders 查询用户在商城的订单列表
// 先从商城库取用户令牌，再调用订单 API，原样返回响应体
func (r *Registry) getOrders(ctx context.Context, userID string) (string, error) {
	token, err := r.authToken(ctx, userID)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", &openai.RemoteError{Body: "authorization token not found for user " + userID}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.orders.APIURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build orders request: %w", err)
	}
	req.Header.Set("X-Custom-Authorization", token)
	req.Header.Set("X-Proxy-Authorization", r.orders.ProxyToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return "", &openai.RemoteError{Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &openai.RemoteError{Status: resp.StatusCode, Body: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &openai.RemoteError{Status: resp.StatusCode, Body: string(body)}
	}
	return string(body), nil
}

// getOrderStatus 查询订单状态
// TODO: 接入履约系统后替换固定返回值
func (r *Registry) getOrderStatus(ctx context.Context, userID, orderID string) (string, error) {
	log.Printf("get_order_status: user_id=%s order_id=%s", userID, orderID)
	return "delivered", nil
}

// authToken 从商城库查询用户的 API 令牌
func (r *Registry) authToken(ctx context.Context, userID string) (string, error) {
	if r.marketDB == nil {
		return "", fmt.Errorf("market database not configured")
	}
	if _, err := strconv.Atoi(userID); err != nil {
		return "", fmt.Errorf("failed to parse user_id %q: %w", userID, err)
	}

	var token sql.NullString
	err := r.marketDB.WithContext(ctx).
		Raw("SELECT custom_auth_token FROM users WHERE id = ?", userID).
		Scan(&token).Error
	if err != nil {
		return "", fmt.Errorf("failed to query auth token: %w", err)
	}
	if !token.Valid {
		return "", nil
	}
	return token.String, nil
}
