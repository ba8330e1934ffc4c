package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/velobot/internal/service/chat"
	"github.com/ashwinyue/velobot/internal/service/openai"
)

// ChatHandler 对话处理器
type ChatHandler struct {
	chatService *chat.Service
}

// NewChatHandler 创建对话处理器
func NewChatHandler(chatService *chat.Service) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatRequest 对话请求
// 同时接受 JSON 和表单两种提交方式
type ChatRequest struct {
	UserID  string `json:"user_id" form:"user_id" binding:"required"`
	Message string `json:"message" form:"message" binding:"required"`
}

// ChatResponse 对话响应
type ChatResponse struct {
	Messages []openai.SimplifiedMessage `json:"messages"`
}

// SendMessage 处理一轮对话
// POST /assistant
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, "user_id and message are required")
		return
	}

	replies, err := h.chatService.HandleTurn(c.Request.Context(), req.UserID, req.Message)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, ChatResponse{Messages: replies})
}

// GetHistory 返回用户当前对话的完整记录
// GET /assistant/history?user_id=...
func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		BadRequest(c, "user_id is required")
		return
	}

	messages, err := h.chatService.History(c.Request.Context(), userID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, ChatResponse{Messages: messages})
}
