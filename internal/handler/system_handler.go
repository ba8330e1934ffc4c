package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/velobot/internal/config"
	"github.com/ashwinyue/velobot/internal/database"
	"github.com/ashwinyue/velobot/internal/service/assistant"
)

// SystemHandler 系统处理器
type SystemHandler struct {
	cfg        *config.Config
	db         *database.DB
	supervisor *assistant.Supervisor
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(cfg *config.Config, db *database.DB, supervisor *assistant.Supervisor) *SystemHandler {
	return &SystemHandler{cfg: cfg, db: db, supervisor: supervisor}
}

// Health 健康检查
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	status := "ok"
	if err := h.db.Ping(c.Request.Context()); err != nil {
		status = "degraded"
	}

	Success(c, gin.H{
		"status":    status,
		"app":       h.cfg.App.Name,
		"version":   h.cfg.App.Version,
		"assistant": h.supervisor.ActiveID(),
	})
}

// UpdateInstructionsRequest 指令更新请求
type UpdateInstructionsRequest struct {
	Instructions string `json:"instructions" binding:"required"`
}

// UpdateInstructions 原地更新当前活跃助手的指令
// PUT /assistant/instructions
func (h *SystemHandler) UpdateInstructions(c *gin.Context) {
	var req UpdateInstructionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "instructions is required")
		return
	}

	if err := h.supervisor.UpdateInstructions(c.Request.Context(), req.Instructions); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"assistant": h.supervisor.ActiveID()})
}
