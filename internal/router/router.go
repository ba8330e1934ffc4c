package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/velobot/internal/handler"
	"github.com/ashwinyue/velobot/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())

	// 健康检查
	r.GET("/health", h.System.Health)

	// 对话
	r.POST("/assistant", h.Chat.SendMessage)
	r.GET("/assistant/history", h.Chat.GetHistory)

	// 运维
	r.PUT("/assistant/instructions", h.System.UpdateInstructions)

	return r
}
