package handler

import (
	"github.com/ashwinyue/velobot/internal/config"
	"github.com/ashwinyue/velobot/internal/database"
	"github.com/ashwinyue/velobot/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Chat   *ChatHandler
	System *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(cfg *config.Config, db *database.DB, svc *service.Services) *Handlers {
	return &Handlers{
		Chat:   NewChatHandler(svc.Chat),
		System: NewSystemHandler(cfg, db, svc.Supervisor),
	}
}
