package service

import (
	"github.com/ashwinyue/velobot/internal/service/assistant"
	"github.com/ashwinyue/velobot/internal/service/chat"
)

// Services 服务集合
type Services struct {
	Chat       *chat.Service
	Supervisor *assistant.Supervisor
}
