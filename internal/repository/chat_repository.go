package repository

import (
	"errors"

	"github.com/ashwinyue/velobot/internal/model"
	"gorm.io/gorm"
)

// ChatRepository 对话数据访问
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建对话仓库
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateChat 创建对话映射（用户 -> 远程 thread）
func (r *ChatRepository) CreateChat(chat *model.Chat) error {
	return r.db.Create(chat).Error
}

// GetLatestChatByUserID 获取用户最近的对话
// 同一用户可能有多行（并发创建），仅最新一行有效；无记录返回 nil
func (r *ChatRepository) GetLatestChatByUserID(userID string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// CreateMessage 追加消息
func (r *ChatRepository) CreateMessage(msg *model.Message) error {
	return r.db.Create(msg).Error
}

// GetMessagesByChatID 获取对话消息，按时间升序
func (r *ChatRepository) GetMessagesByChatID(chatID string) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.Where("chat_id = ?", chatID).Order("created_at ASC").Find(&messages).Error
	return messages, err
}
