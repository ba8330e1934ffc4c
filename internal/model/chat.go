package model

import "time"

// Chat 用户与远程助手的一次对话
// ID 直接使用远程 thread ID（thread_xxx），同一用户可能存在多行，
// 查询时始终取 created_at 最新的一行
type Chat struct {
	ID        string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"index;size:64"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	Messages  []Message `gorm:"foreignKey:ChatID"`
}

// Message 对话中的一条消息（仅追加，不修改不删除）
type Message struct {
	ID        string    `gorm:"primaryKey;size:36"`
	ChatID    string    `gorm:"index;size:64"`
	Role      string    `gorm:"size:20;index"` // user, assistant, error
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (Chat) TableName() string {
	return "chats"
}

func (Message) TableName() string {
	return "messages"
}
