package chat

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/velobot/internal/model"
	"github.com/ashwinyue/velobot/internal/service/openai"
	"github.com/ashwinyue/velobot/internal/service/run"
)

// Apology 运行超期时答复用户的固定话术
const Apology = "Sorry I am currently facing some technical issues, please try again."

// RoleUser 用户消息
const RoleUser = "user"

// RoleAssistant 助手消息
const RoleAssistant = "assistant"

// RoleError 超期等异常场景下落库的占位答复
const RoleError = "error"

// threadCacheTTL 用户到 thread 映射的缓存时长
const threadCacheTTL = 24 * time.Hour

// Repository 对话持久化
type Repository interface {
	CreateChat(chat *model.Chat) error
	GetLatestChatByUserID(userID string) (*model.Chat, error)
	CreateMessage(msg *model.Message) error
	GetMessagesByChatID(chatID string) ([]*model.Message, error)
}

// Remote 对话所需的远程 thread 操作
type Remote interface {
	CreateThread(ctx context.Context) (string, error)
	AddMessage(ctx context.Context, threadID, role, content string) error
	ListMessages(ctx context.Context, threadID string, onlyLast bool) ([]openai.SimplifiedMessage, error)
}

// Driver 驱动一次运行到终态
type Driver interface {
	Drive(ctx context.Context, threadID, assistantID, userID string) (run.Outcome, error)
}

// Active 提供当前活跃助手
type Active interface {
	ActiveID() string
}

// Service 单轮对话编排
type Service struct {
	repo   Repository
	remote Remote
	driver Driver
	active Active
	redis  *redis.Client // 可为 nil
}

// NewService 创建对话服务
func NewService(repo Repository, remote Remote, driver Driver, active Active, rdb *redis.Client) *Service {
	return &Service{
		repo:   repo,
		remote: remote,
		driver: driver,
		active: active,
		redis:  rdb,
	}
}

// HandleTurn 处理一轮对话
// 落库入站消息，转发到远程 thread，驱动运行，再落库并返回答复
// 运行超期不算失败，返回固定话术并以 error 角色落库
func (s *Service) HandleTurn(ctx context.Context, userID, message string) ([]openai.SimplifiedMessage, error) {
	threadID, err := s.resolveThread(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.persist(threadID, RoleUser, message); err != nil {
		return nil, err
	}
	if err := s.remote.AddMessage(ctx, threadID, RoleUser, message); err != nil {
		return nil, err
	}

	outcome, err := s.driver.Drive(ctx, threadID, s.active.ActiveID(), userID)
	if err != nil {
		return nil, err
	}
	if outcome == run.TimedOut {
		if err := s.persist(threadID, RoleError, Apology); err != nil {
			return nil, err
		}
		return []openai.SimplifiedMessage{{
			CreatedAt: time.Now().Unix(),
			Role:      RoleError,
			Text:      Apology,
		}}, nil
	}

	replies, err := s.remote.ListMessages(ctx, threadID, true)
	if err != nil {
		return nil, err
	}
	for _, reply := range replies {
		if err := s.persist(threadID, RoleAssistant, reply.Text); err != nil {
			return nil, err
		}
	}
	return replies, nil
}

// History 返回用户当前对话的完整记录，取本地存档而非远程
func (s *Service) History(ctx context.Context, userID string) ([]openai.SimplifiedMessage, error) {
	chat, err := s.repo.GetLatestChatByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if chat == nil {
		return []openai.SimplifiedMessage{}, nil
	}

	records, err := s.repo.GetMessagesByChatID(chat.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	messages := make([]openai.SimplifiedMessage, 0, len(records))
	for _, m := range records {
		messages = append(messages, openai.SimplifiedMessage{
			CreatedAt: m.CreatedAt.Unix(),
			Role:      m.Role,
			Text:      m.Content,
		})
	}
	return messages, nil
}

// resolveThread 找到或建立用户的远程 thread
// 对话 id 即远程 thread id，缓存未命中时查库，再未命中时新建
func (s *Service) resolveThread(ctx context.Context, userID string) (string, error) {
	if id := s.cachedThread(ctx, userID); id != "" {
		return id, nil
	}

	chat, err := s.repo.GetLatestChatByUserID(userID)
	if err != nil {
		return "", fmt.Errorf("failed to get chat: %w", err)
	}
	if chat != nil {
		s.cacheThread(ctx, userID, chat.ID)
		return chat.ID, nil
	}

	threadID, err := s.remote.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	if err := s.repo.CreateChat(&model.Chat{ID: threadID, UserID: userID}); err != nil {
		return "", fmt.Errorf("failed to create chat: %w", err)
	}
	s.cacheThread(ctx, userID, threadID)
	return threadID, nil
}

func (s *Service) persist(chatID, role, content string) error {
	err := s.repo.CreateMessage(&model.Message{
		ID:      uuid.New().String(),
		ChatID:  chatID,
		Role:    role,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (s *Service) cachedThread(ctx context.Context, userID string) string {
	if s.redis == nil {
		return ""
	}
	id, err := s.redis.Get(ctx, threadKey(userID)).Result()
	if err != nil {
		return ""
	}
	return id
}

func (s *Service) cacheThread(ctx context.Context, userID, threadID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, threadKey(userID), threadID, threadCacheTTL).Err(); err != nil {
		log.Printf("chat: failed to cache thread for %s: %v", userID, err)
	}
}

func threadKey(userID string) string {
	return "velobot:thread:" + userID
}
