// Package chat 提供对话服务单元测试
package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/ashwinyue/velobot/internal/model"
	"github.com/ashwinyue/velobot/internal/service/openai"
	"github.com/ashwinyue/velobot/internal/service/run"
)

// mockRepo Mock 对话仓库
type mockRepo struct {
	chats          map[string]*model.Chat // userID -> chat
	messages       []*model.Message
	getError       error
	createMsgError error
}

func newMockRepo() *mockRepo {
	return &mockRepo{chats: make(map[string]*model.Chat)}
}

func (m *mockRepo) CreateChat(chat *model.Chat) error {
	m.chats[chat.UserID] = chat
	return nil
}

func (m *mockRepo) GetLatestChatByUserID(userID string) (*model.Chat, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	if chat, ok := m.chats[userID]; ok {
		return chat, nil
	}
	return nil, nil
}

func (m *mockRepo) CreateMessage(msg *model.Message) error {
	if m.createMsgError != nil {
		return m.createMsgError
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockRepo) GetMessagesByChatID(chatID string) ([]*model.Message, error) {
	var out []*model.Message
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out, nil
}

// mockRemote Mock 远程 thread 操作
type mockRemote struct {
	threads     int
	added       []string
	replies     []openai.SimplifiedMessage
	createError error
}

func (m *mockRemote) CreateThread(ctx context.Context) (string, error) {
	if m.createError != nil {
		return "", m.createError
	}
	m.threads++
	return "thread_new", nil
}

func (m *mockRemote) AddMessage(ctx context.Context, threadID, role, content string) error {
	m.added = append(m.added, content)
	return nil
}

func (m *mockRemote) ListMessages(ctx context.Context, threadID string, onlyLast bool) ([]openai.SimplifiedMessage, error) {
	return m.replies, nil
}

// mockDriver Mock 运行驱动
type mockDriver struct {
	outcome     run.Outcome
	err         error
	assistantID string
}

func (m *mockDriver) Drive(ctx context.Context, threadID, assistantID, userID string) (run.Outcome, error) {
	m.assistantID = assistantID
	return m.outcome, m.err
}

// mockActive 固定活跃助手
type mockActive struct{ id string }

func (m *mockActive) ActiveID() string { return m.id }

func newTestService(repo Repository, remote Remote, driver Driver) *Service {
	return NewService(repo, remote, driver, &mockActive{id: "asst_1"}, nil)
}

func TestHandleTurnNewThread(t *testing.T) {
	repo := newMockRepo()
	remote := &mockRemote{replies: []openai.SimplifiedMessage{{Role: "assistant", Text: "hello there"}}}
	driver := &mockDriver{outcome: run.Completed}
	svc := newTestService(repo, remote, driver)

	replies, err := svc.HandleTurn(context.Background(), "42", "hi")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if remote.threads != 1 {
		t.Errorf("Expected 1 thread created, got %d", remote.threads)
	}
	chat, _ := repo.GetLatestChatByUserID("42")
	if chat == nil || chat.ID != "thread_new" {
		t.Fatalf("Expected chat mapped to thread_new, got %+v", chat)
	}
	if driver.assistantID != "asst_1" {
		t.Errorf("Expected run against asst_1, got %s", driver.assistantID)
	}
	if len(replies) != 1 || replies[0].Text != "hello there" {
		t.Errorf("Unexpected replies: %+v", replies)
	}
	// 入站和出站消息都应落库
	if len(repo.messages) != 2 {
		t.Fatalf("Expected 2 persisted messages, got %d", len(repo.messages))
	}
	if repo.messages[0].Role != RoleUser || repo.messages[0].Content != "hi" {
		t.Errorf("Unexpected inbound message: %+v", repo.messages[0])
	}
	if repo.messages[1].Role != RoleAssistant || repo.messages[1].Content != "hello there" {
		t.Errorf("Unexpected outbound message: %+v", repo.messages[1])
	}
}

func TestHandleTurnExistingThread(t *testing.T) {
	repo := newMockRepo()
	repo.chats["42"] = &model.Chat{ID: "thread_old", UserID: "42"}
	remote := &mockRemote{replies: []openai.SimplifiedMessage{{Role: "assistant", Text: "again"}}}
	driver := &mockDriver{outcome: run.Completed}
	svc := newTestService(repo, remote, driver)

	if _, err := svc.HandleTurn(context.Background(), "42", "hi again"); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if remote.threads != 0 {
		t.Errorf("Expected no new thread, got %d", remote.threads)
	}
	if repo.messages[0].ChatID != "thread_old" {
		t.Errorf("Expected message on thread_old, got %s", repo.messages[0].ChatID)
	}
}

func TestHandleTurnTimeout(t *testing.T) {
	repo := newMockRepo()
	repo.chats["42"] = &model.Chat{ID: "thread_old", UserID: "42"}
	remote := &mockRemote{}
	driver := &mockDriver{outcome: run.TimedOut}
	svc := newTestService(repo, remote, driver)

	replies, err := svc.HandleTurn(context.Background(), "42", "slow question")
	if err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if len(replies) != 1 || replies[0].Text != Apology || replies[0].Role != RoleError {
		t.Errorf("Expected apology reply with error role, got %+v", replies)
	}
	// 话术以 error 角色落库
	last := repo.messages[len(repo.messages)-1]
	if last.Role != RoleError || last.Content != Apology {
		t.Errorf("Unexpected persisted apology: %+v", last)
	}
}

func TestHandleTurnDriverError(t *testing.T) {
	repo := newMockRepo()
	repo.chats["42"] = &model.Chat{ID: "thread_old", UserID: "42"}
	driver := &mockDriver{err: &openai.RemoteError{Status: 500, Body: "boom"}}
	svc := newTestService(repo, &mockRemote{}, driver)

	_, err := svc.HandleTurn(context.Background(), "42", "hi")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !openai.IsRemote(err) {
		t.Errorf("Expected remote error, got %v", err)
	}
}

func TestHandleTurnStoreError(t *testing.T) {
	repo := newMockRepo()
	repo.getError = errors.New("db down")
	svc := newTestService(repo, &mockRemote{}, &mockDriver{})

	if _, err := svc.HandleTurn(context.Background(), "42", "hi"); err == nil {
		t.Error("Expected error, got nil")
	}
}

func TestHistoryReturnsTranscript(t *testing.T) {
	repo := newMockRepo()
	remote := &mockRemote{replies: []openai.SimplifiedMessage{{Role: "assistant", Text: "sure"}}}
	svc := newTestService(repo, remote, &mockDriver{outcome: run.Completed})

	if _, err := svc.HandleTurn(context.Background(), "42", "hi"); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	messages, err := svc.History(context.Background(), "42")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != RoleUser || messages[1].Role != RoleAssistant {
		t.Errorf("Unexpected roles: %+v", messages)
	}
}

func TestHistoryNoChat(t *testing.T) {
	svc := newTestService(newMockRepo(), &mockRemote{}, &mockDriver{})

	messages, err := svc.History(context.Background(), "42")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("Expected empty history, got %+v", messages)
	}
}
