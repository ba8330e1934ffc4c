package assistant

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/ashwinyue/velobot/internal/config"
	"github.com/ashwinyue/velobot/internal/service/openai"
	"github.com/ashwinyue/velobot/internal/service/provision"
	"github.com/ashwinyue/velobot/internal/service/tools"
)

// Generation 一代助手及其持有的远程资源
type Generation struct {
	AssistantID string
	Resources   *provision.Resources
}

// Service 助手生命周期管理
type Service struct {
	client      *openai.Client
	provisioner *provision.Provisioner
	registry    *tools.Registry
	cfg         config.AssistantConfig
	model       string
}

// NewService 创建助手生命周期服务
func NewService(client *openai.Client, provisioner *provision.Provisioner, registry *tools.Registry, cfg config.AssistantConfig, model string) *Service {
	return &Service{
		client:      client,
		provisioner: provisioner,
		registry:    registry,
		cfg:         cfg,
		model:       model,
	}
}

// Create 备妥资源并创建一代新助手
// 助手创建失败时回收已备妥的资源
func (s *Service) Create(ctx context.Context) (*Generation, error) {
	res, instructions, err := s.provisioner.Provision(ctx)
	if err != nil {
		return nil, err
	}

	toolList := []openai.Tool{
		{Type: "file_search"},
		{Type: "code_interpreter"},
	}
	toolList = append(toolList, s.registry.Definitions()...)

	resources := &openai.ToolResources{
		FileSearch: &openai.FileSearchResources{
			VectorStoreIDs: []string{res.VectorStoreID},
		},
	}
	if len(res.InterpreterFiles) > 0 {
		ids := make([]string, 0, len(res.InterpreterFiles))
		for _, f := range res.InterpreterFiles {
			ids = append(ids, f.ID)
		}
		resources.CodeInterpreter = &openai.CodeInterpreterResources{FileIDs: ids}
	}

	// 每代名字带独立后缀，远程端排查时可区分代际
	name := fmt.Sprintf("%s-%s", s.cfg.Name, uuid.New().String()[:8])
	id, err := s.client.CreateAssistant(ctx, &openai.CreateAssistantRequest{
		Name:          name,
		Instructions:  instructions,
		Model:         s.model,
		Tools:         toolList,
		ToolResources: resources,
	})
	if err != nil {
		s.provisioner.Teardown(context.Background(), res)
		return nil, err
	}

	log.Printf("assistant: created %s with vector store %s", id, res.VectorStoreID)
	return &Generation{AssistantID: id, Resources: res}, nil
}

// UpdateInstructions 原地更新助手指令，不轮换身份
func (s *Service) UpdateInstructions(ctx context.Context, gen *Generation, instructions string) error {
	return s.client.UpdateAssistantInstructions(ctx, gen.AssistantID, instructions)
}

// Destroy 删除助手并回收其全部资源，尽力而为
func (s *Service) Destroy(ctx context.Context, gen *Generation) {
	if gen == nil {
		return
	}
	if err := s.client.DeleteAssistant(ctx, gen.AssistantID); err != nil {
		log.Printf("assistant: failed to delete %s: %v", gen.AssistantID, err)
	}
	s.provisioner.Teardown(ctx, gen.Resources)
	log.Printf("assistant: destroyed %s", gen.AssistantID)
}
