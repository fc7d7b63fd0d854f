package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	logx "github.com/zhouzirui/ai-friend/backend/pkg/logger"
)

// Service generates base replies with a chat model. Every call is
// independent; no conversation history is sent.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	system    string
}

type Option func(*Service)

// WithSystemPrompt replaces the default companion prompt.
func WithSystemPrompt(system string) Option {
	return func(s *Service) {
		if strings.TrimSpace(system) != "" {
			s.system = system
		}
	}
}

// NewService creates a generator around chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel, opts ...Option) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	svc := &Service{
		chatModel: chatModel,
		chain:     runnable,
		system:    companionSystemPrompt,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Generate returns the model's reply to text.
func (s *Service) Generate(ctx context.Context, text string) (string, error) {
	response, err := s.chain.Invoke(ctx, map[string]any{
		"system": s.system,
		"query":  text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil {
		return "", nil
	}

	reply := strings.TrimSpace(response.Content)
	logx.Debug().Int("length", len(reply)).Msg("generated base reply")
	return reply, nil
}

// GetChatModel 返回底层的聊天模型，供情绪分类复用。
func (s *Service) GetChatModel() model.ChatModel {
	return s.chatModel
}
