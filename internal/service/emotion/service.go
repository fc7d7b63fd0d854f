package emotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	analysis "github.com/zhouzirui/ai-friend/backend/internal/analysis/emotion"
	"github.com/zhouzirui/ai-friend/backend/internal/model/emotion"
	logx "github.com/zhouzirui/ai-friend/backend/pkg/logger"
)

// ErrEmptyOutput is returned when the model answers with nothing usable.
var ErrEmptyOutput = errors.New("classifier returned empty output")

// Config 控制情绪分类服务的行为。
type Config struct {
	Enabled bool
}

// Service classifies utterances with a chat model, or with keyword heuristics
// when the model is disabled.
type Service struct {
	enabled    bool
	classifier compose.Runnable[map[string]any, *schema.Message]
	fallback   analysis.KeywordClassifier
}

// NewService 创建情绪分类服务。chatModel 可重用现有的大模型实例。
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config) (*Service, error) {
	svc := &Service{
		enabled: cfg.Enabled && chatModel != nil,
	}

	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(emotionSystemPrompt),
		schema.UserMessage(emotionUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile emotion classifier chain: %w", err)
	}

	svc.classifier = runnable
	return svc, nil
}

// Enabled 返回是否使用大模型分类。
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.classifier != nil
}

// Classify returns the emotion label for text. Model failures are returned
// to the caller instead of being replaced by the heuristic result.
func (s *Service) Classify(ctx context.Context, text string) (emotion.Label, error) {
	if !s.Enabled() {
		return s.fallback.Classify(ctx, text)
	}

	msg, err := s.classifier.Invoke(ctx, map[string]any{
		"user_message": strings.TrimSpace(text),
		"labels":       labelList(),
	})
	if err != nil {
		return "", fmt.Errorf("invoke emotion classifier: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", ErrEmptyOutput
	}

	result, err := parseClassifierOutput(msg.Content)
	if err != nil {
		return "", fmt.Errorf("parse emotion classifier output: %w", err)
	}

	label := emotion.Normalize(result.Emotion)
	if !label.Known() && label != emotion.Neutral {
		logx.Debug().Str("label", string(label)).Msg("classifier produced unrecognized label")
	}
	return label, nil
}

// parseClassifierOutput 解析大模型返回的 JSON。
func parseClassifierOutput(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.Emotion) == "" {
		return nil, fmt.Errorf("missing emotion field")
	}
	return payload, nil
}

func labelList() string {
	labels := emotion.All()
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = string(l)
	}
	return strings.Join(names, "/")
}

type classifierPayload struct {
	Emotion    string  `json:"emotion"`
	Confidence float32 `json:"confidence"`
}

const emotionSystemPrompt = "You label the emotional tone of a single chat message for an emotional support assistant.\nReply with exactly one JSON object and nothing else. Fields: emotion (one of {labels}), confidence (number between 0 and 1)."

const emotionUserPrompt = "Message:\n{user_message}"
