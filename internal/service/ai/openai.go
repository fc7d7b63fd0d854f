package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	logx "github.com/zhouzirui/ai-friend/backend/pkg/logger"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIGenerator generates base replies through the OpenAI Responses API.
type OpenAIGenerator struct {
	client       *openai.Client
	model        string
	instructions string
	maxOutput    int64
}

// NewOpenAIGenerator builds a generator. Extra request options (base URL,
// HTTP client) are passed through to the client.
func NewOpenAIGenerator(apiKey, model string, opts ...option.RequestOption) (*OpenAIGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultOpenAIModel
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIGenerator{
		client:       &client,
		model:        model,
		instructions: companionSystemPrompt,
		maxOutput:    300,
	}, nil
}

// Generate returns the model's reply to text.
func (g *OpenAIGenerator) Generate(ctx context.Context, text string) (string, error) {
	params := responses.ResponseNewParams{
		Model:           g.model,
		MaxOutputTokens: openai.Int(g.maxOutput),
		Instructions:    openai.String(g.instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleUser),
			},
		},
	}

	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		return "", err
	}

	reply := strings.TrimSpace(resp.OutputText())
	logx.Debug().Str("model", g.model).Int("length", len(reply)).Msg("generated base reply")
	return reply, nil
}
