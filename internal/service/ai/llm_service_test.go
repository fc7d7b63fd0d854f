package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	reply string
	err   error
	input []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(f.reply, nil)}), nil
}

func (f *fakeChatModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func TestGenerateReturnsTrimmedReply(t *testing.T) {
	fake := &fakeChatModel{reply: "  That is rough.  "}
	svc, err := NewService(context.Background(), fake)
	require.NoError(t, err)

	reply, err := svc.Generate(context.Background(), "I lost my job today")
	require.NoError(t, err)
	assert.Equal(t, "That is rough.", reply)

	require.Len(t, fake.input, 2)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Equal(t, companionSystemPrompt, fake.input[0].Content)
	assert.Equal(t, "I lost my job today", fake.input[1].Content)
}

func TestGenerateWithCustomSystemPrompt(t *testing.T) {
	fake := &fakeChatModel{reply: "ok"}
	svc, err := NewService(context.Background(), fake, WithSystemPrompt("Be brief."))
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", fake.input[0].Content)
	assert.Same(t, fake, svc.GetChatModel())
}

func TestGenerateSurfacesModelError(t *testing.T) {
	boom := errors.New("quota exceeded")
	svc, err := NewService(context.Background(), &fakeChatModel{err: boom})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "hi")
	require.ErrorIs(t, err, boom)
}

func TestNewServiceRequiresModel(t *testing.T) {
	_, err := NewService(context.Background(), nil)
	require.Error(t, err)
}

func TestOpenAIGeneratorGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "resp_1",
			"object": "response",
			"created_at": 1700000000,
			"model": "gpt-4o-mini",
			"status": "completed",
			"output": [{
				"type": "message",
				"id": "msg_1",
				"role": "assistant",
				"status": "completed",
				"content": [{"type": "output_text", "text": "That is rough.", "annotations": []}]
			}]
		}`)
	}))
	defer srv.Close()

	gen, err := NewOpenAIGenerator("test-key", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	reply, err := gen.Generate(context.Background(), "I lost my job today")
	require.NoError(t, err)
	assert.Equal(t, "That is rough.", reply)
	assert.Equal(t, DefaultOpenAIModel, got["model"])
	assert.Equal(t, companionSystemPrompt, got["instructions"])
}

func TestOpenAIGeneratorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"down"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gen, err := NewOpenAIGenerator("test-key", "gpt-4o-mini", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "hello")
	require.Error(t, err)
}

func TestNewOpenAIGeneratorRequiresKey(t *testing.T) {
	_, err := NewOpenAIGenerator(" ", "gpt-4o-mini")
	require.Error(t, err)
}
