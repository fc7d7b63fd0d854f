package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ai-friend/backend/internal/config"
	"github.com/zhouzirui/ai-friend/backend/internal/model/emotion"
	"github.com/zhouzirui/ai-friend/backend/internal/service/session"
)

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:      "testing",
		Ledger:   config.LedgerConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "chat_history.db")},
		Composer: config.ComposerConfig{Seed: 7, ActivityProbability: 0.3},
	}
}

func TestBuildWithoutGenerator(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, baseConfig(t))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Sessions.HandleTurn(ctx, "alice", "I lost my job today")
	require.ErrorIs(t, err, session.ErrGeneratorUnavailable)

	history, err := a.Sessions.History(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestBuildWithOpenAIGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"resp_1","object":"response","created_at":1700000000,"model":"gpt-4o-mini","status":"completed",
			"output":[{"type":"message","id":"msg_1","role":"assistant","status":"completed",
			"content":[{"type":"output_text","text":"That is rough.","annotations":[]}]}]}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	cfg := baseConfig(t)
	cfg.OpenAI = config.OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL + "/"}

	a, err := Build(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	exchange, err := a.Sessions.HandleTurn(ctx, "alice", "I lost my job today")
	require.NoError(t, err)
	assert.Equal(t, emotion.Sadness, exchange.Emotion)
	assert.Contains(t, exchange.Response, "That is rough.")

	history, err := a.Sessions.History(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, exchange, history[0])
}

func TestBuildLoadsActivityCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activities.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sadness:\n  - Call your sister.\n"), 0o644))

	cfg := baseConfig(t)
	cfg.Activity.CatalogPath = path
	a, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	cfg.Activity.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = Build(context.Background(), cfg)
	require.Error(t, err)
}
