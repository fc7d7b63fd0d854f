// Package app builds the turn pipeline from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/openai/openai-go/option"

	"github.com/zhouzirui/ai-friend/backend/internal/config"
	"github.com/zhouzirui/ai-friend/backend/internal/service/activity"
	"github.com/zhouzirui/ai-friend/backend/internal/service/ai"
	"github.com/zhouzirui/ai-friend/backend/internal/service/composer"
	emotionservice "github.com/zhouzirui/ai-friend/backend/internal/service/emotion"
	"github.com/zhouzirui/ai-friend/backend/internal/service/ledger"
	"github.com/zhouzirui/ai-friend/backend/internal/service/session"
	logx "github.com/zhouzirui/ai-friend/backend/pkg/logger"
)

// App owns the process-wide components.
type App struct {
	Sessions *session.Service
	Ledger   ledger.Ledger
}

// Close releases the ledger handle.
func (a *App) Close() error {
	if a == nil || a.Ledger == nil {
		return nil
	}
	return a.Ledger.Close()
}

// Build wires classifier, generator, catalog, composer and ledger. Missing
// model credentials are not fatal; turns then fail with a generation error.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := ledger.Open(ctx, cfg.Ledger.LedgerOptions())
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	logx.Info().Str("driver", cfg.Ledger.Driver).Msg("conversation ledger opened")

	catalog := activity.Default()
	if cfg.Activity.CatalogPath != "" {
		catalog, err = activity.LoadFile(cfg.Activity.CatalogPath)
		if err != nil {
			store.Close()
			return nil, err
		}
		logx.Info().Str("path", cfg.Activity.CatalogPath).Msg("activity catalog loaded")
	}

	composerOpts := []composer.Option{composer.WithActivityProbability(cfg.Composer.ActivityProbability)}
	if cfg.Composer.Seed != 0 {
		composerOpts = append(composerOpts, composer.WithSeed(cfg.Composer.Seed))
	}

	var (
		chatModel model.ChatModel
		generator session.Generator
	)
	if cfg.AI.Enabled() {
		aiService, err := newArkGenerator(ctx, cfg.AI)
		if err != nil {
			logx.Warn().Err(err).Msg("failed to initialize Ark generator")
		} else {
			chatModel = aiService.GetChatModel()
			generator = aiService
			logx.Info().Str("model", cfg.AI.Model).Msg("Ark generator initialized")
		}
	}
	if generator == nil && cfg.OpenAI.Enabled() {
		var opts []option.RequestOption
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		openaiGen, err := ai.NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.Model, opts...)
		if err != nil {
			logx.Warn().Err(err).Msg("failed to initialize OpenAI generator")
		} else {
			generator = openaiGen
			logx.Info().Str("model", cfg.OpenAI.Model).Msg("OpenAI generator initialized")
		}
	}
	if generator == nil {
		logx.Warn().Msg("no reply generator configured, turns will fail until ARK_* or OPENAI_* is set")
	}

	classifier, err := emotionservice.NewService(ctx, chatModel, emotionservice.Config{Enabled: cfg.AI.EmotionLLMEnabled})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("initialize emotion classifier: %w", err)
	}
	switch {
	case classifier.Enabled():
		logx.Info().Msg("LLM emotion classifier enabled")
	case cfg.AI.EmotionLLMEnabled:
		logx.Warn().Msg("LLM emotion classifier requested but chat model unavailable, using keywords")
	default:
		logx.Info().Msg("keyword emotion classifier enabled")
	}

	deps := session.Dependencies{
		Classifier: classifier,
		Generator:  generator,
		Catalog:    catalog,
		Composer:   composer.New(composerOpts...),
		Ledger:     store,
	}

	return &App{
		Sessions: session.NewService(deps, session.WithTimeout(cfg.AI.ModelTimeout)),
		Ledger:   store,
	}, nil
}

func newArkGenerator(ctx context.Context, cfg config.AIConfig) (*ai.Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return ai.NewService(ctx, chatModel)
}
