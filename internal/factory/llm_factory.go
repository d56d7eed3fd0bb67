package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-sorter/internal/adapters/bedrock"
	"github.com/mikey/mail-sorter/internal/adapters/gemini"
	"github.com/mikey/mail-sorter/internal/adapters/openai"
	"github.com/mikey/mail-sorter/internal/config"
	"github.com/mikey/mail-sorter/internal/core"
	"github.com/mikey/mail-sorter/internal/utils"
)

// LLMFactory creates category suggesters
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateSuggester creates the suggester selected by llm.provider. The
// provider "none" yields a nil suggester.
func (f *LLMFactory) CreateSuggester(ctx context.Context) (core.CategorySuggester, error) {
	switch provider := f.cfg.GetLLM().Provider; provider {
	case "none", "":
		return nil, nil
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateSuggester(ctx)
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateSuggester(ctx)
	case "openai":
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateSuggester()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
