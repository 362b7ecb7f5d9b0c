package llm

import (
	"fmt"
	"time"

	"github.com/awfufu/go-dstbot/internal/config"
	"go.uber.org/zap"
)

// New returns the chat supplier selected by cfg.Provider.
func New(cfg config.ChatConfig, timeout time.Duration, log *zap.Logger) (Chatter, error) {
	switch cfg.Provider {
	case config.ProviderTuring, "":
		return NewTuringClient(cfg.Turing.URL, cfg.Turing.UserID, cfg.Turing.APIKey, timeout,
			log.Named("turing")), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, timeout,
			log.Named("openai")), nil
	default:
		return nil, fmt.Errorf("未知的 chat provider: %q", cfg.Provider)
	}
}
