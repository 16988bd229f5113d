package llm

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// NewProvider constructs the configured completion provider, wrapped
// with transient-failure retries.
func NewProvider(cfg Config) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "", "openai":
		p, err = NewOpenAIProvider(cfg)
	case "anthropic":
		p, err = NewAnthropicProvider(cfg)
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	zap.L().Debug("llm provider initialized", zap.String("provider", p.Name()))
	return WithRetry(p), nil
}
