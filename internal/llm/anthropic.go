package llm

import (
	"context"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// AnthropicProvider implements Provider via the Messages API.
type AnthropicProvider struct {
	client sdk.Client
	cfg    Config
}

// NewAnthropicProvider creates an Anthropic-backed provider.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.AnthropicKey == "" {
		return nil, eris.New("llm: anthropic API key is required")
	}
	return &AnthropicProvider{
		client: sdk.NewClient(option.WithAPIKey(cfg.AnthropicKey)),
		cfg:    cfg,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete sends a single-turn message.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.AnthropicModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 300
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.cfg.Temperature
	}

	timeout := time.Duration(p.cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
		Temperature: sdk.Float(temperature),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic create message")
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, eris.New("llm: anthropic returned no text content")
	}

	return &Response{
		Text:       strings.TrimSpace(text.String()),
		Model:      model,
		TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}
