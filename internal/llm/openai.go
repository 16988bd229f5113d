package llm

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider via the Chat Completions API.
type OpenAIProvider struct {
	client *openai.Client
	cfg    Config
}

// NewOpenAIProvider creates an OpenAI-backed provider.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.OpenAIKey == "" {
		return nil, eris.New("llm: openai API key is required")
	}
	return &OpenAIProvider{
		client: openai.NewClient(cfg.OpenAIKey),
		cfg:    cfg,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Complete sends a single-turn chat completion.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.OpenAIModel
	}
	if model == "" {
		model = openai.GPT4oMini
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

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("llm: openai returned no choices")
	}

	return &Response{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
