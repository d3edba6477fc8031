package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-broker-assistant/internal/config"
	"github.com/tbourn/go-broker-assistant/internal/domain"
)

// Generator produces a broker-facing answer. It never fails: errors and
// empty output become FallbackMessage.
type Generator interface {
	Generate(ctx context.Context, p Prompt) string
}

const (
	livesSystem = "Voce extrai o numero de vidas de um texto em portugues. Responda APENAS com um numero inteiro ou NENHUM."
	ageSystem   = `Voce extrai faixa etaria de um texto em portugues. Responda APENAS no formato "XX-YY" (ex: "25-35") ou NENHUMA.`

	livesMaxTokens = 10
	ageMaxTokens   = 15
)

var errNoChoices = errors.New("llm: no choices in response")

// Client talks to an OpenAI-compatible chat completions endpoint. It
// implements Generator and quote.Extractor.
type Client struct {
	api         openai.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

// New builds a Client from cfg. Extra request options are appended after
// the configured ones.
func New(cfg config.OpenAIConfig, extra ...option.RequestOption) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: OPENAI_API_KEY is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		api:         openai.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Generate answers the broker. See Generator.
func (c *Client) Generate(ctx context.Context, p Prompt) string {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(p.History)+2)
	msgs = append(msgs, openai.SystemMessage(SystemPrompt(p)))
	for _, m := range p.History {
		if m.Role == domain.RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		} else {
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(p.UserText))

	out, err := c.complete(ctx, msgs, c.temperature, c.maxTokens)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("model", c.model).Msg("generate failed")
		return FallbackMessage
	}
	if strings.TrimSpace(out) == "" {
		log.Ctx(ctx).Warn().Str("model", c.model).Msg("empty completion")
		return FallbackMessage
	}
	return out
}

// ExtractLives asks for the number of lives in text at temperature 0.
func (c *Client) ExtractLives(ctx context.Context, text string) (string, error) {
	return c.extract(ctx, livesSystem, text, livesMaxTokens)
}

// ExtractAgeRange asks for an "XX-YY" age range in text at temperature 0.
func (c *Client) ExtractAgeRange(ctx context.Context, text string) (string, error) {
	return c.extract(ctx, ageSystem, text, ageMaxTokens)
}

func (c *Client) extract(ctx context.Context, system, text string, maxTokens int) (string, error) {
	out, err := c.complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		openai.UserMessage(text),
	}, 0, maxTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *Client) complete(ctx context.Context, msgs []openai.ChatCompletionMessageParamUnion, temperature float64, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    msgs,
		Temperature: openai.Float(temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	log.Ctx(ctx).Debug().
		Str("model", c.model).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Int64("prompt_tokens", resp.Usage.PromptTokens).
		Int64("completion_tokens", resp.Usage.CompletionTokens).
		Msg("llm chat completed")

	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
