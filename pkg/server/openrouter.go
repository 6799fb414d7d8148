package server

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/resume-chat/pkg/chat"
)

const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel   = "meta-llama/llama-3.1-8b-instruct:free"
)

// OpenRouterSettings configures the OpenAI compatible chat completion
// backend.
type OpenRouterSettings struct {
	APIKey      string        `mapstructure:"api-key"`
	BaseURL     string        `mapstructure:"base-url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max-tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// HistoryWindow is how many previous turns are sent with each request.
	HistoryWindow int    `mapstructure:"history-window"`
	Profile       string `mapstructure:"profile"`
	Persona       string `mapstructure:"persona"`
}

func DefaultOpenRouterSettings() OpenRouterSettings {
	return OpenRouterSettings{
		BaseURL:       DefaultOpenRouterBaseURL,
		Model:         DefaultOpenRouterModel,
		MaxTokens:     1000,
		Temperature:   0.7,
		Timeout:       30 * time.Second,
		HistoryWindow: 10,
	}
}

// OpenRouterResponder answers through an OpenAI compatible chat completion
// API, OpenRouter by default.
type OpenRouterResponder struct {
	client       *openai.Client
	settings     OpenRouterSettings
	systemPrompt string
}

var _ StreamResponder = (*OpenRouterResponder)(nil)

func NewOpenRouterResponder(s OpenRouterSettings) (*OpenRouterResponder, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, errors.New("openrouter api key is not set (OPENROUTER_API_KEY)")
	}
	if s.Model == "" {
		s.Model = DefaultOpenRouterModel
	}

	var profile map[string]any
	if s.Profile != "" {
		p, err := LoadProfile(s.Profile)
		if err != nil {
			return nil, err
		}
		profile = p
		log.Info().Str("profile", s.Profile).Int("keys", len(p)).Msg("loaded profile")
	}
	prompt, err := BuildSystemPrompt(s.Persona, profile)
	if err != nil {
		return nil, err
	}

	cfg := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	return &OpenRouterResponder{
		client:       openai.NewClientWithConfig(cfg),
		settings:     s,
		systemPrompt: prompt,
	}, nil
}

func (o *OpenRouterResponder) SystemPrompt() string {
	return o.systemPrompt
}

func (o *OpenRouterResponder) buildRequest(req Request) openai.ChatCompletionRequest {
	history := req.History
	if w := o.settings.HistoryWindow; w >= 0 && len(history) > w {
		history = history[len(history)-w:]
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt})
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Message})

	return openai.ChatCompletionRequest{
		Model:       o.settings.Model,
		Messages:    msgs,
		MaxTokens:   o.settings.MaxTokens,
		Temperature: o.settings.Temperature,
	}
}

func (o *OpenRouterResponder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.settings.Timeout > 0 {
		return context.WithTimeout(ctx, o.settings.Timeout)
	}
	return context.WithCancel(ctx)
}

func (o *OpenRouterResponder) Respond(ctx context.Context, req Request) (string, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, o.buildRequest(req))
	if err != nil {
		return "", errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenRouterResponder) RespondStream(ctx context.Context, req Request, emit func(string) error) (string, error) {
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	cr := o.buildRequest(req)
	cr.Stream = true
	stream, err := o.client.CreateChatCompletionStream(ctx, cr)
	if err != nil {
		return "", errors.Wrap(err, "chat completion stream")
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "receive completion delta")
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if err := emit(delta); err != nil {
			return "", err
		}
	}
	return full.String(), nil
}
