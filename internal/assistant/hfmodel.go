package assistant

import (
	"context"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModelID     = "Qwen/Qwen2.5-Coder-32B-Instruct"
	DefaultBaseURL     = "https://router.huggingface.co/v1"
	DefaultMaxTokens   = 2096
	DefaultTemperature = 0.5
)

var ErrMissingToken = errors.New("hugging face token missing")

type HFConfig struct {
	Token       string
	ModelID     string
	BaseURL     string
	MaxTokens   int
	Temperature float32
}

// HFModel talks to the Hugging Face inference router through its
// OpenAI compatible chat completions API.
type HFModel struct {
	client *openai.Client
	cfg    HFConfig
}

func NewHFModel(cfg HFConfig) (*HFModel, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	clientConfig := openai.DefaultConfig(cfg.Token)
	clientConfig.BaseURL = cfg.BaseURL

	return &HFModel{openai.NewClientWithConfig(clientConfig), cfg}, nil
}

func (m *HFModel) Generate(ctx context.Context, messages []ChatMessage) (Result, error) {
	req := openai.ChatCompletionRequest{
		Model:       m.cfg.ModelID,
		MaxTokens:   m.cfg.MaxTokens,
		Temperature: m.cfg.Temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Result{}, errors.Wrapf(err, "chat completion with %s failed", m.cfg.ModelID)
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.Errorf("chat completion with %s returned no choices", m.cfg.ModelID)
	}

	return Result{Content: resp.Choices[0].Message.Content}, nil
}
