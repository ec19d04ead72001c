package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIBackend implements Backend against an OpenAI-compatible local
// inference server (llama.cpp server, ollama and the like). The model weights
// live behind that server; load validates reachability and records the model
// name used for subsequent generate calls.
type OpenAIBackend struct {
	client      *openai.Client
	temperature float64
	maxTokens   int
	timeout     time.Duration

	mu    sync.Mutex
	model string
}

// OpenAIConfig holds backend settings
type OpenAIConfig struct {
	Endpoint    string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewOpenAIBackend creates the backend client
func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAIBackend{
		client:      openai.NewClientWithConfig(clientConfig),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
	}
}

// Load verifies the inference server answers and records the model name.
// Context and thread counts are advisory for server-side backends.
func (b *OpenAIBackend) Load(model string, _, _ int) error {
	if model == "" {
		return fmt.Errorf("empty model name")
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	if _, err := b.client.ListModels(ctx); err != nil {
		return fmt.Errorf("inference server unreachable: %w", err)
	}

	b.mu.Lock()
	b.model = model
	b.mu.Unlock()
	return nil
}

// Generate runs one completion for the prompt
func (b *OpenAIBackend) Generate(prompt string) (string, error) {
	b.mu.Lock()
	model := b.model
	b.mu.Unlock()
	if model == "" {
		return "", fmt.Errorf("no model loaded")
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: float32(b.temperature),
		MaxTokens:   b.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

// Unload clears the recorded model
func (b *OpenAIBackend) Unload() error {
	b.mu.Lock()
	b.model = ""
	b.mu.Unlock()
	return nil
}
