package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/common"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"google.golang.org/genai"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderOpenAI uses the OpenAI chat completions API
	ProviderOpenAI ProviderType = "openai"
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// ContentRequest represents a provider-agnostic content generation request
type ContentRequest struct {
	Messages          []interfaces.Message
	Model             string
	Temperature       float32
	MaxTokens         int
	SystemInstruction string
}

// ContentResponse represents a provider-agnostic content generation response
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// Provider defines the interface for AI content generation
type Provider interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
}

// ProviderFactory routes requests to a provider by model name and owns the
// lazily created SDK clients
type ProviderFactory struct {
	config    *common.Config
	kvStorage interfaces.KeyValueStorage
	logger    arbor.ILogger
	retry     *RetryConfig

	mu           sync.Mutex
	openaiClient *openai.Client
	geminiClient *genai.Client
	claudeClient *anthropic.Client
}

// Compile-time assertion
var _ Provider = (*ProviderFactory)(nil)

// NewProviderFactory creates a new provider factory
func NewProviderFactory(config *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *ProviderFactory {
	return &ProviderFactory{
		config:    config,
		kvStorage: kvStorage,
		logger:    logger,
		retry:     NewRetryConfig(config.LLM.MaxRetries),
	}
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "gpt-4o" or "openai/gpt-4o" -> OpenAI
// - "claude-sonnet-4-20250514" or "claude/claude-sonnet-4-20250514" -> Claude
// - "gemini-2.5-flash" or "gemini/gemini-2.5-flash" -> Gemini
// - Empty string -> default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	model = strings.ToLower(strings.TrimSpace(model))

	switch {
	case model == "":
		return f.defaultProvider()
	case strings.HasPrefix(model, "openai/"),
		strings.HasPrefix(model, "gpt-"),
		strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"),
		strings.HasPrefix(model, "o4"):
		return ProviderOpenAI
	case strings.HasPrefix(model, "claude/"),
		strings.HasPrefix(model, "anthropic/"),
		strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini/"),
		strings.HasPrefix(model, "google/"),
		strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	}

	return f.defaultProvider()
}

func (f *ProviderFactory) defaultProvider() ProviderType {
	switch p := ProviderType(f.config.LLM.DefaultProvider); p {
	case ProviderGemini, ProviderClaude:
		return p
	default:
		return ProviderOpenAI
	}
}

// NormalizeModel removes provider prefix from model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	prefixes := []string{"openai/", "claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// GetDefaultModel returns the configured model for a provider
func (f *ProviderFactory) GetDefaultModel(provider ProviderType) string {
	switch provider {
	case ProviderClaude:
		return f.config.Claude.Model
	case ProviderGemini:
		return f.config.Gemini.Model
	default:
		return f.config.OpenAI.Model
	}
}

// GenerateContent generates content using the provider the model belongs to.
// A per-call timeout from [llm] timeout bounds all retries.
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	if request == nil || len(request.Messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	provider := f.DetectProvider(request.Model)
	model := f.NormalizeModel(request.Model)
	if model == "" {
		model = f.GetDefaultModel(provider)
	}

	timeout := common.ParseDuration(f.config.LLM.Timeout, 2*time.Minute)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("message_count", len(request.Messages)).
		Msg("Generating content with provider")

	switch provider {
	case ProviderClaude:
		return f.generateWithClaude(ctx, request, model)
	case ProviderGemini:
		return f.generateWithGemini(ctx, request, model)
	default:
		return f.generateWithOpenAI(ctx, request, model)
	}
}

func (f *ProviderFactory) maxTokens(request *ContentRequest) int {
	if request.MaxTokens > 0 {
		return request.MaxTokens
	}
	if f.config.LLM.MaxTokens > 0 {
		return f.config.LLM.MaxTokens
	}
	return 2000
}

// Close drops cached clients so keys are re-resolved on next use
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openaiClient = nil
	f.geminiClient = nil
	f.claudeClient = nil
	return nil
}

// splitSystem separates the first system message from the conversation
func splitSystem(messages []interfaces.Message) ([]interfaces.Message, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	var (
		rest       = make([]interfaces.Message, 0, len(messages))
		systemText string
		hasUser    bool
	)
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}
		if msg.Role != "assistant" {
			hasUser = true
		}
		rest = append(rest, msg)
	}
	if !hasUser {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}
	return rest, systemText, nil
}
