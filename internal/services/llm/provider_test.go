package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/common"
	"github.com/ternarybob/roomathon/internal/interfaces"
)

func newTestFactory(defaultProvider common.LLMProvider) *ProviderFactory {
	cfg := common.NewDefaultConfig()
	cfg.LLM.DefaultProvider = defaultProvider
	return NewProviderFactory(cfg, nil, arbor.NewLogger())
}

func TestDetectProvider(t *testing.T) {
	f := newTestFactory(common.LLMProviderOpenAI)

	tests := []struct {
		model string
		want  ProviderType
	}{
		{"", ProviderOpenAI},
		{"gpt-4o", ProviderOpenAI},
		{"openai/gpt-4o-mini", ProviderOpenAI},
		{"o3-mini", ProviderOpenAI},
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-3-5-haiku", ProviderClaude},
		{"gemini-2.5-flash", ProviderGemini},
		{"google/gemini-2.5-pro", ProviderGemini},
		{"mystery-model", ProviderOpenAI},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.DetectProvider(tt.model), tt.model)
	}

	assert.Equal(t, ProviderGemini, newTestFactory(common.LLMProviderGemini).DetectProvider(""))
	assert.Equal(t, ProviderOpenAI, newTestFactory("bogus").DetectProvider(""))
}

func TestNormalizeModel(t *testing.T) {
	f := newTestFactory(common.LLMProviderOpenAI)

	assert.Equal(t, "gpt-4o", f.NormalizeModel("openai/gpt-4o"))
	assert.Equal(t, "claude-sonnet-4-20250514", f.NormalizeModel("Claude/claude-sonnet-4-20250514"))
	assert.Equal(t, "gemini-2.5-flash", f.NormalizeModel("gemini-2.5-flash"))
}

func TestGetDefaultModel(t *testing.T) {
	f := newTestFactory(common.LLMProviderOpenAI)

	assert.Equal(t, "gpt-4o", f.GetDefaultModel(ProviderOpenAI))
	assert.Equal(t, f.config.Gemini.Model, f.GetDefaultModel(ProviderGemini))
	assert.Equal(t, f.config.Claude.Model, f.GetDefaultModel(ProviderClaude))
}

func TestGenerateContent_RejectsEmptyMessages(t *testing.T) {
	f := newTestFactory(common.LLMProviderOpenAI)

	_, err := f.GenerateContent(context.Background(), &ContentRequest{})
	assert.Error(t, err)
}

func TestSplitSystem(t *testing.T) {
	rest, system, err := splitSystem([]interfaces.Message{
		{Role: "system", Content: "be terse"},
		{Role: "system", Content: "ignored"},
		{Role: "user", Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "be terse", system)
	assert.Equal(t, []interfaces.Message{{Role: "user", Content: "hello"}}, rest)

	_, _, err = splitSystem([]interfaces.Message{{Role: "assistant", Content: "hi"}})
	assert.Error(t, err)
}

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, IsRateLimitError(errors.New("POST: 429 Too Many Requests")))
	assert.True(t, IsRateLimitError(errors.New("Status: RESOURCE_EXHAUSTED")))
	assert.False(t, IsRateLimitError(errors.New("401 unauthorized")))
	assert.False(t, IsRateLimitError(nil))
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: quota. Please retry in 12.5s., Status: RESOURCE_EXHAUSTED")
	assert.Equal(t, 12500*time.Millisecond, ExtractRetryDelay(err))
	assert.Zero(t, ExtractRetryDelay(errors.New("boom")))
}

func TestCalculateBackoff(t *testing.T) {
	c := NewRetryConfig(3)

	assert.Equal(t, DefaultInitialBackoff, c.CalculateBackoff(0, 0))
	assert.Equal(t, 15*time.Second, c.CalculateBackoff(1, 0))
	assert.Equal(t, 6*time.Second, c.CalculateBackoff(0, 5*time.Second))
	assert.Equal(t, DefaultMaxBackoff, c.CalculateBackoff(10, 0))
}

func TestRetryDo(t *testing.T) {
	c := &RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1}
	logger := arbor.NewLogger()

	t.Run("retries rate limits", func(t *testing.T) {
		calls := 0
		err := c.do(context.Background(), logger, ProviderOpenAI, func() error {
			calls++
			if calls < 3 {
				return errors.New("429")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on other errors", func(t *testing.T) {
		calls := 0
		err := c.do(context.Background(), logger, ProviderOpenAI, func() error {
			calls++
			return errors.New("401 unauthorized")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := c.do(context.Background(), logger, ProviderOpenAI, func() error {
			calls++
			return errors.New("429")
		})
		assert.Error(t, err)
		assert.Equal(t, 3, calls)
	})
}
