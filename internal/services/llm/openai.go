package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"github.com/ternarybob/roomathon/internal/common"
)

func (f *ProviderFactory) getOpenAIClient(ctx context.Context) (*openai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.openaiClient != nil {
		return f.openaiClient, nil
	}

	apiKey, err := common.ResolveAPIKey(ctx, f.kvStorage, "openai_api_key", f.config.OpenAI.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve OpenAI API key: %w", err)
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0), // retries are ours
	}
	if f.config.OpenAI.BaseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(f.config.OpenAI.BaseURL))
	}

	client := openai.NewClient(opts...)
	f.openaiClient = &client
	return f.openaiClient, nil
}

func (f *ProviderFactory) generateWithOpenAI(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.getOpenAIClient(ctx)
	if err != nil {
		return nil, err
	}

	messages, systemText, err := splitSystem(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemText != "" {
		msgs = append(msgs, openai.SystemMessage(systemText))
	}
	for _, m := range messages {
		if m.Role == "assistant" {
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		} else {
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(model),
		Messages:  msgs,
		MaxTokens: openai.Int(int64(f.maxTokens(request))),
	}
	temp := request.Temperature
	if temp <= 0 {
		temp = f.config.OpenAI.Temperature
	}
	if temp > 0 {
		params.Temperature = openai.Float(float64(temp))
	}

	var resp *openai.ChatCompletion
	err = f.retry.do(ctx, f.logger, ProviderOpenAI, func() error {
		var callErr error
		resp, callErr = client.Chat.Completions.New(ctx, params)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty choices from OpenAI API")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("empty content in OpenAI response")
	}

	return &ContentResponse{
		Text:     text,
		Provider: ProviderOpenAI,
		Model:    model,
	}, nil
}
