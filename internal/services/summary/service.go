// -----------------------------------------------------------------------
// Last Modified: Tuesday, 14th October 2025 9:12:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package summary

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/roomathon/internal/interfaces"
	"github.com/ternarybob/roomathon/internal/models"
	"github.com/ternarybob/roomathon/internal/services/llm"
)

// FallbackText replaces the narrative when the model produced nothing usable
const FallbackText = "No summary generated."

// Result is the narrative for one inspection.
// Degraded is set when FallbackText was substituted.
type Result struct {
	Text     string
	Degraded bool
	Provider string
	Model    string
}

// Service produces the AI narrative for a report. It never fails: any
// provider error degrades to FallbackText.
type Service struct {
	provider  llm.Provider
	model     string
	maxTokens int
	logger    arbor.ILogger
}

// NewService creates a summarizer. An empty model uses the provider default.
func NewService(provider llm.Provider, model string, maxTokens int, logger arbor.ILogger) *Service {
	return &Service{
		provider:  provider,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Summarize makes exactly one completion request for the bundle
func (s *Service) Summarize(ctx context.Context, bundle *models.InspectionBundle) Result {
	if s.provider == nil {
		s.logger.Warn().Str("inspection_id", bundle.Inspection.ID).Msg("No LLM provider configured, using fallback summary")
		return Result{Text: FallbackText, Degraded: true}
	}

	start := time.Now()
	resp, err := s.provider.GenerateContent(ctx, &llm.ContentRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages: []interfaces.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(bundle)},
		},
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("inspection_id", bundle.Inspection.ID).
			Dur("duration", time.Since(start)).
			Msg("Summary generation failed, using fallback")
		return Result{Text: FallbackText, Degraded: true}
	}

	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Text)
	}
	if text == "" {
		s.logger.Warn().Str("inspection_id", bundle.Inspection.ID).Msg("Summary was empty, using fallback")
		return Result{Text: FallbackText, Degraded: true}
	}

	s.logger.Info().
		Str("inspection_id", bundle.Inspection.ID).
		Str("provider", string(resp.Provider)).
		Str("model", resp.Model).
		Int("chars", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Summary generated")

	return Result{
		Text:     text,
		Provider: string(resp.Provider),
		Model:    resp.Model,
	}
}
