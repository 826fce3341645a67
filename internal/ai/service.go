// Package ai wraps the generative model behind the assistant endpoints.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const (
	FallbackUnavailable = "AI service unavailable. Please try again."
	FallbackEmpty       = "The AI could not generate a response."
)

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Service never fails: model errors and empty answers become fixed
// fallback text.
type Service struct {
	completer Completer
	logger    zerolog.Logger
}

// NewService accepts a nil completer, in which case every call falls back.
func NewService(completer Completer, logger zerolog.Logger) *Service {
	return &Service{completer: completer, logger: logger}
}

// Ask sends prompt to the model.
func (s *Service) Ask(ctx context.Context, prompt string) string {
	if s.completer == nil {
		s.logger.Error().Msg("gemini client not configured")
		return FallbackUnavailable
	}
	text, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		s.logger.Error().Err(err).Msg("gemini api error")
		return FallbackUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Warn().Msg("empty ai response")
		return FallbackEmpty
	}
	return text
}

func (s *Service) AnalyzeSymptoms(ctx context.Context, symptoms string) string {
	return s.Ask(ctx, "Analyze these symptoms: "+symptoms)
}

func (s *Service) SummarizeHistory(ctx context.Context, history string) string {
	return s.Ask(ctx, "Generate a medical summary: "+history)
}

// RecommendDoctor asks the model to pick among the named doctors.
func (s *Service) RecommendDoctor(ctx context.Context, symptoms, location string, doctors []string) string {
	quoted := make([]string, len(doctors))
	for i, d := range doctors {
		quoted[i] = "'" + d + "'"
	}
	prompt := fmt.Sprintf("Recommend doctors for symptoms '%s' in location '%s' from list: [%s]",
		symptoms, location, strings.Join(quoted, ", "))
	return s.Ask(ctx, prompt)
}
