package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeCompleter struct {
	prompt string
	reply  string
	err    error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func TestAskTrimsReply(t *testing.T) {
	c := &fakeCompleter{reply: "  Likely a common cold.\n"}
	s := NewService(c, zerolog.Nop())

	assert.Equal(t, "Likely a common cold.", s.AnalyzeSymptoms(context.Background(), "fever, cough"))
	assert.Equal(t, "Analyze these symptoms: fever, cough", c.prompt)
}

func TestAskFallbacks(t *testing.T) {
	tests := []struct {
		name      string
		completer Completer
		want      string
	}{
		{"model error", &fakeCompleter{err: errors.New("quota exceeded")}, FallbackUnavailable},
		{"empty answer", &fakeCompleter{reply: "   "}, FallbackEmpty},
		{"not configured", nil, FallbackUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(tt.completer, zerolog.Nop())
			assert.Equal(t, tt.want, s.SummarizeHistory(context.Background(), "hypertension"))
		})
	}
}

func TestRecommendDoctorPrompt(t *testing.T) {
	c := &fakeCompleter{reply: "See drhouse."}
	s := NewService(c, zerolog.Nop())

	s.RecommendDoctor(context.Background(), "chest pain", "Kigali", []string{"drhouse", "drgrey"})
	assert.Equal(t, "Recommend doctors for symptoms 'chest pain' in location 'Kigali' from list: ['drhouse', 'drgrey']", c.prompt)
}
