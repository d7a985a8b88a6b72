package llm

import (
	"context"
	"strings"

	"github.com/regsense/assistant-gateway/internal/config"
)

// Provider identifiers accepted in config.
const (
	ProviderStub      = "stub"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Generator produces a completion for a prompt. It backs the classifier's
// low-confidence escalation path.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// New resolves the configured provider once at process start. Unknown
// provider names fall back to the stub.
func New(cfg config.LLMConfig) Generator {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	case ProviderAnthropic:
		return NewAnthropic(cfg)
	default:
		return &Stub{}
	}
}

// Stub is the no-backend generator. The classifier treats it as "no
// escalation available" and sticks with keyword results.
type Stub struct{}

func (s *Stub) Name() string { return ProviderStub }

func (s *Stub) Generate(_ context.Context, _ string) (string, error) {
	return "Stubbed LLM response. Provide concise regulatory guidance. " +
		"Configure llm.provider=openai or anthropic with API keys for real outputs.", nil
}
