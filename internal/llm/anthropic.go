package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/regsense/assistant-gateway/internal/config"
)

const (
	defaultAnthropicURL   = "https://api.anthropic.com"
	defaultAnthropicModel = "claude-3-haiku-20240307"
	anthropicVersion      = "2023-06-01"
)

// Anthropic generates completions via the Anthropic messages API.
type Anthropic struct {
	cfg     config.LLMConfig
	baseURL string
	client  *http.Client
}

func NewAnthropic(cfg config.LLMConfig) *Anthropic {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicURL
	}
	return &Anthropic{
		cfg:     cfg,
		baseURL: baseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (a *Anthropic) Name() string { return ProviderAnthropic }

type anthropicRequestBody struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponseBody struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (a *Anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	model := a.cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	body := anthropicRequestBody{
		Model:       model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("x-api-key", a.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read anthropic response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed anthropicResponseBody
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal anthropic response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", errors.New("anthropic returned empty content")
	}
	return parsed.Content[0].Text, nil
}
