package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeMaxTokens = 4096

type claudeConfig struct {
	APIKey    string `json:"api_key"`
	MaxTokens int64  `json:"max_tokens"`
}

type claudeProvider struct {
	client    *anthropic.Client
	maxTokens int64
}

func (p *claudeProvider) Name() string {
	return "claude"
}

func (p *claudeProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	if p.client == nil {
		return "", ErrUnavailable
	}
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude request failed: %w", err)
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func createClaudeFactory(args interface{}) (IAIProvider, error) {
	cfg := &claudeConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	provider := &claudeProvider{maxTokens: cfg.MaxTokens}
	if provider.maxTokens <= 0 {
		provider.maxTokens = defaultClaudeMaxTokens
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		client := anthropic.NewClient(option.WithAPIKey(key))
		provider.client = &client
	}
	return provider, nil
}

func init() {
	Register("claude", createClaudeFactory)
}
