package score

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// Anthropic scores batches through the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropic builds the strategy. An empty model takes the default.
func NewAnthropic(apiKey, model string) *Anthropic {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) ScoreBatch(ctx context.Context, texts []string) ([]float64, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   int64(maxTokensFor(len(texts))),
		Temperature: anthropic.Float(scoreTemperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(batchPrompt(texts))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			return parseScores(block.Text)
		}
	}
	return nil, fmt.Errorf("no text content in anthropic response")
}
