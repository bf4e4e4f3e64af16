package score

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI scores batches through an OpenAI-compatible chat completions
// endpoint. The base URL is configurable so DeepSeek, Nebius and friends
// work unchanged.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	httpc   *http.Client
}

// NewOpenAI builds the strategy. Empty baseURL and model take the
// api.openai.com defaults.
func NewOpenAI(baseURL, apiKey, model string) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpc:   &http.Client{Timeout: 90 * time.Second},
	}
}

func (o *OpenAI) Name() string { return "openai" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAI) ScoreBatch(ctx context.Context, texts []string) ([]float64, error) {
	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: batchPrompt(texts)}},
		Temperature: scoreTemperature,
		MaxTokens:   maxTokensFor(len(texts)),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat completions: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("chat completions: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response (status %d)", resp.StatusCode)
	}
	return parseScores(parsed.Choices[0].Message.Content)
}
