package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/survey/internal/llm/prompts"

	openai "github.com/sashabaranov/go-openai"
)

// Messages shown in place of a summary.
const (
	MissingKeyMessage = "AI summary is unavailable: no API key is configured. Set --llm-key or SURVEY_LLM_KEY to enable it."
	NoDataMessage     = "There are no responses to summarize yet."
	failurePrefix     = "The AI summary could not be generated: "
)

// Result is the outcome of a summary request. OK is false when Text is an
// explanatory message rather than the service's reply.
type Result struct {
	Text string
	OK   bool
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client. An empty apiKey yields a client that never
// calls the service.
func New(baseURL, apiKey, modelName string) *Client {
	if apiKey == "" {
		return &Client{model: modelName}
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Enabled reports whether a credential was supplied.
func (c *Client) Enabled() bool {
	return c.api != nil
}

// Summarize asks the service for an analysis of count responses given as CSV
// text. It never fails: problems are reported as a message in the Result.
func (c *Client) Summarize(ctx context.Context, table string, count int) Result {
	if !c.Enabled() {
		return Result{Text: MissingKeyMessage}
	}
	if count == 0 {
		return Result{Text: NoDataMessage}
	}

	prompt, err := prompts.BuildSummaryPrompt(table, count)
	if err != nil {
		return failure(fmt.Errorf("build prompt: %w", err))
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return failure(fmt.Errorf("LLM API call: %w", err))
	}
	if len(resp.Choices) == 0 {
		return failure(fmt.Errorf("LLM returned no choices"))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("LLM summary", "responses", count, "chars", len(text), "total_tokens", resp.Usage.TotalTokens)
	return Result{Text: text, OK: true}
}

func failure(err error) Result {
	slog.Error("summary failed", "error", err)
	return Result{Text: failurePrefix + err.Error()}
}
