// Package llm provides optional, advisory grading assistance: given one
// subjective answer it suggests a score and feedback text for the examiner to
// review. Suggestions are never written to a submission; manual scoring stays
// authoritative.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rsinha/examportal/internal/model"
)

// Suggestion holds the model's proposed assessment of a single answer.
type Suggestion struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client against an OpenAI-compatible endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// SuggestFeedback asks the model to assess one subjective answer. maxPoints
// bounds the suggested score.
func (c *Client) SuggestFeedback(ctx context.Context, question model.Question, answer string, maxPoints float64) (*Suggestion, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSuggestPrompt(question, maxPoints)},
			{Role: openai.ChatMessageRoleUser, Content: answer},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM suggestion", "raw", raw)

	var suggestion Suggestion
	if err := json.Unmarshal([]byte(raw), &suggestion); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}

	// Clamp out-of-range scores rather than failing the whole suggestion.
	if suggestion.Score < 0 {
		suggestion.Score = 0
	}
	if maxPoints > 0 && suggestion.Score > maxPoints {
		suggestion.Score = maxPoints
	}
	return &suggestion, nil
}

func buildSuggestPrompt(q model.Question, maxPoints float64) string {
	var sb strings.Builder
	sb.WriteString("You are assisting an examiner who is grading a written exam answer. ")
	sb.WriteString("The examiner makes the final decision; you only propose a score and feedback.\n\n")
	sb.WriteString("QUESTION: " + q.Text + "\n\n")
	if maxPoints > 0 {
		sb.WriteString(fmt.Sprintf("MAX POINTS: %g\n\n", maxPoints))
	}
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Assess the answer for correctness, completeness, and clarity.\n")
	sb.WriteString("- Keep the feedback brief and addressed to the student.\n")
	sb.WriteString("\nRespond ONLY with a JSON object with these fields:\n")
	sb.WriteString(`{"score": <number>, "feedback": "<brief feedback>"}`)
	sb.WriteString("\n")
	return sb.String()
}
