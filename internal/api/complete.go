package api

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// defaultMaxTokens bounds a completion when the request does not set
// its own cap.
const defaultMaxTokens = 4096

// CompletionRequest is one prompt sent to the model.
type CompletionRequest struct {
	// System is the system prompt framing the agent's role.
	System string
	// Prompt is the user-turn content.
	Prompt string
	// MaxTokens caps the response length. Zero uses a default.
	MaxTokens int64
}

// Complete makes a single API call and returns the model's text
// response. Token usage is recorded on the client's tracker.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	resp, err := c.sdk().Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	return text, nil
}
