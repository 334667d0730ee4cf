// Package claude implements the triage.Classifier interface against the
// Anthropic messages API.
package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ResponseTokens bounds the classifier's reply; the structured JSON it
// is asked for fits comfortably.
const ResponseTokens = 500

// Client sends single-shot vision classification requests to Claude.
type Client struct {
	client anthropic.Client
	model  string
}

// New creates a Claude classifier client for the given API key and model.
// Extra request options (base URL overrides in tests) are passed through.
func New(apiKey, model string, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Classify sends the image and instruction to the model and returns the
// concatenated text content of the reply. An empty reply is returned as
// empty content, not an error; the caller decides what malformed content
// means.
func (c *Client) Classify(ctx context.Context, imageURL, instruction string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: ResponseTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(instruction),
				anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: imageURL}),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
