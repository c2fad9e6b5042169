// Package llm wraps the Groq completion API behind a small client. Groq
// speaks the OpenAI chat protocol, so the client rides on langchaingo's
// openai implementation with a swapped base URL.
package llm

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/model"
)

var ErrNotConfigured = errors.New("llm: GROQ_API_KEY not configured")

type Client struct {
	model llms.Model
}

// New returns a client; without an API key the client is inert and every
// Complete call fails with ErrNotConfigured instead of the process refusing
// to start.
func New(apiKey, modelName, baseURL string) (*Client, error) {
	if apiKey == "" {
		return &Client{}, nil
	}
	m, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(modelName),
		openai.WithBaseURL(baseURL),
	)
	if err != nil {
		return nil, err
	}
	return &Client{model: m}, nil
}

func (c *Client) Configured() bool {
	return c != nil && c.model != nil
}

func (c *Client) Complete(ctx context.Context, system string, history []model.ChatMessage, message string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	content := make([]llms.MessageContent, 0, len(history)+2)
	content = append(content, llms.TextParts(schema.ChatMessageTypeSystem, system))
	for _, turn := range history {
		role := schema.ChatMessageTypeHuman
		if turn.Role == model.ChatRoleAssistant {
			role = schema.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, turn.Content))
	}
	content = append(content, llms.TextParts(schema.ChatMessageTypeHuman, message))

	resp, err := c.model.GenerateContent(ctx, content,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(150),
		llms.WithTopP(0.9),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty completion")
	}
	return resp.Choices[0].Content, nil
}
