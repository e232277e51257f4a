package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"docochat/src/core/chat"
)

const (
	DefaultEmbeddingModel  = "text-embedding-3-small"
	DefaultCompletionModel = "gpt-4o-mini"
)

// Client adapts the OpenAI API to the pipeline's embedding and
// completion interfaces.
type Client struct {
	api             *openai.Client
	embeddingModel  string
	completionModel string
}

func NewClient(apiKey, embeddingModel, completionModel string) *Client {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if completionModel == "" {
		completionModel = DefaultCompletionModel
	}

	return &Client{
		api:             openai.NewClient(apiKey),
		embeddingModel:  embeddingModel,
		completionModel: completionModel,
	}
}

// CheckHealth reports whether the API is reachable with the configured
// credentials.
func (c *Client) CheckHealth(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("openai unreachable: %w", err)
	}
	return nil
}

// EmbedQuery embeds a single text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds a batch of texts in one API call, preserving
// input order.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts to embed")
	}
	for _, t := range texts {
		if t == "" {
			return nil, errors.New("cannot embed empty text")
		}
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d entries for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding response index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Complete generates the assistant reply for the given system
// instruction and ordered conversation.
func (c *Client) Complete(ctx context.Context, system string, msgs []chat.Message) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		if m.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.completionModel,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
