package ollama

import (
	"context"

	"docochat/src/core/chat"
)

// Provider adapts the Ollama client to the pipeline's embedding and
// completion interfaces.
type Provider struct {
	client *Client
}

func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

func (p *Provider) CheckHealth(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return p.client.Embed(ctx, text)
}

// EmbedDocuments embeds each text with its own API call; the Ollama
// embeddings endpoint takes a single prompt per request.
func (p *Provider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := p.client.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (p *Provider) Complete(ctx context.Context, system string, msgs []chat.Message) (string, error) {
	messages := make([]ChatMessage, 0, len(msgs)+1)
	messages = append(messages, ChatMessage{Role: "system", Content: system})
	for _, m := range msgs {
		messages = append(messages, ChatMessage{Role: m.Role, Content: m.Content})
	}

	return p.client.Chat(ctx, messages, map[string]interface{}{
		"temperature": 0.7,
		"top_p":       0.9,
	})
}
