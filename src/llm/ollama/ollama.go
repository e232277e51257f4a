package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"docochat/src/infrastructure/log"
)

const (
	DefaultURL = "http://localhost:11434/api"

	DefaultEmbeddingModel  = "nomic-embed-text"
	DefaultCompletionModel = "llama3.1"
)

// EmbeddingRequest represents the request structure for embeddings
type EmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// EmbeddingResponse represents the response structure from embeddings
type EmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// ChatRequest represents the request structure for chat completion
type ChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ChatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ChatMessage is one turn in a chat request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse represents the response structure from chat completion
type ChatResponse struct {
	Model   string      `json:"model"`
	Message ChatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Client represents an Ollama API client
type Client struct {
	httpClient      *http.Client
	baseURL         string
	embeddingModel  string
	completionModel string
}

// NewClient creates a new Ollama API client
func NewClient(baseURL string, c *http.Client, embeddingModel, completionModel string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if c == nil {
		c = http.DefaultClient
	}
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if completionModel == "" {
		completionModel = DefaultCompletionModel
	}

	return &Client{
		httpClient:      c,
		baseURL:         baseURL,
		embeddingModel:  embeddingModel,
		completionModel: completionModel,
	}
}

// Ping checks that the Ollama instance responds
func (c *Client) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/tags", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

// Embed returns the embedding vector for a single prompt
func (c *Client) Embed(ctx context.Context, prompt string) ([]float32, error) {
	reqBody := EmbeddingRequest{
		Model:  c.embeddingModel,
		Prompt: prompt,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/embeddings", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error(err, "failed to make request to ollama")
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %s: %s", resp.Status, body)
	}

	var response EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	return response.Embedding, nil
}

// Chat performs a non-streaming chat completion over the given messages
func (c *Client) Chat(ctx context.Context, messages []ChatMessage, options map[string]interface{}) (string, error) {
	reqBody := ChatRequest{
		Model:    c.completionModel,
		Messages: messages,
		Stream:   false,
		Options:  options,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/chat", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error(err, "failed to make request to ollama")
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %s: %s", resp.Status, body)
	}

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %w", err)
	}
	if response.Message.Content == "" {
		return "", fmt.Errorf("no response received from Ollama")
	}

	return response.Message.Content, nil
}
