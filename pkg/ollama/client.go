package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/image-composer/pkg/client"
	"github.com/menta2k/image-composer/pkg/types"
)

// DefaultTimeout bounds a request whose context carries no deadline.
const DefaultTimeout = 120 * time.Second

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
}

var _ client.VisionClient = (*Client)(nil)

// NewClient creates a new Ollama client
func NewClient(ollamaURL string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %s", ollamaURL)
	}

	// drop any path such as /api/chat; the SDK adds its own
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{client: api.NewClient(baseURL, http.DefaultClient)}, nil
}

// Describe asks model about image and returns the free-text answer.
func (c *Client) Describe(ctx context.Context, model, prompt string, image []byte) (string, error) {
	return c.chat(ctx, model, prompt, image, nil)
}

// LocateSubject asks model for the dominant subject of image.
func (c *Client) LocateSubject(ctx context.Context, model, prompt string, image []byte) (*types.Subject, error) {
	options := map[string]any{"temperature": 0.2}

	// MiniCPM-V needs a larger context window for a full-size image
	modelLower := strings.ToLower(model)
	if strings.Contains(modelLower, "minicpm-v") || strings.Contains(modelLower, "minicpmv") {
		options["num_ctx"] = 4096
		options["top_p"] = 0.8
	}

	content, err := c.chat(ctx, model, prompt, image, options)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}
	return client.ParseSubject(content), nil
}

func (c *Client) chat(ctx context.Context, model, prompt string, image []byte, options map[string]any) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	msg := api.Message{Role: "user", Content: prompt}
	if len(image) > 0 {
		msg.Images = []api.ImageData{api.ImageData(image)}
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: []api.Message{msg},
		Stream:   &streamFalse,
		Options:  options,
	}

	var content strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}
	return content.String(), nil
}
