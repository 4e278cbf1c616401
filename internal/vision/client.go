package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
)

// ClientConfig configures the HTTP vision-model client.
type ClientConfig struct {
	BaseURL string        // Chat-completions endpoint base, e.g. https://api-inference.modelscope.cn/v1
	APIKey  string        // Bearer token
	ModelID string        // Model identifier sent with each request
	Timeout time.Duration // Per-request timeout
}

// DefaultClientConfig returns the client defaults. The API key has no
// default and must come from configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL: "https://api-inference.modelscope.cn/v1",
		ModelID: "Qwen/Qwen2.5-VL-72B-Instruct",
		Timeout: 120 * time.Second,
	}
}

// Client calls an OpenAI-compatible chat-completions endpoint with an image
// and a prompt, returning the raw response text.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates a vision-model client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if config.ModelID == "" {
		return nil, fmt.Errorf("model ID cannot be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultClientConfig().Timeout
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Call implements Caller. Timeouts, HTTP 429 and 5xx responses are wrapped
// as transient so the retry layer can retry them.
func (c *Client) Call(ctx context.Context, imagePNG []byte, prompt string) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(imagePNG)
	reqBody := chatRequest{
		Model: c.config.ModelID,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: []contentPart{{Type: "text", Text: SystemPrompt}},
			},
			{
				Role: "user",
				Content: []contentPart{
					{Type: "image_url", ImageURL: &imageURL{URL: "data:image/png;base64," + encoded}},
					{Type: "text", Text: prompt},
				},
			},
		},
	}

	payload, err := sonic.Marshal(&reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", &TransientError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &TransientError{Err: fmt.Errorf("model endpoint returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model endpoint returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("malformed completion envelope: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", &TransientError{Err: fmt.Errorf("completion contained no choices")}
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
