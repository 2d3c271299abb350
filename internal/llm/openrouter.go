// Package llm provides the OpenRouter client used for image generation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// OpenRouterAPIBase is the default base URL for the OpenRouter API.
	OpenRouterAPIBase = "https://openrouter.ai/api/v1"

	// DefaultModel is the multimodal model used for image generation.
	DefaultModel = "google/gemini-2.5-flash-image-preview"

	// GenerateTimeout bounds a single generation request. Image models
	// under load can take well over a minute.
	GenerateTimeout = 120 * time.Second
)

// OpenRouterClient calls OpenRouter's chat-completions endpoint with
// image-bearing content.
type OpenRouterClient struct {
	apiKey     string
	baseURL    string
	model      string
	referer    string
	title      string
	httpClient *http.Client
}

// OpenRouterConfig configures an OpenRouterClient.
type OpenRouterConfig struct {
	APIKey  string
	BaseURL string // Defaults to OpenRouterAPIBase
	Model   string // Defaults to DefaultModel
	Referer string // HTTP-Referer attribution header
	Title   string // X-Title attribution header
	Timeout time.Duration
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterAPIBase
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = GenerateTimeout
	}
	return &OpenRouterClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		referer: cfg.Referer,
		title:   cfg.Title,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// contentPart is one element of a multimodal user message.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// responseImage is one generated image in the provider response.
// Gemini responses have carried image_url both as a bare string and as
// an {url} object, so it gets a tolerant unmarshaler.
type responseImage struct {
	ImageURL flexibleURL `json:"image_url"`
}

// flexibleURL decodes either a JSON string or an object with a url field.
type flexibleURL struct {
	URL string
}

func (f *flexibleURL) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.URL = s
		return nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	f.URL = obj.URL
	return nil
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string          `json:"content"`
			Images  []responseImage `json:"images,omitempty"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// GenerationResult is the extracted output of a generation request.
type GenerationResult struct {
	// Text is the model's commentary, possibly empty.
	Text string
	// Image is a data URL (or hosted URL) of the generated image,
	// empty when the model returned text only.
	Image string
	// GenerationID is the provider's id for the request.
	GenerationID string
}

// HasImage reports whether the model returned an image payload.
func (r *GenerationResult) HasImage() bool {
	return r.Image != ""
}

// Generate sends a prompt (and optional source image data URL) to the
// multimodal model and extracts the generated image from the response.
func (c *OpenRouterClient) Generate(ctx context.Context, prompt, sourceImageDataURL string) (*GenerationResult, error) {
	content := []contentPart{{Type: "text", Text: prompt}}
	if sourceImageDataURL != "" {
		content = append(content, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: sourceImageDataURL},
		})
	}

	reqBody, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: content}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return ExtractResult(body)
}

// ExtractResult parses a chat-completions response body and pulls out
// the text and the first generated image, checking the field locations
// the provider has been observed to use.
func ExtractResult(body []byte) (*GenerationResult, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Error != nil {
		return nil, fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}

	msg := parsed.Choices[0].Message
	result := &GenerationResult{
		Text:         msg.Content,
		GenerationID: parsed.ID,
	}
	if len(msg.Images) > 0 {
		result.Image = msg.Images[0].ImageURL.URL
	}

	return result, nil
}
