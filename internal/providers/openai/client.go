// Package openai implements the generation provider boundary on the OpenAI
// Images API. Every error crossing this boundary is treated as retryable by
// the lifecycle; the client does not classify failures.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"imagebot/internal/domain"
	"imagebot/internal/infra"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-image-1"
	defaultSize    = "1024x1024"

	// Responses with no URL are returned inline; cap what we are willing to
	// download for edit sources as well.
	maxSourceBytes = 20 << 20
)

// FileResolver turns an opaque stored-file reference (a Telegram file_id)
// into raw image bytes. Remote URLs are downloaded directly and never hit
// the resolver.
type FileResolver interface {
	Resolve(ctx context.Context, fileID string) ([]byte, error)
}

// Options controls how the client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
	Files      FileResolver
}

// Client calls the OpenAI Images endpoints for generation and editing.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
	files      FileResolver
}

// NewClient constructs a provider client, applying defaults for anything
// unset.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     opts.Logger,
		files:      opts.Files,
	}, nil
}

type generationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type generationResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Generate creates an image from a text prompt and returns its result
// reference: the hosted URL when the API provides one, otherwise a data URI
// with the inline payload.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generationRequest{
		Model:  c.model,
		Prompt: prompt,
		N:      1,
		Size:   defaultSize,
	})
	if err != nil {
		return "", fmt.Errorf("openai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// Edit applies a text prompt to a source image. The source reference is
// either a remote URL or a stored-file reference; both are normalized to raw
// bytes before calling the edit endpoint.
func (c *Client) Edit(ctx context.Context, sourceRef, prompt string) (string, error) {
	imageData, err := c.resolveSource(ctx, sourceRef)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", "image.png")
	if err != nil {
		return "", fmt.Errorf("openai: build form: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return "", fmt.Errorf("openai: build form: %w", err)
	}
	for field, value := range map[string]string{
		"model":  c.model,
		"prompt": prompt,
		"n":      "1",
		"size":   defaultSize,
	} {
		if err := form.WriteField(field, value); err != nil {
			return "", fmt.Errorf("openai: build form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("openai: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/edits", &body)
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	return c.do(req)
}

func (c *Client) do(req *http.Request) (string, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrProviderFailure, err)
	}

	var decoded generationResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode response (status %d): %v", domain.ErrProviderFailure, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := "unexpected status"
		if decoded.Error != nil && decoded.Error.Message != "" {
			msg = decoded.Error.Message
		}
		return "", fmt.Errorf("%w: %s (status %d)", domain.ErrProviderFailure, msg, resp.StatusCode)
	}
	if len(decoded.Data) == 0 {
		return "", fmt.Errorf("%w: response contains no images", domain.ErrProviderFailure)
	}

	if url := decoded.Data[0].URL; url != "" {
		return url, nil
	}
	if b64 := decoded.Data[0].B64JSON; b64 != "" {
		return "data:image/png;base64," + b64, nil
	}
	return "", fmt.Errorf("%w: response image has neither url nor payload", domain.ErrProviderFailure)
}

func (c *Client) resolveSource(ctx context.Context, sourceRef string) ([]byte, error) {
	if strings.HasPrefix(sourceRef, "http://") || strings.HasPrefix(sourceRef, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceRef, nil)
		if err != nil {
			return nil, fmt.Errorf("openai: build source request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: download source: %v", domain.ErrProviderFailure, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: download source: status %d", domain.ErrProviderFailure, resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: download source: %v", domain.ErrProviderFailure, err)
		}
		return data, nil
	}

	if c.files == nil {
		return nil, fmt.Errorf("openai: no file resolver configured for source %q", sourceRef)
	}
	data, err := c.files.Resolve(ctx, sourceRef)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve source: %v", domain.ErrProviderFailure, err)
	}
	return data, nil
}

// DecodeDataURI extracts the raw bytes from a base64 data URI result
// reference. The notification sink uses it when a result was returned inline
// rather than hosted.
func DecodeDataURI(ref string) ([]byte, bool) {
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(ref, prefix) {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ref, prefix))
	if err != nil {
		return nil, false
	}
	return data, true
}
