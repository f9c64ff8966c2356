// Package telegram wraps the Bot API client shared by the bot loop, the
// notification sink and the edit-source file resolver.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"imagebot/internal/infra"
)

const maxFileBytes = 20 << 20

// Client owns one authenticated Bot API session.
type Client struct {
	api        *tgbotapi.BotAPI
	httpClient *http.Client
	logger     infra.Logger
}

// NewClient authenticates against the Bot API.
func NewClient(token string, logger infra.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: authenticate: %w", err)
	}
	logger.Info().Str("username", api.Self.UserName).Msg("telegram bot authenticated")
	return &Client{
		api:        api,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}, nil
}

// API exposes the underlying Bot API client for the bot loop and the sink.
func (c *Client) API() *tgbotapi.BotAPI {
	return c.api
}

// Resolve downloads the file behind a Telegram file_id. It implements the
// provider's FileResolver so edit jobs can use photos sent to the bot as
// their source.
func (c *Client) Resolve(ctx context.Context, fileID string) ([]byte, error) {
	url, err := c.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("telegram: resolve file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram: download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileBytes))
	if err != nil {
		return nil, fmt.Errorf("telegram: download file: %w", err)
	}
	return data, nil
}
