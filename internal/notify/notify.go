// Package notify delivers job outcomes back to the account owner.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"imagebot/internal/domain"
	"imagebot/internal/infra"
	"imagebot/internal/providers/openai"
	"imagebot/internal/telegram"
)

const maxCaptionPrompt = 200

// TelegramSink sends the generated image, or a refund notice, to the chat
// the job came from.
type TelegramSink struct {
	api    *tgbotapi.BotAPI
	logger infra.Logger
}

func NewTelegramSink(client *telegram.Client, logger infra.Logger) *TelegramSink {
	return &TelegramSink{api: client.API(), logger: logger}
}

func (s *TelegramSink) Success(ctx context.Context, account *domain.Account, resultRef, prompt string) error {
	caption := SuccessCaption(prompt)

	var msg tgbotapi.PhotoConfig
	if data, ok := openai.DecodeDataURI(resultRef); ok {
		msg = tgbotapi.NewPhotoUpload(account.TelegramID, tgbotapi.FileBytes{Name: "result.png", Bytes: data})
	} else {
		msg = tgbotapi.NewPhotoShare(account.TelegramID, resultRef)
	}
	msg.Caption = caption

	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("notify: send result: %w", err)
	}
	return nil
}

func (s *TelegramSink) Failure(ctx context.Context, account *domain.Account, refunded int) error {
	msg := tgbotapi.NewMessage(account.TelegramID, FailureText(refunded))
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("notify: send failure notice: %w", err)
	}
	return nil
}

// LogSink records outcomes without delivering anything. The API binary uses
// it so worker wiring stays identical across entrypoints.
type LogSink struct {
	logger infra.Logger
}

func NewLogSink(logger infra.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Success(ctx context.Context, account *domain.Account, resultRef, prompt string) error {
	s.logger.Info().
		Str("account_id", account.ID.String()).
		Str("result_ref", resultRef).
		Msg("job succeeded")
	return nil
}

func (s *LogSink) Failure(ctx context.Context, account *domain.Account, refunded int) error {
	s.logger.Info().
		Str("account_id", account.ID.String()).
		Int("refunded", refunded).
		Msg("job failed, tokens refunded")
	return nil
}

// SuccessCaption formats the photo caption, truncating long prompts.
func SuccessCaption(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > maxCaptionPrompt {
		prompt = string(runes[:maxCaptionPrompt]) + "..."
	}
	return fmt.Sprintf("Image ready!\n\nPrompt: %s", prompt)
}

// FailureText formats the terminal-failure notice with the refunded amount.
func FailureText(refunded int) string {
	return fmt.Sprintf("Generation failed after several attempts. %d tokens have been refunded to your balance.", refunded)
}
