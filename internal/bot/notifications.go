package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"webcalc/internal/storage"
)

const callbackStatusPrefix = "status:"

// NotifyNewLead posts the lead to the channel and to every admin chat. Each
// send is retried with exponential backoff for up to the configured period.
func (b *Bot) NotifyNewLead(ctx context.Context, lead storage.Lead) error {
	text := FormatLeadNotification(lead)

	var errs []error
	if b.channelID != 0 {
		msg := tgbotapi.NewMessage(b.channelID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if err := b.sendWithRetry(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("channel %d: %w", b.channelID, err))
		}
	}

	adminIDs := lo.Keys(b.adminIDs)
	slices.Sort(adminIDs)
	for _, adminID := range adminIDs {
		msg := tgbotapi.NewMessage(adminID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = statusKeyboard(lead.ID)
		if err := b.sendWithRetry(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("admin %d: %w", adminID, err))
		}
	}

	if b.channelID == 0 && len(b.adminIDs) == 0 {
		b.logger.Warn("Lead notifications disabled - no channel or admin configured")
	}
	return errors.Join(errs...)
}

func (b *Bot) sendWithRetry(ctx context.Context, msg tgbotapi.MessageConfig) error {
	var retryPolicy backoff.BackOff = &backoff.StopBackOff{}
	if b.sendRetry > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = 500 * time.Millisecond
		exp.MaxElapsedTime = b.sendRetry
		retryPolicy = exp
	}

	return backoff.RetryNotify(
		func() error {
			_, err := b.sender.Send(msg)
			return err
		},
		backoff.WithContext(retryPolicy, ctx),
		func(err error, next time.Duration) {
			b.logger.Warn("Telegram send failed, retrying...",
				zap.Int64("chat_id", msg.ChatID),
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
}

func statusKeyboard(leadID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📞 Kontaktováno", callbackStatusPrefix+leadID+":"+string(storage.StatusContacted)),
			tgbotapi.NewInlineKeyboardButtonData("✅ Zakázka", callbackStatusPrefix+leadID+":"+string(storage.StatusConverted)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Zamítnout", callbackStatusPrefix+leadID+":"+string(storage.StatusRejected)),
		),
	)
}

// processCallback handles the status buttons attached to lead notifications.
func (b *Bot) processCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	answer := func(text string) {
		if _, err := b.sender.Request(tgbotapi.NewCallback(callback.ID, text)); err != nil {
			b.logger.Warn("Failed to answer callback", zap.Error(err))
		}
	}

	if callback.From == nil || !b.isAdmin(callback.From.ID) {
		answer("Nemáte oprávnění")
		return
	}

	payload, ok := strings.CutPrefix(callback.Data, callbackStatusPrefix)
	if !ok {
		answer("")
		return
	}
	id, status, ok := strings.Cut(payload, ":")
	if !ok {
		answer("")
		return
	}

	if err := b.updateStatus(ctx, id, storage.Status(status), ""); err != nil {
		answer(statusErrorText(err))
		return
	}
	answer("Stav: " + StatusLabel(storage.Status(status)))
}
