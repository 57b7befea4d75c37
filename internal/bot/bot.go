package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"webcalc/internal/config"
	"webcalc/internal/storage"
)

// sender is the part of the Telegram API the bot talks to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// LeadStore is the lead storage the admin commands work on.
type LeadStore interface {
	GetLeadByID(ctx context.Context, id string) (*storage.Lead, error)
	ListLeads(ctx context.Context, filter storage.LeadFilter) ([]storage.Lead, error)
	UpdateLeadStatus(ctx context.Context, id string, status storage.Status, note string) error
	GetLeadStatistics(ctx context.Context) (*storage.LeadStatistics, error)
}

type commandHandler func(ctx context.Context, chatID int64, args []string)

type Bot struct {
	api       *tgbotapi.BotAPI
	sender    sender
	logger    *zap.Logger
	store     LeadStore
	channelID int64
	adminIDs  map[int64]struct{}
	sendRetry time.Duration
	mu        sync.Mutex
	handlers  map[string]commandHandler
}

func New(tg config.TelegramConfig, admin config.AdminConfig, store LeadStore, logger *zap.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(tg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	botAPI.Debug = tg.Debug

	logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	b := newBot(botAPI, store, logger, tg.ChannelID, admin.IDs, tg.SendRetry)
	b.api = botAPI
	return b, nil
}

func newBot(s sender, store LeadStore, logger *zap.Logger, channelID int64, adminIDs []int64, sendRetry time.Duration) *Bot {
	b := &Bot{
		sender:    s,
		logger:    logger,
		store:     store,
		channelID: channelID,
		adminIDs:  make(map[int64]struct{}, len(adminIDs)),
		sendRetry: sendRetry,
	}
	for _, id := range adminIDs {
		if id != 0 {
			b.adminIDs[id] = struct{}{}
		}
	}
	b.registerHandlers()
	return b
}

func (b *Bot) registerHandlers() {
	b.handlers = map[string]commandHandler{
		CmdStart:  b.handleHelp,
		CmdHelp:   b.handleHelp,
		CmdStats:  b.handleStats,
		CmdLeads:  b.handleLeads,
		CmdExport: b.handleExport,
		CmdStatus: b.handleStatus,
	}
}

// Start long-polls for admin commands until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return fmt.Errorf("bot: polling requires a Telegram API client")
	}
	b.logger.Info("Starting bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down bot")
			b.api.StopReceivingUpdates()
			return nil

		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.mu.Lock()
			if update.Message != nil {
				b.processMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				b.processCallback(ctx, update.CallbackQuery)
			}
			b.mu.Unlock()
		}
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	_, ok := b.adminIDs[userID]
	return ok
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID

	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	if !b.isAdmin(userID) {
		b.logger.Warn("Command from non-admin ignored",
			zap.Int64("user_id", userID),
			zap.String("command", msg.Command()))
		return
	}

	b.logger.Debug("Processing command",
		zap.Int64("chat_id", chatID),
		zap.String("command", msg.Command()))

	handler, ok := b.handlers[msg.Command()]
	if !ok {
		b.sendError(chatID, "Neznámý příkaz. Použijte /help.")
		return
	}
	handler(ctx, chatID, strings.Fields(msg.CommandArguments()))
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err))
	}
}

func (b *Bot) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	b.sendMessage(msg)
}

func (b *Bot) sendError(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, "❌ "+text))
}
