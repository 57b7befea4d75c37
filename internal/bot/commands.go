package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"webcalc/internal/reports"
	"webcalc/internal/storage"
)

const (
	CmdStart  = "start"
	CmdHelp   = "help"
	CmdStats  = "stats"
	CmdLeads  = "leads"
	CmdExport = "export"
	CmdStatus = "status"

	recentLeadsLimit = 10
	exportLimit      = 5000
)

const helpText = `<b>Kalkulačka: administrace</b>

/stats - statistika poptávek
/leads - posledních 10 poptávek
/export - všechny poptávky v Excelu
/export &lt;id&gt; - jedna poptávka v Excelu
/status &lt;id&gt; &lt;new|contacted|converted|rejected&gt; [poznámka] - změna stavu`

func (b *Bot) handleHelp(_ context.Context, chatID int64, _ []string) {
	b.sendHTML(chatID, helpText)
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, _ []string) {
	stats, err := b.store.GetLeadStatistics(ctx)
	if err != nil {
		b.logger.Error("Failed to get lead statistics", zap.Error(err))
		b.sendError(chatID, "Statistiku se nepodařilo načíst")
		return
	}
	b.sendHTML(chatID, FormatStats(stats))
}

func (b *Bot) handleLeads(ctx context.Context, chatID int64, _ []string) {
	leads, err := b.store.ListLeads(ctx, storage.LeadFilter{Limit: recentLeadsLimit})
	if err != nil {
		b.logger.Error("Failed to list leads", zap.Error(err))
		b.sendError(chatID, "Poptávky se nepodařilo načíst")
		return
	}
	b.sendHTML(chatID, FormatLeadList(leads))
}

func (b *Bot) handleExport(ctx context.Context, chatID int64, args []string) {
	if len(args) > 0 {
		b.exportSingleLead(ctx, chatID, args[0])
		return
	}

	leads, err := b.store.ListLeads(ctx, storage.LeadFilter{Limit: exportLimit})
	if err != nil {
		b.logger.Error("Failed to list leads for export", zap.Error(err))
		b.sendError(chatID, "Export se nezdařil")
		return
	}
	data, err := reports.LeadsWorkbook(leads)
	if err != nil {
		b.logger.Error("Failed to export leads", zap.Error(err))
		b.sendError(chatID, "Export se nezdařil")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  reports.LeadsFileName(time.Now()),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("📊 Export poptávek (%d)", len(leads))
	b.sendDocument(chatID, doc)
}

func (b *Bot) exportSingleLead(ctx context.Context, chatID int64, id string) {
	lead, err := b.store.GetLeadByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrLeadNotFound) {
			b.sendError(chatID, "Poptávka nenalezena")
			return
		}
		b.logger.Error("Failed to get lead", zap.String("lead_id", id), zap.Error(err))
		b.sendError(chatID, "Poptávku se nepodařilo načíst")
		return
	}

	data, err := reports.LeadWorkbook(*lead)
	if err != nil {
		b.logger.Error("Failed to export lead", zap.String("lead_id", id), zap.Error(err))
		b.sendError(chatID, "Export se nezdařil")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: reports.LeadFileName(*lead), Bytes: data})
	doc.Caption = fmt.Sprintf("📊 Poptávka %s", lead.Name)
	b.sendDocument(chatID, doc)
}

func (b *Bot) sendDocument(chatID int64, doc tgbotapi.DocumentConfig) {
	if _, err := b.sender.Send(doc); err != nil {
		b.logger.Error("Failed to send Excel file", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendError(chatID, "Soubor se nepodařilo odeslat")
	}
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		b.sendError(chatID, "Použití: /status <id> <new|contacted|converted|rejected> [poznámka]")
		return
	}
	id, status := args[0], storage.Status(args[1])
	note := strings.Join(args[2:], " ")

	if err := b.updateStatus(ctx, id, status, note); err != nil {
		b.sendError(chatID, statusErrorText(err))
		return
	}
	b.sendHTML(chatID, fmt.Sprintf("✅ Stav poptávky <code>%s</code> změněn na: %s", id, StatusLabel(status)))
}

func (b *Bot) updateStatus(ctx context.Context, id string, status storage.Status, note string) error {
	if !status.Valid() {
		return storage.ErrInvalidStatus
	}
	if err := b.store.UpdateLeadStatus(ctx, id, status, note); err != nil {
		if !errors.Is(err, storage.ErrLeadNotFound) {
			b.logger.Error("Failed to update lead status",
				zap.String("lead_id", id),
				zap.String("status", string(status)),
				zap.Error(err))
		}
		return err
	}
	b.logger.Info("Lead status updated",
		zap.String("lead_id", id),
		zap.String("status", string(status)))
	return nil
}

func statusErrorText(err error) string {
	switch {
	case errors.Is(err, storage.ErrInvalidStatus):
		return "Neplatný stav. Povolené hodnoty: new, contacted, converted, rejected"
	case errors.Is(err, storage.ErrLeadNotFound):
		return "Poptávka nenalezena"
	default:
		return "Stav se nepodařilo změnit"
	}
}
