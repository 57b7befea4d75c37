package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"webcalc/internal/storage"
)

var statusLabels = map[storage.Status]string{
	storage.StatusNew:       "🆕 Nová",
	storage.StatusContacted: "📞 Kontaktováno",
	storage.StatusConverted: "✅ Zakázka",
	storage.StatusRejected:  "❌ Zamítnuto",
}

func StatusLabel(s storage.Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// FormatPrice groups thousands with spaces: 28521 -> "28 521".
func FormatPrice(amount int64) string {
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

func currencySymbol(code string) string {
	if code == "CZK" {
		return "Kč"
	}
	return code
}

func formatRange(lo, hi int64, currency string) string {
	return fmt.Sprintf("%s – %s %s", FormatPrice(lo), FormatPrice(hi), currencySymbol(currency))
}

func FormatLeadNotification(l storage.Lead) string {
	var b strings.Builder
	b.WriteString("🆕 <b>Nová poptávka z kalkulačky</b>\n\n")
	fmt.Fprintf(&b, "Projekt: <b>%s</b>\n", html.EscapeString(l.ProjectType))
	if len(l.Addons) > 0 {
		fmt.Fprintf(&b, "Doplňky: %s\n", html.EscapeString(strings.Join(l.Addons, ", ")))
	}
	fmt.Fprintf(&b, "Odhad: %s\n\n", formatRange(l.PriceMin, l.PriceMax, l.Currency))
	fmt.Fprintf(&b, "Jméno: %s\n", html.EscapeString(l.Name))
	fmt.Fprintf(&b, "E-mail: %s\n", html.EscapeString(l.Email))
	if l.Phone != "" {
		fmt.Fprintf(&b, "Telefon: %s\n", html.EscapeString(l.Phone))
	}
	if l.Company != "" {
		fmt.Fprintf(&b, "Firma: %s\n", html.EscapeString(l.Company))
	}
	fmt.Fprintf(&b, "\nID: <code>%s</code>", l.ID)
	return b.String()
}

func FormatStats(s *storage.LeadStatistics) string {
	return fmt.Sprintf(
		"📊 <b>Statistika poptávek</b>\n\n"+
			"📌 Celkem: %d\n"+
			"📅 Dnes: %d\n"+
			"📅 Za týden: %d\n"+
			"📅 Za měsíc: %d\n"+
			"💰 Pipeline: %s – %s Kč\n\n"+
			"📌 Podle stavu:\n"+
			"%s: %d\n%s: %d\n%s: %d\n%s: %d",
		s.TotalLeads,
		s.TodayLeads,
		s.WeekLeads,
		s.MonthLeads,
		FormatPrice(s.PipelineMin), FormatPrice(s.PipelineMax),
		StatusLabel(storage.StatusNew), s.StatusCounts[string(storage.StatusNew)],
		StatusLabel(storage.StatusContacted), s.StatusCounts[string(storage.StatusContacted)],
		StatusLabel(storage.StatusConverted), s.StatusCounts[string(storage.StatusConverted)],
		StatusLabel(storage.StatusRejected), s.StatusCounts[string(storage.StatusRejected)],
	)
}

func FormatLeadList(leads []storage.Lead) string {
	if len(leads) == 0 {
		return "Zatím žádné poptávky."
	}
	var b strings.Builder
	b.WriteString("<b>Poslední poptávky</b>\n")
	for _, l := range leads {
		fmt.Fprintf(&b, "\n%s %s · %s · %s\n<code>%s</code>\n",
			l.CreatedAt.Format("02.01. 15:04"),
			html.EscapeString(l.Name),
			html.EscapeString(l.ProjectType),
			StatusLabel(l.Status),
			l.ID,
		)
	}
	return b.String()
}
