// Package reports renders leads into Excel workbooks and archives them in
// object storage.
package reports

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"webcalc/internal/storage"
)

const (
	leadSheet    = "Lead"
	leadsSheet   = "Leads"
	summarySheet = "Souhrn"
	timeLayout   = "2006-01-02 15:04"
)

var leadHeaders = []string{
	"ID", "Vytvořeno", "Stav", "Zdroj", "Typ projektu", "Doplňky",
	"Jméno", "E-mail", "Telefon", "Firma", "Cena od", "Cena do", "Měna", "Poznámka",
}

func leadRow(l storage.Lead) []any {
	return []any{
		l.ID,
		l.CreatedAt.Format(timeLayout),
		string(l.Status),
		l.Source,
		l.ProjectType,
		strings.Join(l.Addons, ", "),
		l.Name,
		l.Email,
		l.Phone,
		l.Company,
		l.PriceMin,
		l.PriceMax,
		l.Currency,
		l.Note,
	}
}

// LeadFileName returns the workbook name for a single lead export.
func LeadFileName(l storage.Lead) string {
	return fmt.Sprintf("lead_%s_%s.xlsx", l.CreatedAt.Format("20060102_1504"), shortID(l.ID))
}

func LeadsFileName(now time.Time) string {
	return fmt.Sprintf("leads_%s.xlsx", now.UTC().Format("20060102_1504"))
}

// LeadWorkbook renders one lead as a two column card.
func LeadWorkbook(l storage.Lead) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leadSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	for i, value := range leadRow(l) {
		row := i + 1
		if err := f.SetCellValue(leadSheet, fmt.Sprintf("A%d", row), leadHeaders[i]); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(leadSheet, fmt.Sprintf("B%d", row), value); err != nil {
			return nil, err
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	if err := f.SetCellStyle(leadSheet, "A1", fmt.Sprintf("A%d", len(leadHeaders)), style); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(leadSheet, "A", "A", 16)
	_ = f.SetColWidth(leadSheet, "B", "B", 40)

	return writeBuffer(f)
}

// LeadsWorkbook renders a lead list with a per status summary sheet.
func LeadsWorkbook(leads []storage.Lead) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leadsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	for col, header := range leadHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(leadsSheet, cell, header); err != nil {
			return nil, err
		}
	}
	for row, l := range leads {
		for col, value := range leadRow(l) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(leadsSheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(leadHeaders), 1)
	if err := f.SetCellStyle(leadsSheet, "A1", lastHeader, header); err != nil {
		return nil, err
	}
	if err := f.SetPanes(leadsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	if err := writeSummary(f, leads); err != nil {
		return nil, err
	}
	return writeBuffer(f)
}

func writeSummary(f *excelize.File, leads []storage.Lead) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	counts := make(map[storage.Status]int)
	var pipelineMin, pipelineMax int64
	for _, l := range leads {
		counts[l.Status]++
		if l.Status != storage.StatusRejected {
			pipelineMin += l.PriceMin
			pipelineMax += l.PriceMax
		}
	}

	rows := [][]any{{"Stav", "Počet"}}
	for _, s := range storage.Statuses {
		rows = append(rows, []any{string(s), counts[s]})
	}
	rows = append(rows,
		[]any{"Celkem", len(leads)},
		[]any{"Pipeline od", pipelineMin},
		[]any{"Pipeline do", pipelineMax},
	)
	for i, r := range rows {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &r); err != nil {
			return err
		}
	}
	return nil
}

func writeBuffer(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
