// Package view renders datasets, totals and record details with lipgloss.
// It is shared by the list command and the dashboard.
package view

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sipico/covid-counter-client/internal/dataset"
	"github.com/sipico/covid-counter-client/internal/derived"
	"github.com/sipico/covid-counter-client/internal/record"
)

var (
	TitleStyle    = lipgloss.NewStyle().Bold(true)
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	CellStyle     = lipgloss.NewStyle().Padding(0, 1)
	HighStyle     = CellStyle.Foreground(lipgloss.Color("196"))
	LowStyle      = CellStyle.Foreground(lipgloss.Color("42"))
	SelectedStyle = CellStyle.Reverse(true)
	BorderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	ErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	NoticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	MutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// NoRecords is shown in place of an empty table.
const NoRecords = "No records."

// Table renders records with ds's columns. Rows are colored by fatality
// band; selected highlights one row (-1 for none).
func Table(ds dataset.Dataset, records []record.Record, selected int) string {
	if len(records) == 0 {
		return MutedStyle.Render(NoRecords)
	}

	headers := make([]string, len(ds.Columns))
	for i, col := range ds.Columns {
		headers[i] = col.Label
	}

	rows := make([][]string, len(records))
	bands := make([]derived.Band, len(records))
	for i, r := range records {
		cells := make([]string, len(ds.Columns))
		for j, col := range ds.Columns {
			cells[j] = ds.Cell(col, r)
		}
		rows[i] = cells
		bands[i] = ds.Band(r)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(BorderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			style := CellStyle
			if row >= 0 && row < len(bands) {
				switch {
				case row == selected:
					style = SelectedStyle
				case bands[row] == derived.BandHigh:
					style = HighStyle
				case bands[row] == derived.BandLow:
					style = LowStyle
				}
			}
			if col < len(ds.Columns) && ds.Columns[col].Kind != dataset.KindText {
				style = style.Align(lipgloss.Right)
			}
			return style
		})
	return t.String()
}

// Legend explains the row colors, or returns "" for datasets without
// fatality banding.
func Legend(ds dataset.Dataset) string {
	if ds.Rates == nil {
		return ""
	}
	return fmt.Sprintf("%s  %s",
		HighStyle.UnsetPadding().Render(fmt.Sprintf("red: fatality rate above %s", derived.FormatPercent(derived.HighFatality))),
		LowStyle.UnsetPadding().Render(fmt.Sprintf("green: below %s", derived.FormatPercent(derived.LowFatality))),
	)
}

// Totals renders the summary line shown above the country snapshot.
func Totals(t derived.Totals) string {
	return fmt.Sprintf("Confirmed %s · Active %s · Deaths %s · Recovered %s · Countries %s",
		derived.FormatNumber(t.Confirmed),
		derived.FormatNumber(t.Active),
		derived.FormatNumber(t.Deaths),
		derived.FormatNumber(t.Recovered),
		derived.FormatNumber(t.Count),
	)
}

// Detail lists every field of r, key field first, then alphabetical.
func Detail(ds dataset.Dataset, r record.Record) string {
	names := make([]string, 0, len(r))
	for name := range r {
		if name != ds.KeyField {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	if _, ok := r[ds.KeyField]; ok {
		names = append([]string{ds.KeyField}, names...)
	}

	width := 0
	for _, name := range names {
		width = max(width, lipgloss.Width(name)+1)
	}

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%-*s  %s\n", width, name+":", FieldValue(r, name))
	}
	return b.String()
}

// FieldValue formats one raw field for display. Null is shown as "null".
func FieldValue(r record.Record, name string) string {
	v, ok := r[name]
	if !ok || v == nil {
		return "null"
	}
	if r.IsNumeric(name) {
		return derived.FormatNumber(v)
	}
	return fmt.Sprint(v)
}
