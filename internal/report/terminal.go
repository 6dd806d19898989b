package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"socialstats/internal/stats"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

const barWidth = 40

// Terminal prints a summary of each report.
type Terminal struct {
	W io.Writer
	// MaxRows limits the contact table. 0 prints every row.
	MaxRows int
}

func (t Terminal) Render(_ context.Context, r Report) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(r.Name))
	if r.Identity.Name != "" {
		fmt.Fprintf(&b, " %s", dimStyle.Render(identityLine(r)))
	}
	b.WriteString("\n\n")

	if r.Table != nil && r.Table.Rows() > 0 {
		b.WriteString(t.contactTable(r.Table))
		b.WriteString("\n")
	}
	if len(r.Daily) > 0 {
		b.WriteString(dailyLine(r.Daily))
		b.WriteString("\n")
	}
	if r.Hours.Total() > 0 {
		b.WriteString(hourChart(r.Hours))
	}

	if _, err := io.WriteString(t.W, b.String()+"\n"); err != nil {
		return fmt.Errorf("render %s: %w", r.Name, err)
	}
	return nil
}

func identityLine(r Report) string {
	if r.Identity.CreatedAt.IsZero() {
		return fmt.Sprintf("(%s account %s)", r.Identity.Platform, r.Identity.Name)
	}
	return fmt.Sprintf("(%s account %s, created %s)", r.Identity.Platform, r.Identity.Name,
		r.Identity.CreatedAt.Format("2006-01-02"))
}

func (t Terminal) contactTable(st *stats.Table) string {
	order := ByMessages(st)
	if t.MaxRows > 0 && len(order) > t.MaxRows {
		order = order[:t.MaxRows]
	}

	cats := st.Categories()
	rows := make([][]string, 0, len(order))
	for _, i := range order {
		row := make([]string, len(cats))
		for j, c := range cats {
			row[j] = FormatValue(st.Get(c, i))
		}
		rows = append(rows, row)
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(cats...).
		Rows(rows...)
	return tbl.String()
}

func dailyLine(d stats.Daily) string {
	dates := d.Dates()
	var busiest stats.Date
	var most int64
	for _, day := range dates {
		var n int64
		for _, p := range d[day] {
			n += p.Total()
		}
		if n > most {
			busiest, most = day, n
		}
	}
	total := d.Totals()
	return fmt.Sprintf("%s messages (%s sent, %s received) over %d days from %s to %s, busiest %s with %s\n",
		humanize.Comma(total.Total()), humanize.Comma(total.Out), humanize.Comma(total.In),
		len(dates), dates[0], dates[len(dates)-1], busiest, humanize.Comma(most))
}

func hourChart(h stats.Hours) string {
	var peak int64
	for _, v := range h {
		if v > peak {
			peak = v
		}
	}
	var b strings.Builder
	for hour, v := range h {
		n := int(v * barWidth / peak)
		fmt.Fprintf(&b, "%02dh %s %s\n", hour, barStyle.Render(strings.Repeat("█", n)), dimStyle.Render(humanize.Comma(v)))
	}
	return b.String()
}

// FormatValue renders a cell for display: grouped digits for counts and
// hours/minutes/seconds for durations.
func FormatValue(v stats.Value) string {
	switch v.Kind {
	case stats.KindNumber:
		return humanize.Comma(v.Num)
	case stats.KindDuration:
		return FormatDuration(v.Dur)
	default:
		return v.Text
	}
}

// FormatDuration prints d as "1h02m03s", dropping leading zero units.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
