package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"optiscope/internal/domain"
	"optiscope/internal/options"
)

// HistoryPageSize is the number of EOD rows shown per page.
const HistoryPageSize = 10

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2).
			Width(22)

	cardLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	cardValueStyle = lipgloss.NewStyle().
			Bold(true)

	upStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	downStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

// Title renders a section heading.
func Title(s string) string { return titleStyle.Render(s) }

// ErrorBanner renders an inline error message.
func ErrorBanner(err error) string { return errorStyle.Render("Error: " + err.Error()) }

func card(label, value string) string {
	return cardStyle.Render(cardLabelStyle.Render(label) + "\n" + value)
}

// RenderQuoteCards lays out the quote summary as a row of cards.
func RenderQuoteCards(symbol string, q domain.Quote) string {
	change := q.Current - q.PreviousClose
	pct := 0.0
	if q.PreviousClose != 0 {
		pct = change / q.PreviousClose * 100
	}
	changeStyle := upStyle
	if change < 0 {
		changeStyle = downStyle
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Price", cardValueStyle.Render(money(q.Current))),
		card("Change", changeStyle.Render(fmt.Sprintf("%+.2f (%+.2f%%)", change, pct))),
		card("Day range", cardValueStyle.Render(money(q.Low)+" - "+money(q.High))),
		card("Open / Prev", cardValueStyle.Render(money(q.Open)+" / "+money(q.PreviousClose))),
	)
	asOf := time.Unix(q.Timestamp, 0).Format("2006-01-02 15:04")
	return lipgloss.JoinVertical(lipgloss.Left,
		Title(symbol),
		row,
		mutedStyle.Render("as of "+asOf),
	)
}

// RenderCandles renders a candle series as a table, newest session last.
func RenderCandles(c domain.CandleSeries) string {
	if c.Len() == 0 {
		return mutedStyle.Render("no candles")
	}
	rows := make([][]string, 0, c.Len())
	for i := range c.Timestamps {
		rows = append(rows, []string{
			time.Unix(c.Timestamps[i], 0).Format(time.DateOnly),
			money(c.Open[i]),
			money(c.High[i]),
			money(c.Low[i]),
			money(c.Close[i]),
			FormatCount(c.Volume[i]),
		})
	}
	return renderTable([]string{"Date", "Open", "High", "Low", "Close", "Volume"}, rows)
}

// RenderChain renders an aggregated option chain.
func RenderChain(symbol string, right domain.Right, data domain.OptionsData) string {
	exp := ""
	rows := make([][]string, 0, len(data.Options))
	for _, o := range data.Options {
		exp = o.Expiration
		rows = append(rows, []string{
			FormatStrike(o.Strike),
			FormatPrice(o.LastPrice),
			FormatCount(o.Volume),
			FormatCount(o.OpenInterest),
		})
	}
	heading := fmt.Sprintf("%s %s", symbol, strings.ToUpper(string(right)))
	if exp != "" {
		heading += " " + exp
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		Title(heading),
		renderTable([]string{"Strike", "Last", "Volume", "Open Int"}, rows),
	)
}

// RenderFailures lists strikes that could not be priced.
func RenderFailures(failed []options.StrikeResult) string {
	if len(failed) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(errorStyle.Render(fmt.Sprintf("%d strike(s) failed:", len(failed))))
	for _, f := range failed {
		b.WriteString("\n  " + FormatStrike(f.Strike) + ": " + f.Err.Error())
	}
	return b.String()
}

// RenderPriceCards renders the current summary of one contract.
func RenderPriceCards(p domain.OptionPrice) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Last", cardValueStyle.Render(FormatPrice(p.Current.LastPrice))),
		card("Volume", cardValueStyle.Render(FormatCount(p.Current.Volume))),
		card("Open interest", cardValueStyle.Render(FormatCount(p.Current.OpenInterest))),
	)
}

// RenderHistoryPage renders one page of EOD history. page is zero-based and
// clamped to the available range.
func RenderHistoryPage(history []domain.OptionPricePoint, page int) string {
	rows, page, pages := Paginate(history, page, HistoryPageSize)
	if pages == 0 {
		return mutedStyle.Render("no history")
	}
	out := make([][]string, 0, len(rows))
	for _, h := range rows {
		out = append(out, []string{
			h.Date,
			money(h.Open),
			money(h.High),
			money(h.Low),
			money(h.Close),
			FormatCount(h.Volume),
			FormatCount(h.OpenInterest),
		})
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		renderTable([]string{"Date", "Open", "High", "Low", "Close", "Volume", "Open Int"}, out),
		mutedStyle.Render(fmt.Sprintf("page %d of %d", page+1, pages)),
	)
}

// Paginate returns the items on page (zero-based, clamped), the clamped page
// and the page count.
func Paginate[T any](items []T, page, size int) ([]T, int, int) {
	if size < 1 {
		size = 1
	}
	pages := (len(items) + size - 1) / size
	if pages == 0 {
		return nil, 0, 0
	}
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}
	start := page * size
	end := min(start+size, len(items))
	return items[start:end], page, pages
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
