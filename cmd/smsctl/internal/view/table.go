package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/smsledger/internal/parser"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	debitStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	creditStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	panelStyle  = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

var columns = []string{"Date", "Bank", "Type", "Amount", "Merchant", "Category", "Method", "Conf"}

// Row is one rendered candidate.
type Row []string

// Rows turns candidates into table rows. Candidates below minConfidence are
// highlighted.
func Rows(txs []*parser.ParsedTransaction, minConfidence float64) []Row {
	rows := make([]Row, len(txs))

	for i, tx := range txs {
		amount := FormatAmount(tx.Amount)
		if tx.Direction == parser.DirectionDebit {
			amount = debitStyle.Render("-" + amount)
		} else {
			amount = creditStyle.Render("+" + amount)
		}

		merchant := tx.Merchant
		if merchant == "" {
			merchant = faintStyle.Render("-")
		}

		conf := FormatConfidence(tx.Confidence)
		if tx.Confidence < minConfidence {
			conf = lowStyle.Render(conf)
		}

		rows[i] = Row{
			FormatDate(tx.OccurredAt),
			tx.Bank,
			string(tx.Direction),
			amount,
			merchant,
			tx.Category,
			tx.PaymentMethod,
			conf,
		}
	}

	return rows
}

// RenderTable writes rows under a header, padding each column to its widest
// cell.
func RenderTable(w io.Writer, rows []Row) error {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = lipgloss.Width(c)
	}

	for _, r := range rows {
		for i, cell := range r {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style *lipgloss.Style) string {
		out := make([]string, len(cells))
		for i, cell := range cells {
			if style != nil {
				cell = style.Render(cell)
			}

			out[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}

		return strings.Join(out, "  ")
	}

	if _, err := fmt.Fprintln(w, line(columns, &headerStyle)); err != nil {
		return err
	}

	for _, r := range rows {
		if _, err := fmt.Fprintln(w, line(r, nil)); err != nil {
			return err
		}
	}

	return nil
}

// Summary renders the totals panel shown under the table.
func Summary(txs []*parser.ParsedTransaction, messages int, minConfidence float64) string {
	spent, received := decimal.Zero, decimal.Zero
	high := 0

	for _, tx := range txs {
		if tx.Direction == parser.DirectionDebit {
			spent = spent.Add(tx.Amount)
		} else {
			received = received.Add(tx.Amount)
		}

		if tx.Confidence >= minConfidence {
			high++
		}
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("Messages:     %d", messages),
		fmt.Sprintf("Transactions: %d (%d at or above %s)", len(txs), high, FormatConfidence(minConfidence)),
		"Spent:        "+debitStyle.Render(FormatAmount(spent)),
		"Received:     "+creditStyle.Render(FormatAmount(received)),
	)

	return panelStyle.Render(body)
}
