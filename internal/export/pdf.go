package export

import (
	"fmt"
	"io"

	"github.com/phpdave11/gofpdf"

	"pocket/internal/core"
)

// column widths in mm, A4 portrait leaves 190mm between margins
var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 24, "L"},
	{"Title", 52, "L"},
	{"Category", 34, "L"},
	{"Payment", 30, "L"},
	{"Type", 20, "L"},
	{"Amount", 30, "R"},
}

// PDF renders a printable statement with totals and one line per transaction.
func PDF(w io.Writer, txs []core.Transaction, p Period) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Transactions - "+p.Label), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Transactions")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	subtitle := p.Label
	if p.HasRange() {
		subtitle += fmt.Sprintf(" (%s to %s)", p.From.Format(dateLayout), p.To.Format(dateLayout))
	}
	pdf.Cell(0, 8, tr(subtitle))
	pdf.Ln(10)

	t := totalsOf(txs)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(63, 8, "Income: "+t.Income.String())
	pdf.Cell(63, 8, "Expense: "+t.Expense.String())
	pdf.Cell(64, 8, "Balance: "+t.Balance.String())
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(228, 231, 235)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, 7, c.title, "B", 0, c.align, true, 0, "")
	}
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 10)
	for _, tx := range txs {
		r := toRow(tx)
		cells := []string{r.Date, truncate(r.Title, 30), truncate(r.Category, 20), truncate(r.PaymentMethod, 16), r.Type, r.Amount}
		for i, c := range pdfColumns {
			pdf.CellFormat(c.width, 6, tr(cells[i]), "", 0, c.align, false, 0, "")
		}
		pdf.Ln(6)
	}
	if len(txs) == 0 {
		pdf.Cell(0, 8, "No transactions in this period.")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
