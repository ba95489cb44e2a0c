package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"pocket/internal/core"
)

var csvHeader = []string{"Date", "Title", "Type", "Category", "Payment Method", "Amount", "Notes"}

// CSV writes a header and one line per transaction. Expenses carry a
// negative amount. The period stays out of the file so every record has the
// same columns.
func CSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txs {
		r := toRow(t)
		if err := cw.Write([]string{r.Date, r.Title, r.Type, r.Category, r.PaymentMethod, r.Amount, r.Notes}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
