package export

import (
	"fmt"
	"html/template"
	"io"
	"sync"
	"time"

	"pocket/internal/core"
	appweb "pocket/web"
)

var (
	reportOnce sync.Once
	reportTmpl *template.Template
	reportErr  error
)

func reportTemplate() (*template.Template, error) {
	reportOnce.Do(func() {
		reportTmpl, reportErr = template.ParseFS(appweb.TemplatesFS, "templates/report.html")
	})
	return reportTmpl, reportErr
}

type htmlReport struct {
	Period      Period
	Rows        []row
	Income      core.Money
	Expense     core.Money
	Balance     core.Money
	GeneratedAt time.Time
}

// HTML renders the standalone report page.
func HTML(w io.Writer, txs []core.Transaction, p Period) error {
	tmpl, err := reportTemplate()
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}

	t := totalsOf(txs)
	data := htmlReport{
		Period:      p,
		Rows:        make([]row, 0, len(txs)),
		Income:      t.Income,
		Expense:     t.Expense,
		Balance:     t.Balance,
		GeneratedAt: time.Now(),
	}
	for _, tx := range txs {
		data.Rows = append(data.Rows, toRow(tx))
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
