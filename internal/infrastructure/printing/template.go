package printing

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.html
var templateFS embed.FS

var statementTemplate = template.Must(
	template.New("statement_report.html").
		Funcs(template.FuncMap{
			"money": formatMoney,
			"date":  formatDate,
			"stamp": formatTimestamp,
		}).
		ParseFS(templateFS, "templates/statement_report.html"),
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// formatMoney renders 1234.5 as "1.234,50"
func formatMoney(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return brl.Sprint(number.Decimal(f, number.Scale(2)))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func formatTimestamp(t time.Time) string {
	return t.Format("02/01/2006 15:04 MST")
}

func renderStatementHTML(report *appfinance.StatementReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := statementTemplate.Execute(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
