// Package printing renders bank reconciliation reports as HTML and, when a
// headless Chrome is available, as PDF.
package printing

import (
	"context"
	"fmt"

	appfinance "github.com/erp/finance/internal/application/finance"
	"go.uber.org/zap"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// PDFConverter turns an HTML document into PDF bytes
type PDFConverter interface {
	Convert(ctx context.Context, html string) ([]byte, error)
}

// ReportRenderer renders statement reports. Without a converter, or when
// the converter fails, it returns the HTML document.
type ReportRenderer struct {
	pdf    PDFConverter
	logger *zap.Logger
}

// NewReportRenderer creates a renderer. pdf may be nil.
func NewReportRenderer(pdf PDFConverter, logger *zap.Logger) *ReportRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportRenderer{pdf: pdf, logger: logger}
}

// RenderStatementReport implements the reconciliation service's renderer port
func (r *ReportRenderer) RenderStatementReport(ctx context.Context, report *appfinance.StatementReport) ([]byte, string, error) {
	html, err := renderStatementHTML(report)
	if err != nil {
		return nil, "", fmt.Errorf("render statement report: %w", err)
	}
	if r.pdf == nil {
		return html, ContentTypeHTML, nil
	}

	pdf, err := r.pdf.Convert(ctx, string(html))
	if err != nil {
		r.logger.Warn("pdf conversion failed, serving html report",
			zap.String("statement_id", report.Statement.ID.String()),
			zap.Error(err))
		return html, ContentTypeHTML, nil
	}
	return pdf, ContentTypePDF, nil
}

var _ appfinance.ReportRenderer = (*ReportRenderer)(nil)
