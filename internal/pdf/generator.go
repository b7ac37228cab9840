package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/fiscaldesk/pendency-service/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(summary model.PendencySummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, tr("Resumo de Pendências de Fiscalização"), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Contrato %s (%s a %s)",
		summary.Contract.Number,
		formatDate(summary.Contract.StartDate),
		formatDate(summary.Contract.EndDate))), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Gerado em %s", summary.GeneratedAt.Format("02/01/2006 15:04"))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, tr("Situação geral"), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)

	counters := []struct {
		label string
		count int64
	}{
		{"Pendentes", summary.Counters.Pending},
		{"Aguardando análise", summary.Counters.AwaitingReview},
		{"Concluídas", summary.Counters.Concluded},
		{"Canceladas", summary.Counters.Cancelled},
		{"Em atraso", summary.Counters.Overdue},
	}
	for _, counter := range counters {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s: %d", counter.label, counter.count)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, tr("Pendências"), "", 1, "L", false, 0, "")

	headers := []string{"Título", "Vencimento", "Situação"}
	colWidths := []float64{100, 35, 45}
	drawTableRow(pdf, tr, headers, colWidths, true)

	for _, item := range summary.Items {
		row := []string{
			item.Title,
			formatDate(item.DueDate),
			statusLabel(item.Status),
		}
		drawTableRow(pdf, tr, row, colWidths, false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawTableRow(pdf *gofpdf.Fpdf, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont("Arial", style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 {
			align = "C"
		}
		pdf.CellFormat(widths[i], 8, tr(col), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func statusLabel(status model.PendencyStatus) string {
	switch status {
	case model.PendencyStatusPending:
		return "Pendente"
	case model.PendencyStatusAwaitingReview:
		return "Aguardando análise"
	case model.PendencyStatusConcluded:
		return "Concluída"
	case model.PendencyStatusCancelled:
		return "Cancelada"
	default:
		return string(status)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}
