package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fiscaldesk/pendency-service/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(summary model.PendencySummary) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Resumo"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, summary); err != nil {
		return nil, err
	}

	detailSheet := "Pendências"
	file.NewSheet(detailSheet)
	if err := g.writeDetail(file, detailSheet, summary); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, summary model.PendencySummary) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Contrato")
	set("B1", summary.Contract.Number)
	set("A2", "Vigência")
	set("B2", fmt.Sprintf("%s a %s", formatDate(summary.Contract.StartDate), formatDate(summary.Contract.EndDate)))
	set("A3", "Gerado em")
	set("B3", formatDateTime(summary.GeneratedAt))

	tableRow := 5
	set(fmt.Sprintf("A%d", tableRow), "Situação")
	set(fmt.Sprintf("B%d", tableRow), "Quantidade")

	rows := []struct {
		label string
		count int64
	}{
		{"Pendentes", summary.Counters.Pending},
		{"Aguardando análise", summary.Counters.AwaitingReview},
		{"Concluídas", summary.Counters.Concluded},
		{"Canceladas", summary.Counters.Cancelled},
		{"Em atraso", summary.Counters.Overdue},
	}
	for i, row := range rows {
		set(fmt.Sprintf("A%d", tableRow+1+i), row.label)
		set(fmt.Sprintf("B%d", tableRow+1+i), row.count)
	}

	_ = file.SetColWidth(sheet, "A", "A", 30)
	_ = file.SetColWidth(sheet, "B", "B", 24)
	return nil
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, summary model.PendencySummary) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{"Título", "Vencimento", "Situação", "Criada em"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}

	for i, item := range summary.Items {
		row := i + 2
		set(fmt.Sprintf("A%d", row), item.Title)
		set(fmt.Sprintf("B%d", row), formatDate(item.DueDate))
		set(fmt.Sprintf("C%d", row), statusLabel(item.Status))
		set(fmt.Sprintf("D%d", row), formatDate(item.CreatedAt))
	}

	_ = file.SetColWidth(sheet, "A", "A", 40)
	_ = file.SetColWidth(sheet, "B", "D", 18)
	return nil
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

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006 15:04")
}
