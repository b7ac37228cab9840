package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiscaldesk/pendency-service/internal/model"
)

type ExcelGenerator interface {
	Generate(summary model.PendencySummary) ([]byte, error)
}

type PDFGenerator interface {
	Generate(summary model.PendencySummary) ([]byte, error)
}

// ExportService renders the per-contract pendency summary as a downloadable
// spreadsheet or PDF for administrative reporting.
type ExportService struct {
	pendencies PendencyStore
	contracts  ContractStore
	excel      ExcelGenerator
	pdf        PDFGenerator
}

func NewExportService(
	pendencies PendencyStore,
	contracts ContractStore,
	excel ExcelGenerator,
	pdf PDFGenerator,
) *ExportService {
	return &ExportService{
		pendencies: pendencies,
		contracts:  contracts,
		excel:      excel,
		pdf:        pdf,
	}
}

type ExportResult struct {
	FileName string
	Content  []byte
}

func (s *ExportService) ExportSummary(ctx context.Context, contractID uuid.UUID) (*ExportResult, error) {
	summary, err := s.buildSummary(ctx, contractID)
	if err != nil {
		return nil, err
	}
	content, err := s.excel.Generate(*summary)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: buildExportFileName(summary.Contract, "xlsx"),
		Content:  content,
	}, nil
}

func (s *ExportService) ExportSummaryPDF(ctx context.Context, contractID uuid.UUID) (*ExportResult, error) {
	summary, err := s.buildSummary(ctx, contractID)
	if err != nil {
		return nil, err
	}
	content, err := s.pdf.Generate(*summary)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		FileName: buildExportFileName(summary.Contract, "pdf"),
		Content:  content,
	}, nil
}

func (s *ExportService) buildSummary(ctx context.Context, contractID uuid.UUID) (*model.PendencySummary, error) {
	if contractID == uuid.Nil {
		return nil, fmt.Errorf("%w: contract_id is required", ErrInvalidInput)
	}
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: contract %s", ErrNotFound, contractID)
		}
		return nil, err
	}
	counters, err := s.pendencies.StatusCounters(ctx, &contractID)
	if err != nil {
		return nil, err
	}
	items, err := s.pendencies.ListByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return &model.PendencySummary{
		Contract:    *contract,
		GeneratedAt: time.Now(),
		Counters:    *counters,
		Items:       items,
	}, nil
}

func buildExportFileName(contract model.Contract, ext string) string {
	number := sanitizeFileName(contract.Number)
	if number == "" {
		number = contract.ID.String()
	}
	return fmt.Sprintf("pendencias-%s-%s.%s", number, time.Now().Format("20060102"), ext)
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
