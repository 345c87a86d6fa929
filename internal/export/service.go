package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/procurex/rfq-matcher/internal/entity"
)

// Service renders match results as XLSX bytes for handoff to procurement.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// WriteWorkbook returns an XLSX workbook (as bytes) with one row per match
// candidate, grouped under its line item. Items with no candidates still get
// a row so nothing disappears from the quote.
func (s *Service) WriteWorkbook(dueDate *time.Time, reports []entity.MatchReport) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Matches"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Reply By",
		"Requested Item",
		"Requested Part Number",
		"Quantity",
		"Delivery Region",
		"Matched Product",
		"Matched Part Number",
		"Supplier",
		"Supplier Email",
		"Unit Price",
		"Score",
		"Exact PN",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	due := ""
	if dueDate != nil {
		due = dueDate.Format("2006-01-02")
	}

	row := 2
	rows := 0
	for _, rep := range reports {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		writeItem := func() {
			write(1, due)
			write(2, rep.Item.Name)
			write(3, rep.Item.PartNumber)
			write(4, rep.Item.Quantity)
			write(5, rep.Item.DeliveryRegion)
		}

		if len(rep.Candidates) == 0 {
			writeItem()
			note := "no match"
			if rep.Err != nil {
				note = "match failed"
			}
			write(6, note)
			row++
			rows++
			continue
		}

		for _, c := range rep.Candidates {
			writeItem()
			write(6, c.Product.Name)
			write(7, c.Product.PartNumber)
			write(8, c.Product.SupplierName)
			write(9, c.Product.SupplierEmail)
			write(10, c.Product.Price)
			write(11, fmt.Sprintf("%.3f", c.CompositeScore))
			if c.ExactMatch {
				write(12, "yes")
			}
			row++
			rows++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 34)
	_ = f.SetColWidth(sheet, "C", "C", 20)
	_ = f.SetColWidth(sheet, "D", "E", 14)
	_ = f.SetColWidth(sheet, "F", "F", 34)
	_ = f.SetColWidth(sheet, "G", "G", 20)
	_ = f.SetColWidth(sheet, "H", "I", 26)
	_ = f.SetColWidth(sheet, "J", "L", 10)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"items", len(reports),
		"rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
