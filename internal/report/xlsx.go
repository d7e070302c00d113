package report

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Renderer turns a projected report into a downloadable document artifact.
type Renderer interface {
	Render(ctx context.Context, rep Report) ([]byte, error)
}

// XLSXRenderer produces an XLSX workbook: one sheet with the itemized table
// and total, one sheet per attached receipt image.
type XLSXRenderer struct {
	logger *slog.Logger
}

func NewXLSXRenderer(logger *slog.Logger) *XLSXRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXRenderer{logger: logger}
}

const reportSheet = "Expense Report"

func (r *XLSXRenderer) Render(_ context.Context, rep Report) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return nil, fmt.Errorf("create report sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headers := []string{"Date", "Category", "Customer/Project", "Description", "Amount"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(reportSheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	row := 2
	for _, line := range rep.Rows {
		values := []any{line.Date, line.Category, line.Project, line.Description, line.Amount.StringFixed(2)}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(reportSheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
		}
		row++
	}

	totalLabel, _ := excelize.CoordinatesToCellName(4, row)
	totalCell, _ := excelize.CoordinatesToCellName(5, row)
	if err := f.SetCellValue(reportSheet, totalLabel, "Total"); err != nil {
		return nil, fmt.Errorf("write total label: %w", err)
	}
	if err := f.SetCellValue(reportSheet, totalCell, rep.Total.StringFixed(2)); err != nil {
		return nil, fmt.Errorf("write total: %w", err)
	}

	for i, rec := range rep.AttachedReceipts {
		sheet := fmt.Sprintf("Receipt %d", i+1)
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create receipt sheet: %w", err)
		}
		if err := f.SetCellValue(sheet, "A1", rec.FileName); err != nil {
			return nil, fmt.Errorf("label receipt sheet: %w", err)
		}
		pic := &excelize.Picture{
			Extension: imageExtension(rec.FileName),
			File:      rec.ImageData,
		}
		if err := f.AddPictureFromBytes(sheet, "A3", pic); err != nil {
			// A corrupt image must not sink the whole report.
			r.logger.Warn("could not embed receipt image", "file_name", rec.FileName, "error", err)
			if err := f.SetCellValue(sheet, "A3", "image unavailable: "+rec.FileName); err != nil {
				return nil, fmt.Errorf("write image placeholder: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}

	r.logger.Info("report rendered",
		"rows", len(rep.Rows),
		"receipts", len(rep.AttachedReceipts),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func imageExtension(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif":
		return ext
	default:
		return ".jpg"
	}
}
