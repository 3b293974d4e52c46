// Package xlsx renders analytics rows as an Excel workbook.
package xlsx

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

const SheetName = "Analytics"

var headers = map[domain.Locale][]any{
	domain.LocaleRU: {"ID", "Дата", "Пользователь", "Файл", "Модель", "Класс", "Уверенность", "Оценка", "Комментарий", "Архив"},
	domain.LocaleEN: {"ID", "Created at", "User", "File", "Model", "Category", "Confidence", "Rating", "Comment", "Archive job"},
}

// Write streams rows into a single-sheet workbook. Category labels are
// taken from the rows as already localized.
func Write(w io.Writer, rows []domain.AnalyticsRow, locale domain.Locale) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open sheet writer: %w", err)
	}
	if err := sw.SetColWidth(2, 4, 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	header, ok := headers[locale]
	if !ok {
		header = headers[domain.LocaleRU]
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := sw.SetRow(cell, rowValues(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func rowValues(row domain.AnalyticsRow) []any {
	label := row.CategoryLabel
	if label == "" {
		label = string(row.PredictedClass)
	}
	confidence := ""
	if row.Confidence != nil {
		confidence = strconv.FormatFloat(*row.Confidence, 'f', 4, 64)
	}
	rating := ""
	if row.Rating != nil {
		rating = strconv.Itoa(*row.Rating)
	}
	return []any{
		row.ID,
		row.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		row.Login,
		row.Filename,
		row.ModelName,
		label,
		confidence,
		rating,
		row.Comment,
		row.ArchiveJobID,
	}
}
