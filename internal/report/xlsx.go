package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/roach88/apiparity/internal/ir"
)

const (
	summarySheet       = "Summary"
	defaultColumnWidth = 14
	wideColumnWidth    = 60

	patternType    = "pattern"
	patternValue   = 1
	failBgColor    = "FFC7CE"
	errorBgColor   = "FFEB9C"
	headerBgColor  = "DDEBF7"
	timestampStyle = "2006-01-02 15:04:05Z07:00"
)

var summaryHeaders = []string{
	"Suite", "Run ID", "Base URL", "Source", "Started", "Finished",
	"Passed", "Failed", "Errored", "Skipped", "Verdict",
}

var resultHeaders = []string{
	"Seq", "Category", "Case", "Label", "Outcome", "Kind", "Message", "Violations", "Elapsed (ms)",
}

// WriteXLSX writes a workbook with a summary sheet and one sheet per
// suite. Failed rows are shaded red and errored rows yellow.
func WriteXLSX(w io.Writer, reports ...*ir.SuiteReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: patternType, Pattern: patternValue, Color: []string{headerBgColor}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	failStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: patternType, Pattern: patternValue, Color: []string{failBgColor}},
	})
	if err != nil {
		return fmt.Errorf("create fail style: %w", err)
	}
	errorStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: patternType, Pattern: patternValue, Color: []string{errorBgColor}},
	})
	if err != nil {
		return fmt.Errorf("create error style: %w", err)
	}

	if err := writeRow(f, summarySheet, 1, toCells(summaryHeaders), header); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "A", "K", defaultColumnWidth); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	row := 2
	for _, r := range reports {
		if r == nil {
			continue
		}
		s := r.Summary
		cells := []any{
			string(r.Suite), r.RunID, r.BaseURL, r.Source,
			r.StartedAt.Format(timestampStyle), r.FinishedAt.Format(timestampStyle),
			s.Passed, s.Failed, s.Errored, s.Skipped, Verdict(s),
		}
		style := 0
		if !s.OK() {
			style = failStyle
		}
		if err := writeRow(f, summarySheet, row, cells, style); err != nil {
			return err
		}
		row++

		sheet := sheetName(f, string(r.Suite))
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := writeRow(f, sheet, 1, toCells(resultHeaders), header); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", "I", defaultColumnWidth); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
		if err := f.SetColWidth(sheet, "G", "H", wideColumnWidth); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}

		for i, o := range r.Outcomes {
			violations := make([]string, len(o.Violations))
			for j, v := range o.Violations {
				violations[j] = v.String()
			}
			cells := []any{
				o.Seq, o.Category, o.CaseID, o.Label, string(o.Status), string(o.Kind),
				o.Message, strings.Join(violations, "\n"), o.Elapsed.Milliseconds(),
			}
			style := 0
			switch o.Status {
			case ir.StatusFail:
				style = failStyle
			case ir.StatusError:
				style = errorStyle
			}
			if err := writeRow(f, sheet, i+2, cells, style); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func toCells(headers []string) []any {
	cells := make([]any, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	return cells
}

// writeRow fills one row from column A; style 0 leaves cells unstyled.
func writeRow(f *excelize.File, sheet string, row int, cells []any, style int) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, start, &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	if style == 0 {
		return nil
	}
	end, err := excelize.CoordinatesToCellName(len(cells), row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, start, end, style)
}

// sheetName returns name, suffixed when a sheet of that name exists.
func sheetName(f *excelize.File, name string) string {
	candidate := name
	for n := 2; ; n++ {
		if idx, _ := f.GetSheetIndex(candidate); idx < 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
}
