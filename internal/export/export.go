// Package export writes record sets to files people open elsewhere:
// CSV, JSON, or an Excel workbook.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/abelbrown/fmconsole/internal/model"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	XLSX Format = "xlsx"
)

// Column is one exported column. Title heads it; Key is the record field.
type Column struct {
	Key   string
	Title string
}

// FormatFor picks the format from the file extension.
func FormatFor(path string) (Format, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "xlsx":
		return XLSX, nil
	case "":
		return "", fmt.Errorf("export %s: no file extension (want .csv, .json or .xlsx)", path)
	default:
		return "", fmt.Errorf("export %s: unsupported format %q (want .csv, .json or .xlsx)", path, ext)
	}
}

// WriteFile writes records to path in the format its extension names.
// sheet names the worksheet in an xlsx file and is ignored otherwise.
func WriteFile(path, sheet string, cols []Column, records []model.Record) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Write(f, format, sheet, cols, records); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Write encodes records to w. CSV and xlsx hold the given columns; JSON
// holds the full records.
func Write(w io.Writer, format Format, sheet string, cols []Column, records []model.Record) error {
	switch format {
	case CSV:
		return writeCSV(w, cols, records)
	case JSON:
		return writeJSON(w, records)
	case XLSX:
		return writeXLSX(w, sheet, cols, records)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func writeCSV(w io.Writer, cols []Column, records []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(titles(cols)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, len(cols))
	for _, r := range records {
		for i, c := range cols {
			row[i] = model.Text(r.Get(c.Key))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeXLSX(w io.Writer, sheet string, cols []Column, records []model.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	name := SheetName(sheet)
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(cols))
	for i, t := range titles(cols) {
		header[i] = t
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
		return err
	}

	for i, r := range records {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = cellValue(r.Get(c.Key))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// cellValue keeps numbers and booleans typed so spreadsheets can sum and
// filter them.
func cellValue(v any) any {
	if b, ok := v.(bool); ok {
		return b
	}
	if f, ok := model.Number(v); ok {
		return f
	}
	return model.Text(v)
}

func titles(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Title
		if out[i] == "" {
			out[i] = c.Key
		}
	}
	return out
}

// SheetName makes s a valid worksheet name: at most 31 characters, none of
// []:*?/\ and never empty.
func SheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '-'
		}
		return r
	}, strings.TrimSpace(s))
	s = strings.Trim(s, "'")
	if r := []rune(s); len(r) > 31 {
		s = string(r[:31])
	}
	if s == "" {
		return "Sheet1"
	}
	return s
}
