package resource

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportColumns are the columns of a CSV/XLSX export, in order. Columns that
// are not top-level rep fields are read from the nested profile.
var ExportColumns = []string{
	"first_name",
	"last_name",
	"fullname",
	"email",
	"display_name",
	"city",
	"region",
	"country",
	"irc_name",
	"resource_uri",
}

const exportSheet = "Reps"

// ExportFilename names an export file after the as-of date, e.g.
// reps-export-2012-03-01.csv. The date is formatted in asOf's location.
func ExportFilename(asOf time.Time, format Format) string {
	return "reps-export-" + asOf.Format(time.DateOnly) + "." + string(format)
}

// ContentType returns the MIME type of an export format.
func ContentType(format Format) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// ExportRows flattens projected objects into string rows (no header).
// Fields the projection left out become empty cells, so exports hide exactly
// what the JSON hides.
func ExportRows(objects []Object) [][]string {
	rows := make([][]string, 0, len(objects))
	for _, obj := range objects {
		profile, _ := obj.Get("profile")
		nested, _ := profile.(Object)

		row := make([]string, len(ExportColumns))
		for i, col := range ExportColumns {
			v, ok := obj.Get(col)
			if !ok && col != "resource_uri" {
				v, _ = nested.Get(col)
			}
			row[i] = cellString(v)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteExport writes objects in format to w.
func WriteExport(w io.Writer, format Format, objects []Object) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, objects)
	case FormatXLSX:
		return WriteXLSX(w, objects)
	default:
		return fmt.Errorf("resource: %q is not an export format", format)
	}
}

// WriteCSV writes a header row followed by one row per object.
func WriteCSV(w io.Writer, objects []Object) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return fmt.Errorf("resource: writing csv header: %w", err)
	}
	if err := cw.WriteAll(ExportRows(objects)); err != nil {
		return fmt.Errorf("resource: writing csv rows: %w", err)
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook with a bold header row.
//
// The stream writer keeps memory flat for large exports: rows go straight
// to the sheet XML instead of being held in the cell model.
func WriteXLSX(w io.Writer, objects []Object) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("resource: naming sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("resource: creating header style: %w", err)
	}

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return fmt.Errorf("resource: opening stream writer: %w", err)
	}

	header := make([]any, len(ExportColumns))
	for i, col := range ExportColumns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: col}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("resource: writing xlsx header: %w", err)
	}

	for i, row := range ExportRows(objects) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("resource: writing xlsx row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("resource: flushing xlsx: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("resource: writing xlsx: %w", err)
	}
	return nil
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
