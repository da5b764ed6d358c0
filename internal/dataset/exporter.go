package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/shelver/internal/models"
)

// ExportRow is the flat shape items are exported in. Placement columns are
// empty for unplaced items.
type ExportRow struct {
	Serial    string `parquet:"serial"`
	PackageID string `parquet:"package_id"`
	Section   string `parquet:"section,optional"`
	Row       *int64 `parquet:"row_number,optional"`
	Column    *int64 `parquet:"column_number,optional"`
	PlacedAt  string `parquet:"placed_at,optional"`
	CreatedAt string `parquet:"created_at"`
	UpdatedAt string `parquet:"updated_at"`
}

var csvHeader = []string{"serial", "package_id", "section", "row_number", "column_number", "placed_at", "created_at", "updated_at"}

// ExportFormats lists the formats WriteItems accepts
var ExportFormats = []Format{FormatCSV, FormatParquet}

// ContentType returns the MIME type of an export format
func ContentType(format Format) string {
	switch format {
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "text/csv"
	}
}

// ToExportRows flattens items, keeping their order
func ToExportRows(items []models.Item) []ExportRow {
	rows := make([]ExportRow, len(items))
	for i, it := range items {
		row := ExportRow{
			Serial:    it.Serial,
			PackageID: it.PackageID,
			CreatedAt: it.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt: it.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if p := it.Placement; p != nil {
			row.Section = p.Section
			r := int64(p.Row)
			row.Row = &r
			if p.Column != nil {
				c := int64(*p.Column)
				row.Column = &c
			}
		}
		if it.PlacedAt != nil {
			row.PlacedAt = it.PlacedAt.UTC().Format(time.RFC3339)
		}
		rows[i] = row
	}
	return rows
}

// WriteItems writes items to w in the given format
func WriteItems(w io.Writer, format Format, items []models.Item) error {
	rows := ToExportRows(items)
	switch format {
	case FormatCSV:
		return writeCSV(w, rows)
	case FormatParquet:
		return writeParquet(w, rows)
	default:
		return fmt.Errorf("unsupported export format: %q (supported: csv, parquet)", format)
	}
}

func writeCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rows {
		record := []string{r.Serial, r.PackageID, r.Section, optInt(r.Row), optInt(r.Column), r.PlacedAt, r.CreatedAt, r.UpdatedAt}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeParquet(w io.Writer, rows []ExportRow) error {
	pw := parquet.NewGenericWriter[ExportRow](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func optInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
