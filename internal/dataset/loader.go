// Package dataset reads bulk import files into ImportRecords and writes item
// exports. CSV, JSONL and Parquet are supported for import; CSV and Parquet
// for export.
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/shelver/internal/models"
)

// Format is a bulk file format
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
	FormatParquet Format = "parquet"
)

// header aliases, compared after normalizeHeader
var (
	packageAliases = []string{"package_id", "pallet_no", "package", "pallet"}
	serialAliases  = []string{"serial", "serial_code", "serial_no", "serial_number"}
)

// FormatFromPath picks a format by file extension
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".jsonl", ".json", ".ndjson":
		return FormatJSONL, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported file format: %s (supported: .csv, .jsonl, .parquet)", ext)
	}
}

// Loader reads one import file
type Loader struct {
	path string
}

// NewLoader creates a new loader for the file at path
func NewLoader(path string) *Loader {
	return &Loader{
		path: path,
	}
}

// Load reads every usable record from the file. Rows with an empty package
// id or serial are skipped.
func (l *Loader) Load() ([]models.ImportRecord, error) {
	format, err := FormatFromPath(l.path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Opening import file", "path", l.path, "format", format)
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	records, err := Read(file, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.path, err)
	}
	slog.Debug("Finished reading import file", "path", l.path, "records", len(records))
	return records, nil
}

// Read parses records of the given format from r
func Read(r io.Reader, format Format) ([]models.ImportRecord, error) {
	switch format {
	case FormatCSV:
		return readCSV(r)
	case FormatJSONL:
		return readJSONL(r)
	case FormatParquet:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet data: %w", err)
		}
		return readParquet(bytes.NewReader(data), int64(len(data)))
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}
}

// LoadAll reads several files in parallel and concatenates their records in
// the order the paths were given
func LoadAll(ctx context.Context, paths []string) ([]models.ImportRecord, error) {
	results := make([][]models.ImportRecord, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, err := NewLoader(path).Load()
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.ImportRecord
	for _, records := range results {
		out = append(out, records...)
	}
	return out, nil
}

func readCSV(r io.Reader) ([]models.ImportRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []models.ImportRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	pkgCol, serialCol := -1, -1
	for i, h := range header {
		name := normalizeHeader(h)
		if pkgCol < 0 && slices.Contains(packageAliases, name) {
			pkgCol = i
		}
		if serialCol < 0 && slices.Contains(serialAliases, name) {
			serialCol = i
		}
	}
	if pkgCol < 0 || serialCol < 0 {
		return nil, fmt.Errorf("CSV header must name a package column (pallet_no) and a serial column (serial_code), got %v", header)
	}

	records := []models.ImportRecord{}
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV at line %d: %w", line, err)
		}
		if rec, ok := makeRecord(field(row, pkgCol), field(row, serialCol)); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func readJSONL(r io.Reader) ([]models.ImportRecord, error) {
	scanner := bufio.NewScanner(r)
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	records := []models.ImportRecord{}
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var row map[string]any
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		fields := make(map[string]string, len(row))
		for k, v := range row {
			fields[normalizeHeader(k)] = scalar(v)
		}
		if rec, ok := makeRecord(pick(fields, packageAliases), pick(fields, serialAliases)); ok {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading JSONL: %w", err)
	}
	return records, nil
}

func readParquet(r io.ReaderAt, size int64) ([]models.ImportRecord, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	schema := pf.Schema()
	pkgCol, serialCol := -1, -1
	names := make([]string, 0, len(schema.Fields()))
	for _, f := range schema.Fields() {
		names = append(names, f.Name())
		if !f.Leaf() {
			continue
		}
		leaf, ok := schema.Lookup(f.Name())
		if !ok {
			continue
		}
		name := normalizeHeader(f.Name())
		if pkgCol < 0 && slices.Contains(packageAliases, name) {
			pkgCol = leaf.ColumnIndex
		}
		if serialCol < 0 && slices.Contains(serialAliases, name) {
			serialCol = leaf.ColumnIndex
		}
	}
	if pkgCol < 0 || serialCol < 0 {
		return nil, fmt.Errorf("parquet schema must name a package column (pallet_no) and a serial column (serial_code), got %v", names)
	}

	records := []models.ImportRecord{}
	buf := make([]parquet.Row, 128)
	for _, rg := range pf.RowGroups() {
		if err := readParquetRows(rg.Rows(), buf, pkgCol, serialCol, &records); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func readParquetRows(rows parquet.Rows, buf []parquet.Row, pkgCol, serialCol int, records *[]models.ImportRecord) error {
	defer rows.Close()
	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			var pkg, serial string
			for _, v := range row {
				switch v.Column() {
				case pkgCol:
					pkg = parquetString(v)
				case serialCol:
					serial = parquetString(v)
				}
			}
			if rec, ok := makeRecord(pkg, serial); ok {
				*records = append(*records, rec)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
}

// parquetString renders a cell the way it would appear in a CSV column
func parquetString(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	}
	return v.String()
}

func makeRecord(pkg, serial string) (models.ImportRecord, bool) {
	pkg = strings.TrimSpace(pkg)
	serial = strings.TrimSpace(serial)
	if pkg == "" || serial == "" {
		return models.ImportRecord{}, false
	}
	return models.ImportRecord{PackageID: pkg, Serial: serial}, true
}

// normalizeHeader maps "Pallet No", "pallet-no" and "PALLET_NO" to "pallet_no"
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

// pick returns the first non-empty value under any of the aliases, in alias order
func pick(fields map[string]string, aliases []string) string {
	for _, a := range aliases {
		if v := strings.TrimSpace(fields[a]); v != "" {
			return v
		}
	}
	return ""
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
