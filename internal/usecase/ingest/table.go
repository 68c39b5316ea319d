package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
)

// Supported table file extensions.
const (
	ExtCSV     = ".csv"
	ExtParquet = ".parquet"
)

const parquetReadBatch = 1000

// Table is a fully read tabular file. Rows keep their file order.
type Table struct {
	Name    string
	Columns []string
	Rows    []catalog.Row
}

// Source returns the id namespace of the table: its file name without extension.
func (t Table) Source() string {
	return SourceID(t.Name)
}

// SourceID strips directories and the extension from a file name.
func SourceID(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsTableFile reports whether name has a supported extension.
func IsTableFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtCSV, ExtParquet:
		return true
	}
	return false
}

// ReadFile reads a .csv or .parquet table from disk.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Table{}, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	return ReadTable(f, filepath.Base(path))
}

// ReadTable reads a table from r, picking the format from name's extension.
func ReadTable(r io.Reader, name string) (Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtCSV:
		return readCSV(r, name)
	case ExtParquet:
		return readParquet(r, name)
	default:
		return Table{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, name)
	}
}

func readCSV(r io.Reader, name string) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{Name: name}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := Table{Name: name, Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read csv: %w", err)
		}
		row := make(catalog.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func readParquet(r io.Reader, name string) (Table, error) {
	var ra io.ReaderAt
	var size int64

	if f, ok := r.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return Table{}, fmt.Errorf("stat: %w", err)
		}
		ra, size = f, stat.Size()
	} else {
		data, err := io.ReadAll(r)
		if err != nil {
			return Table{}, fmt.Errorf("read parquet: %w", err)
		}
		ra, size = bytes.NewReader(data), int64(len(data))
	}

	pf, err := parquet.OpenFile(ra, size)
	if err != nil {
		return Table{}, fmt.Errorf("open parquet: %w", err)
	}

	// Leaf column index -> top-level column name.
	leaves := pf.Schema().Columns()
	names := make([]string, len(leaves))
	t := Table{Name: name}
	seen := make(map[string]bool, len(leaves))
	for i, path := range leaves {
		if len(path) == 0 {
			continue
		}
		names[i] = path[0]
		if !seen[path[0]] {
			seen[path[0]] = true
			t.Columns = append(t.Columns, path[0])
		}
	}

	buf := make([]parquet.Row, parquetReadBatch)
	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		for {
			n, readErr := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				t.Rows = append(t.Rows, parquetRow(buf[i], names))
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return Table{}, fmt.Errorf("read parquet rows: %w", readErr)
			}
		}
	}
	return t, nil
}

// parquetRow flattens a generic row. Repeated leaves are joined with ", ".
func parquetRow(row parquet.Row, names []string) catalog.Row {
	out := make(catalog.Row, len(names))
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(names) || names[col] == "" || v.IsNull() {
			continue
		}
		s := formatValue(v)
		if prev, ok := out[names[col]]; ok && prev != "" {
			s = prev + ", " + s
		}
		out[names[col]] = s
	}
	return out
}

func formatValue(v parquet.Value) string {
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
