// Package catalog normalizes raw table rows into indexable catalog records.
package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/catalograg/internal/domain"
)

// Source column names read from ingestion tables.
const (
	ColumnID          = "id"
	ColumnName        = "name"
	ColumnDescription = "description"
	ColumnCategory    = "category"
	ColumnBrand       = "brand"
	ColumnPrice       = "current_price"
	ColumnLikes       = "likes_count"
	ColumnIsNew       = "is_new"
)

// Metadata field names as stored in the vector index.
const (
	FieldID       = "id"
	FieldCategory = "category"
	FieldPrice    = "price"
	FieldBrand    = "brand"
	FieldLikes    = "likes_count"
	FieldIsNew    = "is_new"
)

// Row is one raw table row keyed by column name.
type Row map[string]string

// Metadata is the fixed-shape filterable payload of a catalog entry.
type Metadata struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Price      float64 `json:"price"`
	Brand      string  `json:"brand"`
	LikesCount int     `json:"likes_count"`
	IsNew      bool    `json:"is_new"`
}

// Record is a normalized row ready to be embedded and indexed.
// Name is kept outside Metadata for display in answer context.
type Record struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	DocumentText string   `json:"document_text"`
	Metadata     Metadata `json:"metadata"`
}

// EntryID builds the index id of a row: "{source}_{rowIndex}".
func EntryID(source string, rowIndex int) string {
	return source + "_" + strconv.Itoa(rowIndex)
}

// Normalize converts row into a Record. It never fails: malformed numeric and
// boolean fields fall back to zero values and are reported in the returned slice.
func Normalize(id string, row Row) (Record, []error) {
	var issues []error

	price, err := parsePrice(row[ColumnPrice])
	if err != nil {
		issues = append(issues, fieldError(ColumnPrice, row[ColumnPrice]))
	}
	likes, err := parseLikes(row[ColumnLikes])
	if err != nil {
		issues = append(issues, fieldError(ColumnLikes, row[ColumnLikes]))
	}
	isNew, err := parseBool(row[ColumnIsNew])
	if err != nil {
		issues = append(issues, fieldError(ColumnIsNew, row[ColumnIsNew]))
	}

	return Record{
		ID:   id,
		Name: clean(row[ColumnName]),
		DocumentText: documentText(
			row[ColumnName], row[ColumnDescription], row[ColumnCategory], row[ColumnBrand],
		),
		Metadata: Metadata{
			ID:         value(row[ColumnID]),
			Category:   value(row[ColumnCategory]),
			Price:      price,
			Brand:      value(row[ColumnBrand]),
			LikesCount: likes,
			IsNew:      isNew,
		},
	}, issues
}

func fieldError(column, raw string) error {
	return fmt.Errorf("%w: %s=%q", domain.ErrMalformedField, column, raw)
}

// nullTokens are cell values treated as missing, matching common dataframe readers.
var nullTokens = map[string]struct{}{
	"": {}, "nan": {}, "none": {}, "null": {}, "n/a": {}, "na": {}, "<na>": {}, "#n/a": {}, "-nan": {},
}

// IsNull reports whether a raw cell holds no value.
func IsNull(raw string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

func value(raw string) string {
	if IsNull(raw) {
		return ""
	}
	return strings.TrimSpace(raw)
}

func clean(raw string) string {
	return strings.ToLower(value(raw))
}

func documentText(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if c := clean(f); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}

func parsePrice(raw string) (float64, error) {
	if IsNull(raw) {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite price")
	}
	return v, nil
}

func parseLikes(raw string) (int, error) {
	if IsNull(raw) {
		return 0, nil
	}
	s := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	// Integer columns with gaps are often exported as floats ("5.0").
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("not an integer")
	}
	return int(f), nil
}

func parseBool(raw string) (bool, error) {
	if IsNull(raw) {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
		return b, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return false, err
	}
	return f != 0, nil
}

// Tags returns the exact-match fields of m.
func (m Metadata) Tags() map[string]string {
	return map[string]string{
		FieldID:       m.ID,
		FieldCategory: m.Category,
		FieldBrand:    m.Brand,
	}
}

// Numerics returns the range-comparable fields of m. is_new is stored as 0 or 1.
func (m Metadata) Numerics() map[string]float64 {
	isNew := 0.0
	if m.IsNew {
		isNew = 1
	}
	return map[string]float64{
		FieldPrice: m.Price,
		FieldLikes: float64(m.LikesCount),
		FieldIsNew: isNew,
	}
}

// MetadataFromFields rebuilds Metadata from its Tags and Numerics representation.
func MetadataFromFields(tags map[string]string, numerics map[string]float64) Metadata {
	return Metadata{
		ID:         tags[FieldID],
		Category:   tags[FieldCategory],
		Brand:      tags[FieldBrand],
		Price:      numerics[FieldPrice],
		LikesCount: int(numerics[FieldLikes]),
		IsNew:      numerics[FieldIsNew] != 0,
	}
}
