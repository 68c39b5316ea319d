package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DistanceMetric is the vector similarity measure of a VECTOR field.
type DistanceMetric string

// DistanceCosine ranks by 1 - cosine similarity, the only metric the catalog index uses.
const DistanceCosine DistanceMetric = "COSINE"

// VectorAlgorithm is the ANN structure behind a VECTOR field.
type VectorAlgorithm string

// Supported vector algorithms.
const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// ParseVectorAlgorithm accepts the config spelling ("hnsw", "flat"); empty means HNSW.
func ParseVectorAlgorithm(s string) (VectorAlgorithm, error) {
	switch VectorAlgorithm(strings.ToUpper(strings.TrimSpace(s))) {
	case "", VectorHNSW:
		return VectorHNSW, nil
	case VectorFlat:
		return VectorFlat, nil
	default:
		return "", fmt.Errorf("unknown vector algorithm %q", s)
	}
}

// FieldKind is the FT schema type of a field.
type FieldKind string

// Field kinds used by the catalog index.
const (
	KindTag     FieldKind = "TAG"
	KindNumeric FieldKind = "NUMERIC"
	KindVector  FieldKind = "VECTOR"
)

// VectorSpec configures a VECTOR field. Zero M or EFConstruction keep server defaults.
type VectorSpec struct {
	Algorithm      VectorAlgorithm
	Dim            int
	Metric         DistanceMetric
	M              int
	EFConstruction int
}

// Field is one attribute of an index schema. Alias is the name queries use
// when it differs from the hash field.
type Field struct {
	Attr   string
	Alias  string
	Kind   FieldKind
	Vector VectorSpec
}

// TagField is a case-sensitive TAG, so exact-match filters compare values verbatim.
func TagField(attr string) Field { return Field{Attr: attr, Kind: KindTag} }

// NumericField is a NUMERIC attribute usable in range filters.
func NumericField(attr string) Field { return Field{Attr: attr, Kind: KindNumeric} }

// VectorField is a FLOAT32 vector stored under attr and queried as alias.
func VectorField(attr, alias string, spec VectorSpec) Field {
	return Field{Attr: attr, Alias: alias, Kind: KindVector, Vector: spec}
}

// QueryName is the name the field is addressed by in FT.SEARCH.
func (f Field) QueryName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Attr
}

func (f Field) args() []string {
	out := []string{f.Attr}
	if f.Alias != "" {
		out = append(out, "AS", f.Alias)
	}
	switch f.Kind {
	case KindTag:
		return append(out, "TAG", "CASESENSITIVE")
	case KindNumeric:
		return append(out, "NUMERIC")
	}

	spec := f.Vector
	if spec.Algorithm == "" {
		spec.Algorithm = VectorHNSW
	}
	if spec.Metric == "" {
		spec.Metric = DistanceCosine
	}
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(spec.Dim),
		"DISTANCE_METRIC", string(spec.Metric),
	}
	if spec.Algorithm == VectorHNSW {
		if spec.M > 0 {
			attrs = append(attrs, "M", strconv.Itoa(spec.M))
		}
		if spec.EFConstruction > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(spec.EFConstruction))
		}
	}
	out = append(out, "VECTOR", string(spec.Algorithm), strconv.Itoa(len(attrs)))
	return append(out, attrs...)
}

// Schema is an FT index over the HASH keys starting with Prefix.
type Schema struct {
	Name   string
	Prefix string
	Fields []Field
}

// Validate rejects schemas the server would refuse or that would shadow a field.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return errors.New("index name is required")
	}
	if strings.ContainsAny(s.Name, " \t\r\n") {
		return fmt.Errorf("index name %q contains whitespace", s.Name)
	}
	if len(s.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(s.Fields))
	for i, f := range s.Fields {
		if f.Attr == "" {
			return fmt.Errorf("field %d has no name", i)
		}
		switch f.Kind {
		case KindTag, KindNumeric:
		case KindVector:
			if f.Vector.Dim <= 0 {
				return fmt.Errorf("vector field %q requires a positive dimension", f.Attr)
			}
		default:
			return fmt.Errorf("field %q has unknown kind %q", f.Attr, f.Kind)
		}
		name := f.QueryName()
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate field name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// CreateArgs renders the FT.CREATE arguments after the command name.
func (s *Schema) CreateArgs() ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	args := []string{s.Name, "ON", "HASH"}
	if s.Prefix != "" {
		args = append(args, "PREFIX", "1", s.Prefix)
	}
	args = append(args, "SCHEMA")
	for _, f := range s.Fields {
		args = append(args, f.args()...)
	}
	return args, nil
}
