package db

import (
	"strings"
	"testing"
)

func catalogSchema(algo VectorAlgorithm) *Schema {
	return &Schema{
		Name:   "catalog:product_catalog:idx",
		Prefix: "catalog:product_catalog:",
		Fields: []Field{
			TagField("category"),
			NumericField("price"),
			VectorField("__vector", "vector", VectorSpec{Algorithm: algo, Dim: 384, M: 16, EFConstruction: 200}),
		},
	}
}

func TestSchema_CreateArgs(t *testing.T) {
	tests := []struct {
		name   string
		schema *Schema
		want   string
	}{
		{
			name:   "hnsw with params",
			schema: catalogSchema(VectorHNSW),
			want: "catalog:product_catalog:idx ON HASH PREFIX 1 catalog:product_catalog: SCHEMA " +
				"category TAG CASESENSITIVE price NUMERIC " +
				"__vector AS vector VECTOR HNSW 10 TYPE FLOAT32 DIM 384 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200",
		},
		{
			name:   "flat ignores hnsw params",
			schema: catalogSchema(VectorFlat),
			want: "catalog:product_catalog:idx ON HASH PREFIX 1 catalog:product_catalog: SCHEMA " +
				"category TAG CASESENSITIVE price NUMERIC " +
				"__vector AS vector VECTOR FLAT 6 TYPE FLOAT32 DIM 384 DISTANCE_METRIC COSINE",
		},
		{
			name:   "no prefix and default algorithm",
			schema: &Schema{Name: "idx", Fields: []Field{VectorField("v", "", VectorSpec{Dim: 4})}},
			want:   "idx ON HASH SCHEMA v VECTOR HNSW 6 TYPE FLOAT32 DIM 4 DISTANCE_METRIC COSINE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := tt.schema.CreateArgs()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := strings.Join(args, " "); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr string
	}{
		{name: "empty name", schema: Schema{Fields: []Field{TagField("x")}}, wantErr: "index name is required"},
		{name: "whitespace in name", schema: Schema{Name: "my idx", Fields: []Field{TagField("x")}}, wantErr: "whitespace"},
		{name: "no fields", schema: Schema{Name: "idx"}, wantErr: "at least one field"},
		{name: "unnamed field", schema: Schema{Name: "idx", Fields: []Field{{Kind: KindTag}}}, wantErr: "has no name"},
		{name: "unknown kind", schema: Schema{Name: "idx", Fields: []Field{{Attr: "geo", Kind: "GEO"}}}, wantErr: "unknown kind"},
		{
			name:    "vector without dim",
			schema:  Schema{Name: "idx", Fields: []Field{VectorField("v", "", VectorSpec{})}},
			wantErr: "positive dimension",
		},
		{
			name: "alias shadows tag",
			schema: Schema{Name: "idx", Fields: []Field{
				TagField("vector"),
				VectorField("__vector", "vector", VectorSpec{Dim: 4}),
			}},
			wantErr: `duplicate field name "vector"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseVectorAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    VectorAlgorithm
		wantErr bool
	}{
		{in: "", want: VectorHNSW},
		{in: "hnsw", want: VectorHNSW},
		{in: " Flat ", want: VectorFlat},
		{in: "ivf", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseVectorAlgorithm(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseVectorAlgorithm(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestError(t *testing.T) {
	base := &Error{Op: OpSearch, Target: "catalog:idx", Err: ErrIndexNotFound}
	if got := base.Error(); got != "db: FT.SEARCH catalog:idx: db: index not found" {
		t.Errorf("unexpected message %q", got)
	}
	if !IsCommandError(base, OpSearch) || IsCommandError(base, OpGet) {
		t.Error("IsCommandError must match on op")
	}
	if got := (&Error{Op: OpMulti, Err: ErrKeyNotFound}).Error(); got != "db: MULTI: db: key not found" {
		t.Errorf("unexpected message without target %q", got)
	}
}
