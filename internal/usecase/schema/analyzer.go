// Package schema profiles catalog tables and asks the language model to describe them.
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
	"github.com/kailas-cloud/catalograg/internal/usecase/ingest"
)

// AnalysisPrompt asks for an overall description of a table schema.
const AnalysisPrompt = `Analyze the following database schema and provide insights:
{schema}

Please describe:
1. The purpose and structure of this dataset
2. Relationships between different columns
3. Data quality considerations
4. Potential use cases for this data`

const (
	sampleSize      = 3
	describeSamples = 5
)

// Inferred column types.
const (
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeString = "string"
	TypeEmpty  = "empty"
)

// ColumnProfile describes one column.
type ColumnProfile struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Samples        []string `json:"samples"`
	NullPercentage float64  `json:"null_percentage"`
	UniqueValues   int      `json:"unique_values"`
	Description    string   `json:"description,omitempty"`
}

// TableProfile describes one table. Error is set when the file could not be read.
type TableProfile struct {
	FileName          string              `json:"file_name"`
	TotalRows         int                 `json:"total_rows"`
	TotalColumns      int                 `json:"total_columns"`
	Columns           []ColumnProfile     `json:"columns"`
	SchemaDescription string              `json:"schema_description,omitempty"`
	Degradations      domain.Degradations `json:"degradations,omitempty"`
	Error             string              `json:"error,omitempty"`
}

// Analyzer profiles tables. A nil completer skips the descriptions.
type Analyzer struct {
	llm    domain.Completer
	logger *zap.Logger
}

// NewAnalyzer creates a schema analyzer.
func NewAnalyzer(llm domain.Completer, logger *zap.Logger) *Analyzer {
	return &Analyzer{llm: llm, logger: logger}
}

// AnalyzeTable profiles every column of t. Description failures leave the
// description empty and record a degradation; they never fail the analysis.
func (a *Analyzer) AnalyzeTable(ctx context.Context, t ingest.Table) TableProfile {
	p := TableProfile{
		FileName:     t.Name,
		TotalRows:    len(t.Rows),
		TotalColumns: len(t.Columns),
		Columns:      make([]ColumnProfile, len(t.Columns)),
	}

	for i, col := range t.Columns {
		values := make([]string, len(t.Rows))
		for j, row := range t.Rows {
			values[j] = row[col]
		}
		p.Columns[i] = profileColumn(col, values)
		if a.llm != nil {
			p.Columns[i].Description = a.describe(ctx, &p, describeColumnPrompt(values))
		}
	}

	if a.llm != nil {
		p.SchemaDescription = a.describe(ctx, &p, buildSchemaPrompt(p.Columns))
	}
	return p
}

// AnalyzeFile reads and profiles a .csv or .parquet file.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (TableProfile, error) {
	t, err := ingest.ReadFile(path)
	if err != nil {
		return TableProfile{FileName: filepath.Base(path), Error: err.Error()}, err
	}
	a.logger.Info("Analyzing schema", zap.String("file", t.Name), zap.Int("rows", len(t.Rows)))
	return a.AnalyzeTable(ctx, t), nil
}

// AnalyzeDirectory profiles every table file in dir. Unreadable files get an error entry.
func (a *Analyzer) AnalyzeDirectory(ctx context.Context, dir string) ([]TableProfile, error) {
	files, err := ingest.TableFiles(dir)
	if err != nil {
		return nil, err
	}
	out := make([]TableProfile, 0, len(files))
	for _, path := range files {
		p, err := a.AnalyzeFile(ctx, path)
		if err != nil {
			a.logger.Error("Schema analysis failed", zap.String("file", p.FileName), zap.Error(err))
		}
		out = append(out, p)
	}
	return out, nil
}

func (a *Analyzer) describe(ctx context.Context, p *TableProfile, prompt string) string {
	out, err := a.llm.Complete(ctx, domain.CompletionRequest{Prompt: prompt})
	if err != nil {
		a.logger.Warn("Schema description failed", zap.String("file", p.FileName), zap.Error(err))
		p.Degradations.Add(domain.DegradedDescription)
		return ""
	}
	return strings.TrimSpace(out)
}

func profileColumn(name string, values []string) ColumnProfile {
	c := ColumnProfile{Name: name, Type: inferType(values)}

	c.Samples = make([]string, 0, sampleSize)
	for i := 0; i < len(values) && i < sampleSize; i++ {
		c.Samples = append(c.Samples, values[i])
	}

	nulls := 0
	unique := make(map[string]struct{})
	for _, v := range values {
		if catalog.IsNull(v) {
			nulls++
			continue
		}
		unique[v] = struct{}{}
	}
	if len(values) > 0 {
		c.NullPercentage = float64(nulls) / float64(len(values)) * 100
	}
	c.UniqueValues = len(unique)
	return c
}

// inferType returns the narrowest type every non-null value parses as.
func inferType(values []string) string {
	isInt, isFloat, isBool, seen := true, true, true, false
	for _, raw := range values {
		if catalog.IsNull(raw) {
			continue
		}
		seen = true
		v := strings.TrimSpace(raw)
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			isFloat = false
		}
		if l := strings.ToLower(v); l != "true" && l != "false" {
			isBool = false
		}
	}
	switch {
	case !seen:
		return TypeEmpty
	case isInt:
		return TypeInt
	case isFloat:
		return TypeFloat
	case isBool:
		return TypeBool
	default:
		return TypeString
	}
}

func describeColumnPrompt(values []string) string {
	n := min(len(values), describeSamples)
	quoted := make([]string, n)
	for i := range n {
		quoted[i] = strconv.Quote(values[i])
	}
	return fmt.Sprintf("Describe this data column with samples: [%s]", strings.Join(quoted, ", "))
}

func buildSchemaPrompt(cols []ColumnProfile) string {
	type columnSummary struct {
		Type        string   `json:"type"`
		Samples     []string `json:"samples"`
		Description string   `json:"description"`
	}
	summary := make(map[string]columnSummary, len(cols))
	for _, c := range cols {
		summary[c.Name] = columnSummary{Type: c.Type, Samples: c.Samples, Description: c.Description}
	}
	data, _ := json.MarshalIndent(summary, "", "  ")
	return strings.Replace(AnalysisPrompt, "{schema}", string(data), 1)
}

// Summary renders p as human-readable text.
func Summary(p TableProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\nTotal Rows: %d\nTotal Columns: %d\n", p.FileName, p.TotalRows, p.TotalColumns)
	if p.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", p.Error)
		return b.String()
	}
	if p.SchemaDescription != "" {
		fmt.Fprintf(&b, "\nSchema Description:\n%s\n", p.SchemaDescription)
	}
	b.WriteString("\nColumns:\n")
	for _, c := range p.Columns {
		fmt.Fprintf(&b, "  %s (%s) nulls=%.1f%% unique=%d samples=%s\n",
			c.Name, c.Type, c.NullPercentage, c.UniqueValues, strings.Join(c.Samples, " | "))
		if c.Description != "" {
			fmt.Fprintf(&b, "    %s\n", c.Description)
		}
	}
	return b.String()
}
