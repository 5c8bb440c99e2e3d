package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/salon/internal/config"
	"github.com/JonMunkholm/salon/internal/model"
	"github.com/JonMunkholm/salon/internal/source"
)

// ColumnMapping maps one source header onto a canonical field.
type ColumnMapping struct {
	Source string `json:"source"`
	Field  Field  `json:"field"`
}

// Mapping is an ordered list of column mappings. Headers are matched after
// trimming and case-folding, so " Стоимость" and "стоимость" are the same.
type Mapping []ColumnMapping

// MappingFromRules converts configured rules, rejecting unknown fields.
func MappingFromRules(rules []config.ColumnRule) (Mapping, error) {
	m := make(Mapping, 0, len(rules))
	for _, r := range rules {
		f := Field(strings.ToLower(strings.TrimSpace(r.Field)))
		if !KnownField(f) {
			return nil, fmt.Errorf("unknown field %q for column %q", r.Field, r.Source)
		}
		m = append(m, ColumnMapping{Source: r.Source, Field: f})
	}
	return m, nil
}

// Fields returns the canonical fields the mapping produces.
func (m Mapping) Fields() []Field {
	out := make([]Field, 0, len(m))
	for _, cm := range m {
		out = append(out, cm.Field)
	}
	return out
}

// NormalizeOptions tune field conversion.
type NormalizeOptions struct {
	// ImageDir is the destination directory for image paths.
	ImageDir string
}

// NormalizeResult holds canonical rows plus everything that was defaulted.
type NormalizeResult struct {
	Rows    []Canonical
	Issues  []FieldIssue
	Skipped int // completely empty rows
}

// Defaulted counts row-level issues, i.e. values replaced by a default.
func (r NormalizeResult) Defaulted() int {
	n := 0
	for _, is := range r.Issues {
		if is.Line > 0 {
			n++
		}
	}
	return n
}

// headerKey is the form headers and mapping sources are compared in.
func headerKey(s string) string {
	return strings.ToLower(CleanCell(s))
}

// NormalizeBatch converts every source row through mapping. A bad value
// never drops its row: it is replaced by the field default and recorded as
// a FieldIssue. Unmapped columns are ignored; mapped columns that the header
// lacks are reported once and every row gets the field default.
func NormalizeBatch(t *source.Table, mapping Mapping, opts NormalizeOptions) NormalizeResult {
	var res NormalizeResult
	if t == nil {
		return res
	}

	headers := make(map[string]string, len(t.Header))
	for _, h := range t.Header {
		headers[headerKey(h)] = h
	}

	type column struct {
		header string // actual header in the file; empty if absent
		ColumnMapping
	}
	cols := make([]column, 0, len(mapping))
	for _, cm := range mapping {
		h, ok := headers[headerKey(cm.Source)]
		if !ok {
			res.Issues = append(res.Issues, FieldIssue{
				Field:     cm.Field,
				Source:    cm.Source,
				Reason:    "column not found in header",
				Defaulted: defaultValue(cm.Field),
			})
		}
		cols = append(cols, column{header: h, ColumnMapping: cm})
	}

	res.Rows = make([]Canonical, 0, t.Len())
	for i, row := range t.Rows {
		if emptyRow(row) {
			res.Skipped++
			continue
		}

		line := t.Line(i)
		c := Canonical{Line: line, Values: make(map[Field]any, len(cols))}
		for _, col := range cols {
			if col.header == "" {
				c.Values[col.Field] = defaultValue(col.Field)
				continue
			}
			raw := row[col.header]
			v, ok := convertField(col.Field, raw, opts)
			c.Values[col.Field] = v
			if !ok {
				res.Issues = append(res.Issues, FieldIssue{
					Line:      line,
					Field:     col.Field,
					Source:    col.Source,
					Value:     raw,
					Reason:    issueReason(col.Field, raw),
					Defaulted: v,
				})
			}
		}
		res.Rows = append(res.Rows, c)
	}
	return res
}

func emptyRow(row source.Row) bool {
	for _, v := range row {
		if CleanCell(v) != "" {
			return false
		}
	}
	return true
}

// convertField dispatches on the field's type. The returned value is the
// default whenever ok is false.
func convertField(f Field, raw string, opts NormalizeOptions) (any, bool) {
	switch fieldTypes[f] {
	case TypeCost:
		return NormalizeCost(raw)
	case TypeDuration:
		return NormalizeDuration(raw)
	case TypeDiscount:
		return NormalizeDiscount(raw)
	case TypeGender:
		return NormalizeGender(raw)
	case TypeImage:
		return NormalizeImagePath(raw, opts.ImageDir)
	case TypeDate:
		return NormalizeDate(raw)
	default:
		return NormalizeText(raw), true
	}
}

func defaultValue(f Field) any {
	switch fieldTypes[f] {
	case TypeCost:
		return 0.0
	case TypeDuration:
		return 0
	case TypeDiscount:
		return 1.0
	case TypeGender:
		return model.GenderUnspecified
	default:
		return ""
	}
}

func issueReason(f Field, raw string) string {
	if CleanCell(raw) == "" {
		return "empty value"
	}
	switch fieldTypes[f] {
	case TypeCost:
		return "invalid number"
	case TypeDuration:
		return "unrecognised duration"
	case TypeDiscount:
		return "unrecognised discount"
	case TypeGender:
		return "unrecognised gender"
	case TypeImage:
		return "no file name"
	case TypeDate:
		return "invalid date"
	default:
		return "invalid value"
	}
}
