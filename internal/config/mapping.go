package config

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/salon/internal/catalog"
	"github.com/spf13/viper"
)

// ColumnRule maps one spreadsheet header onto a canonical field.
type ColumnRule struct {
	Source string `mapstructure:"source"`
	Field  string `mapstructure:"field"`
}

// Mappings is the content of the optional mapping file.
//
//	tables:
//	  service:
//	    - {source: "Наименование услуги", field: title}
//	ranges:
//	  - {label: "All"}
//	  - {label: "0% – 5%", min: 0, max: 5}
type Mappings struct {
	// Tables overrides the built-in column mapping per table key.
	Tables map[string][]ColumnRule `mapstructure:"tables"`

	// Ranges overrides catalog.DefaultRanges when non-empty.
	Ranges catalog.RangeSet `mapstructure:"ranges"`
}

// For returns the rules configured for table, if any.
func (m *Mappings) For(table string) ([]ColumnRule, bool) {
	if m == nil {
		return nil, false
	}
	rules, ok := m.Tables[strings.ToLower(table)]
	return rules, ok && len(rules) > 0
}

// RangeSet returns the configured bands or catalog.DefaultRanges.
func (m *Mappings) RangeSet() catalog.RangeSet {
	if m == nil || len(m.Ranges) == 0 {
		return catalog.DefaultRanges
	}
	return m.Ranges
}

// LoadMappings reads a YAML (or JSON/TOML, by extension) mapping file.
// An empty path returns empty Mappings so callers fall back to defaults.
func LoadMappings(path string) (*Mappings, error) {
	m := &Mappings{}
	if path == "" {
		return m, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read mapping file %s: %w", path, err)
	}
	if err := v.Unmarshal(m); err != nil {
		return nil, fmt.Errorf("decode mapping file %s: %w", path, err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("mapping file %s: %w", path, err)
	}
	return m, nil
}

func (m *Mappings) validate() error {
	var errs []string
	for table, rules := range m.Tables {
		for i, r := range rules {
			if strings.TrimSpace(r.Source) == "" || strings.TrimSpace(r.Field) == "" {
				errs = append(errs, fmt.Sprintf("tables.%s[%d]: source and field are required", table, i))
			}
		}
	}
	seen := make(map[string]bool, len(m.Ranges))
	for i, r := range m.Ranges {
		switch {
		case r.Label == "":
			errs = append(errs, fmt.Sprintf("ranges[%d]: label is required", i))
		case seen[r.Label]:
			errs = append(errs, fmt.Sprintf("ranges[%d]: duplicate label %q", i, r.Label))
		}
		seen[r.Label] = true
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			errs = append(errs, fmt.Sprintf("ranges[%d]: min %.2f exceeds max %.2f", i, *r.Min, *r.Max))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
