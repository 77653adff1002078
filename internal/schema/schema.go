// Package schema maps source-specific record shapes onto the canonical
// sample/site column convention. A Mapping is declared configuration: it
// enumerates source-column to canonical-column correspondences, literal
// defaults, and per-column value replacements.
package schema

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingRequiredColumn is returned when a required canonical field has
// no source mapping and no default.
var ErrMissingRequiredColumn = errors.New("missing required column")

// Row is one tabular record keyed by column name.
type Row map[string]string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Mapping declares how one source's columns map onto the canonical schema.
type Mapping struct {
	Source       string                       `yaml:"source"`
	Columns      map[string]string            `yaml:"columns"`      // source column -> canonical column
	Defaults     map[string]string            `yaml:"defaults"`     // canonical column -> literal
	Replacements map[string]map[string]string `yaml:"replacements"` // canonical column -> value map
	Required     []string                     `yaml:"required"`     // canonical columns that must be present
}

// LoadMapping reads a Mapping from a YAML file.
func LoadMapping(path string) (Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Mapping{}, fmt.Errorf("read mapping: %w", err)
	}
	var m Mapping
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Mapping{}, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	return m, nil
}

// Normalize produces a canonical-shape row from a source row. Pure
// transformation: mapped columns are copied and trimmed, defaults fill
// absent canonical fields, replacements rewrite known source vocabulary.
// Fails with ErrMissingRequiredColumn when a required canonical field ends
// up absent or empty.
func (m Mapping) Normalize(row Row) (Row, error) {
	out := make(Row, len(m.Columns)+len(m.Defaults))
	for src, canon := range m.Columns {
		if v, ok := row[src]; ok {
			out[canon] = strings.TrimSpace(v)
		}
	}
	for canon, def := range m.Defaults {
		if out[canon] == "" {
			out[canon] = def
		}
	}
	for canon, repl := range m.Replacements {
		if v, ok := out[canon]; ok {
			if mapped, ok := repl[v]; ok {
				out[canon] = mapped
			}
		}
	}
	for _, req := range m.Required {
		if out[req] == "" {
			return nil, fmt.Errorf("source %s: %w: %s", m.Source, ErrMissingRequiredColumn, req)
		}
	}
	return out, nil
}

// Validate checks the mapping declaration itself: every required canonical
// column must be reachable through a column mapping or a default.
func (m Mapping) Validate() error {
	reachable := make(map[string]bool, len(m.Columns)+len(m.Defaults))
	for _, canon := range m.Columns {
		reachable[canon] = true
	}
	for canon := range m.Defaults {
		reachable[canon] = true
	}
	var missing []string
	for _, req := range m.Required {
		if !reachable[req] {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("source %s: %w: %s", m.Source, ErrMissingRequiredColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Restructure reshapes wide rows (one column per analyte) into long rows
// (analyte column plus value column). Info columns are replicated onto every
// produced row; empty measurement cells produce no row.
func Restructure(rows []Row, infoCols []string, analyteCol, valueCol string) []Row {
	info := make(map[string]bool, len(infoCols))
	for _, c := range infoCols {
		info[c] = true
	}
	var out []Row
	for _, row := range rows {
		params := make([]string, 0, len(row))
		for col := range row {
			if !info[col] {
				params = append(params, col)
			}
		}
		sort.Strings(params)
		for _, col := range params {
			v := strings.TrimSpace(row[col])
			if v == "" {
				continue
			}
			long := make(Row, len(infoCols)+2)
			for _, c := range infoCols {
				long[c] = row[c]
			}
			long[analyteCol] = col
			long[valueCol] = v
			out = append(out, long)
		}
	}
	return out
}
