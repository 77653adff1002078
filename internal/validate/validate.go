// Package validate checks merged output tables before they are
// persisted or published.
package validate

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"swatch/internal/merge"
	"swatch/pkg/canonical"
)

// ErrInvalidOutput is returned when a table fails validation.
var ErrInvalidOutput = errors.New("invalid output")

// Failure locates one validation problem.
type Failure struct {
	Table  string
	Row    int
	Field  string
	Reason string
}

func (f Failure) String() string {
	return fmt.Sprintf("%s[%d].%s: %s", f.Table, f.Row, f.Field, f.Reason)
}

// Report collects validation failures up to a budget. Checking stops
// once the budget is exhausted so a systematically broken table does
// not produce millions of identical findings.
type Report struct {
	Failures  []Failure
	Truncated bool
}

// OK reports whether validation found no problems.
func (r Report) OK() bool { return len(r.Failures) == 0 }

// Err returns nil for a clean report, or an error wrapping
// ErrInvalidOutput that lists the first few failures.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	shown := r.Failures
	if len(shown) > 5 {
		shown = shown[:5]
	}
	parts := make([]string, len(shown))
	for i, f := range shown {
		parts[i] = f.String()
	}
	suffix := ""
	if len(r.Failures) > len(shown) || r.Truncated {
		suffix = fmt.Sprintf(" (and %d more)", len(r.Failures)-len(shown))
		if r.Truncated {
			suffix = " (truncated)"
		}
	}
	return fmt.Errorf("%w: %d failures: %s%s", ErrInvalidOutput, len(r.Failures), strings.Join(parts, "; "), suffix)
}

func (r *Report) add(budget int, table string, row int, field, reason string) bool {
	if len(r.Failures) >= budget {
		r.Truncated = true
		return false
	}
	r.Failures = append(r.Failures, Failure{Table: table, Row: row, Field: field, Reason: reason})
	return true
}

var validStatuses = map[string]bool{
	canonical.StatusValidated:   true,
	canonical.StatusPreliminary: true,
	canonical.StatusRejected:    true,
	canonical.StatusUnknown:     true,
}

// Tables validates a merge result. budget caps the number of recorded
// failures; a non-positive budget means 50.
func Tables(res merge.Result, budget int) Report {
	if budget <= 0 {
		budget = 50
	}
	var rep Report

	siteIDs := make(map[string]int, len(res.Sites))
	for i, s := range res.Sites {
		if s.SiteID == "" {
			if !rep.add(budget, "sites", i, "site_id", "empty") {
				return rep
			}
			continue
		}
		if prev, dup := siteIDs[s.SiteID]; dup {
			if !rep.add(budget, "sites", i, "site_id", fmt.Sprintf("duplicate of row %d", prev)) {
				return rep
			}
		}
		siteIDs[s.SiteID] = i
		if !math.IsNaN(s.Latitude) && (s.Latitude < -90 || s.Latitude > 90) {
			if !rep.add(budget, "sites", i, "latitude", fmt.Sprintf("out of range: %g", s.Latitude)) {
				return rep
			}
		}
		if !math.IsNaN(s.Longitude) && (s.Longitude < -180 || s.Longitude > 180) {
			if !rep.add(budget, "sites", i, "longitude", fmt.Sprintf("out of range: %g", s.Longitude)) {
				return rep
			}
		}
		if s.Dataset == "" {
			if !rep.add(budget, "sites", i, "dataset", "empty") {
				return rep
			}
		}
	}

	methodIDs := make(map[string]int, len(res.Methods))
	for i, m := range res.Methods {
		if m.MethodID == "" {
			if !rep.add(budget, "methods", i, "method_id", "empty") {
				return rep
			}
			continue
		}
		if prev, dup := methodIDs[m.MethodID]; dup {
			if !rep.add(budget, "methods", i, "method_id", fmt.Sprintf("duplicate of row %d", prev)) {
				return rep
			}
		}
		methodIDs[m.MethodID] = i
	}

	for i, s := range res.Samples {
		if _, ok := siteIDs[s.SiteID]; !ok {
			if !rep.add(budget, "samples", i, "site_id", fmt.Sprintf("unknown site %q", s.SiteID)) {
				return rep
			}
		}
		if s.MethodID != "" {
			if _, ok := methodIDs[s.MethodID]; !ok {
				if !rep.add(budget, "samples", i, "method_id", fmt.Sprintf("unknown method %q", s.MethodID)) {
					return rep
				}
			}
		}
		if s.Analyte == "" {
			if !rep.add(budget, "samples", i, "analyte", "empty") {
				return rep
			}
		}
		if s.Unit == "" {
			if !rep.add(budget, "samples", i, "unit", "empty") {
				return rep
			}
		}
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			if !rep.add(budget, "samples", i, "value", fmt.Sprintf("not finite: %g", s.Value)) {
				return rep
			}
		}
		if s.Timestamp.IsZero() {
			if !rep.add(budget, "samples", i, "timestamp", "zero") {
				return rep
			}
		}
		if !validStatuses[s.Status] {
			if !rep.add(budget, "samples", i, "status", fmt.Sprintf("unknown status %q", s.Status)) {
				return rep
			}
		}
	}
	return rep
}
