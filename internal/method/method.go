// Package method derives structured method records from free-text or coded
// sampling/analysis metadata. Descriptions are deduplicated by exact match
// on the normalized text; identifiers are content-addressed (truncated
// SHA-256 of the normalized description) so identical descriptions always
// yield the same identifier without shared state between runs.
package method

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"swatch/pkg/canonical"
)

// ID returns the content-addressed identifier for a method description.
func ID(description string) string {
	norm := Normalize(description)
	sum := sha256.Sum256([]byte(norm))
	return "m-" + hex.EncodeToString(sum[:])[:12]
}

// Normalize folds a description for deduplication: lower-cased, trimmed,
// internal whitespace collapsed.
func Normalize(description string) string {
	return strings.Join(strings.Fields(strings.ToLower(description)), " ")
}

// keyword classes for the analytical technique, checked in order.
var techniqueClasses = []struct {
	technique string
	keywords  []string
}{
	{"ion chromatography", []string{"ion chromatograph", "chromatography", " ic "}},
	{"icp spectrometry", []string{"icp", "inductively coupled plasma"}},
	{"atomic absorption", []string{"atomic absorption", "aas"}},
	{"titration", []string{"titration", "titrimetric", "gran"}},
	{"colorimetry", []string{"colorimetric", "colorimetry", "spectrophotomet"}},
	{"electrometry", []string{"electrode", "electrometric", "potentiometric", "ph meter"}},
	{"gravimetry", []string{"gravimetric"}},
	{"thermometry", []string{"thermometer", "thermistor"}},
}

// Classify assigns a coarse analytical technique class from the description.
func Classify(description string) string {
	norm := " " + Normalize(description) + " "
	for _, class := range techniqueClasses {
		for _, kw := range class.keywords {
			if strings.Contains(norm, kw) {
				return class.technique
			}
		}
	}
	return canonical.Unknown
}

// Registry is the in-run lookup-or-insert table of method records. Not safe
// for concurrent use; the pipeline is strictly sequential.
type Registry struct {
	byID  map[string]*canonical.Method
	order []string
}

// NewRegistry returns an empty method registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*canonical.Method)}
}

// Intern returns the identifier for a method description, creating the
// record on first sight and widening its observed date range otherwise.
func (r *Registry) Intern(description, analyte string, observed time.Time) string {
	if strings.TrimSpace(description) == "" {
		description = canonical.Unknown
	}
	id := ID(description)
	rec, ok := r.byID[id]
	if !ok {
		rec = &canonical.Method{
			MethodID:    id,
			Description: Normalize(description),
			Technique:   Classify(description),
			Analyte:     analyte,
			FirstUsed:   observed,
			LastUsed:    observed,
		}
		r.byID[id] = rec
		r.order = append(r.order, id)
		return id
	}
	if !observed.IsZero() {
		if rec.FirstUsed.IsZero() || observed.Before(rec.FirstUsed) {
			rec.FirstUsed = observed
		}
		if observed.After(rec.LastUsed) {
			rec.LastUsed = observed
		}
	}
	return id
}

// Add merges an existing method record, deduplicating by identifier and
// widening the observed date range. Used by the merger when combining
// per-source method tables.
func (r *Registry) Add(m canonical.Method) {
	rec, ok := r.byID[m.MethodID]
	if !ok {
		cp := m
		r.byID[m.MethodID] = &cp
		r.order = append(r.order, m.MethodID)
		return
	}
	if !m.FirstUsed.IsZero() && (rec.FirstUsed.IsZero() || m.FirstUsed.Before(rec.FirstUsed)) {
		rec.FirstUsed = m.FirstUsed
	}
	if m.LastUsed.After(rec.LastUsed) {
		rec.LastUsed = m.LastUsed
	}
}

// Lookup returns the record for an identifier.
func (r *Registry) Lookup(id string) (canonical.Method, bool) {
	rec, ok := r.byID[id]
	if !ok {
		return canonical.Method{}, false
	}
	return *rec, true
}

// Records returns all method records in first-seen order.
func (r *Registry) Records() []canonical.Method {
	out := make([]canonical.Method, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Len reports the number of distinct methods seen.
func (r *Registry) Len() int { return len(r.order) }
