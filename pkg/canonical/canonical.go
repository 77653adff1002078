// Package canonical defines the unified site/sample/method record shapes that
// every data source is normalized into before merging. The column and unit
// conventions follow the published SWatCh data descriptor.
package canonical

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Unknown is the fill value for optional string fields with no source data.
const Unknown = "unknown"

// Result status values carried on samples.
const (
	StatusValidated   = "validated"
	StatusPreliminary = "preliminary"
	StatusRejected    = "rejected"
	StatusUnknown     = Unknown
)

// Site is a physical sampling location. Immutable once assigned an
// identifier; site identifiers are source-namespaced ("eccc:01aa001") so
// records from independent programs never collide.
type Site struct {
	SiteID        string  `json:"site_id"`
	Name          string  `json:"site_name"`
	Type          string  `json:"site_type"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	CRS           string  `json:"coordinate_system"`
	StateProvince string  `json:"state_province"`
	Country       string  `json:"country"`
	CatchmentName string  `json:"catchment_name"`
	Agency        string  `json:"agency"`
	Dataset       string  `json:"dataset"`
}

// Sample is one measured analyte value at one site, one method, one time.
type Sample struct {
	SiteID     string    `json:"site_id"`
	MethodID   string    `json:"method_id"`
	Analyte    string    `json:"analyte"`
	Fraction   string    `json:"fraction"`
	Speciation string    `json:"speciation"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Timestamp  time.Time `json:"timestamp"`
	Depth      float64   `json:"depth"` // metres; NaN when not reported
	BelowLimit bool      `json:"below_detection_limit"`
	Status     string    `json:"status"`
	Comment    string    `json:"comment"`
	Dataset    string    `json:"dataset"`
}

// Method is a sampling/analytical technique description, deduplicated by
// normalized description text. Identifiers are content-addressed so that
// identical descriptions yield identical identifiers across runs.
type Method struct {
	MethodID    string    `json:"method_id"`
	Description string    `json:"description"`
	Technique   string    `json:"technique"`
	Analyte     string    `json:"analyte"`
	FirstUsed   time.Time `json:"first_used"`
	LastUsed    time.Time `json:"last_used"`
}

// Validate reports the first missing required site field.
func (s Site) Validate() error {
	switch {
	case s.SiteID == "":
		return fmt.Errorf("site: %w: site_id", ErrMissingRequiredField)
	case s.Dataset == "":
		return fmt.Errorf("site %s: %w: dataset", s.SiteID, ErrMissingRequiredField)
	}
	return nil
}

// Validate reports the first missing required sample field.
func (s Sample) Validate() error {
	switch {
	case s.SiteID == "":
		return fmt.Errorf("sample: %w: site_id", ErrMissingRequiredField)
	case s.Analyte == "":
		return fmt.Errorf("sample at %s: %w: analyte", s.SiteID, ErrMissingRequiredField)
	case s.Unit == "":
		return fmt.Errorf("sample at %s: %w: unit", s.SiteID, ErrMissingRequiredField)
	case s.Timestamp.IsZero():
		return fmt.Errorf("sample at %s: %w: timestamp", s.SiteID, ErrMissingRequiredField)
	case s.Dataset == "":
		return fmt.Errorf("sample at %s: %w: dataset", s.SiteID, ErrMissingRequiredField)
	}
	return nil
}

// ErrMissingRequiredField marks a record missing a required canonical value.
var ErrMissingRequiredField = errors.New("missing required field")

var titleCaser = cases.Title(language.English)

// NormalizeID lower-cases and trims an identifier-style value.
func NormalizeID(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// NormalizeName title-cases a display-name value, filling Unknown when empty.
func NormalizeName(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return Unknown
	}
	return titleCaser.String(v)
}

// OrUnknown returns the trimmed value, or Unknown when empty.
func OrUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return Unknown
	}
	return v
}

// Round3 rounds site-level numeric metadata to three decimals.
func Round3(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v*1000) / 1000
}

// NamespaceID prefixes a source-local identifier with its source name so
// identifiers from independent programs never collide pre-merge.
func NamespaceID(source, id string) string {
	return source + ":" + NormalizeID(id)
}
