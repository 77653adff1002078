// Package source defines the six supported data sources and the cleaner
// that standardizes each one into the canonical schema. Each source is
// declared as data: file names, a column mapping for its site and sample
// tables, vocabulary replacements, and date layouts.
package source

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"swatch/internal/csvio"
	"swatch/internal/method"
	"swatch/internal/schema"
	"swatch/internal/units"
	"swatch/pkg/canonical"
)

// Source declares one data provider's raw layout.
type Source struct {
	Name    string // short namespace, e.g. "eccc"
	Dataset string // full dataset citation name

	SiteFile   string
	SampleFile string

	SiteMapping   schema.Mapping
	SampleMapping schema.Mapping

	// Wide marks sources reporting one column per analyte; such tables are
	// reshaped long before normalization.
	Wide     bool
	InfoCols []string

	DateLayouts []string
}

// Result summarizes one source's cleaning run.
type Result struct {
	RawSites   int
	RawSamples int
	Sites      []canonical.Site
	Samples    []canonical.Sample
	Methods    []canonical.Method
}

// Cleaner standardizes one source's raw tables.
type Cleaner struct {
	src Source
	log *zap.Logger
}

// NewCleaner returns a cleaner for the source. A nil logger is replaced
// with a no-op logger.
func NewCleaner(src Source, log *zap.Logger) *Cleaner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cleaner{src: src, log: log.With(zap.String("source", src.Name))}
}

// SiteOutput returns the cleaned site table filename for a source name.
func SiteOutput(name string) string { return "cleaned_sites_" + name + ".csv" }

// SampleOutput returns the cleaned sample table filename for a source name.
func SampleOutput(name string) string { return "cleaned_samples_" + name + ".csv" }

// MethodOutput returns the per-source method table filename.
func MethodOutput(name string) string { return "methods_" + name + ".csv" }

// Clean reads the source's raw tables from inDir and writes the cleaned
// site, sample, and method tables to outDir. A malformed record aborts the
// source: partial per-record skip-and-continue would hide upstream data
// problems that the operator must fix.
func (c *Cleaner) Clean(ctx context.Context, inDir, outDir string) (Result, error) {
	var res Result

	sites, rawSites, err := c.cleanSites(ctx, filepath.Join(inDir, c.src.SiteFile))
	if err != nil {
		return res, fmt.Errorf("clean %s sites: %w", c.src.Name, err)
	}
	res.Sites = sites
	res.RawSites = rawSites

	samples, methods, rawSamples, err := c.cleanSamples(ctx, filepath.Join(inDir, c.src.SampleFile))
	if err != nil {
		return res, fmt.Errorf("clean %s samples: %w", c.src.Name, err)
	}
	res.Samples = samples
	res.Methods = methods
	res.RawSamples = rawSamples

	if err := csvio.WriteSites(filepath.Join(outDir, SiteOutput(c.src.Name)), sites); err != nil {
		return res, err
	}
	if err := csvio.WriteSamples(filepath.Join(outDir, SampleOutput(c.src.Name)), samples); err != nil {
		return res, err
	}
	if err := csvio.WriteMethods(filepath.Join(outDir, MethodOutput(c.src.Name)), methods); err != nil {
		return res, err
	}
	c.log.Info("source cleaned",
		zap.Int("sites", len(sites)),
		zap.Int("samples", len(samples)),
		zap.Int("methods", len(methods)))
	return res, nil
}

func (c *Cleaner) cleanSites(ctx context.Context, path string) ([]canonical.Site, int, error) {
	rows, err := csvio.ReadRaw(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	seen := make(map[string]bool, len(rows))
	sites := make([]canonical.Site, 0, len(rows))
	for i, row := range rows {
		canon, err := c.src.SiteMapping.Normalize(row)
		if err != nil {
			return nil, len(rows), fmt.Errorf("row %d: %w", i+2, err)
		}
		site, err := c.buildSite(canon)
		if err != nil {
			return nil, len(rows), fmt.Errorf("row %d: %w", i+2, err)
		}
		if seen[site.SiteID] {
			continue // duplicate site rows keep first occurrence
		}
		seen[site.SiteID] = true
		sites = append(sites, site)
	}
	return sites, len(rows), nil
}

func (c *Cleaner) buildSite(row schema.Row) (canonical.Site, error) {
	lat, err := optionalFloat(row["latitude"])
	if err != nil {
		return canonical.Site{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := optionalFloat(row["longitude"])
	if err != nil {
		return canonical.Site{}, fmt.Errorf("longitude: %w", err)
	}
	site := canonical.Site{
		SiteID:        canonical.NamespaceID(c.src.Name, row["site_id"]),
		Name:          canonical.NormalizeName(row["site_name"]),
		Type:          canonical.OrUnknown(canonical.NormalizeID(row["site_type"])),
		Latitude:      canonical.Round3(lat),
		Longitude:     canonical.Round3(lon),
		CRS:           canonical.OrUnknown(row["coordinate_system"]),
		StateProvince: canonical.NormalizeName(row["state_province"]),
		Country:       canonical.NormalizeName(row["country"]),
		CatchmentName: canonical.NormalizeName(row["catchment_name"]),
		Agency:        canonical.OrUnknown(row["agency"]),
		Dataset:       row["dataset"],
	}
	if err := site.Validate(); err != nil {
		return canonical.Site{}, err
	}
	return site, nil
}

func (c *Cleaner) cleanSamples(ctx context.Context, path string) ([]canonical.Sample, []canonical.Method, int, error) {
	rows, err := csvio.ReadRaw(ctx, path)
	if err != nil {
		return nil, nil, 0, err
	}
	raw := len(rows)
	if c.src.Wide {
		rows = schema.Restructure(rows, c.src.InfoCols, wideAnalyteCol, wideValueCol)
	}

	registry := method.NewRegistry()
	samples := make([]canonical.Sample, 0, len(rows))
	for i, row := range rows {
		canon, err := c.src.SampleMapping.Normalize(row)
		if err != nil {
			return nil, nil, raw, fmt.Errorf("row %d: %w", i+2, err)
		}
		sample, err := c.buildSample(canon, registry)
		if err != nil {
			return nil, nil, raw, fmt.Errorf("row %d: %w", i+2, err)
		}
		samples = append(samples, sample)
	}
	return samples, registry.Records(), raw, nil
}

func (c *Cleaner) buildSample(row schema.Row, registry *method.Registry) (canonical.Sample, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(row["value"]), 64)
	if err != nil {
		return canonical.Sample{}, fmt.Errorf("value %q: %w", row["value"], err)
	}
	analyte := row["analyte"]
	stdValue, stdUnit, err := units.Standardize(analyte, value, row["unit"])
	if err != nil {
		return canonical.Sample{}, fmt.Errorf("analyte %s: %w", analyte, err)
	}
	if !units.Admissible(analyte, stdUnit) {
		return canonical.Sample{}, fmt.Errorf("analyte %s: inadmissible unit %s", analyte, stdUnit)
	}
	ts, err := c.parseTimestamp(row["date"], row["time"])
	if err != nil {
		return canonical.Sample{}, err
	}
	depth, err := optionalFloat(row["depth"])
	if err != nil {
		return canonical.Sample{}, fmt.Errorf("depth: %w", err)
	}

	desc := row["method_description"]
	if desc == "" {
		desc = strings.TrimSpace(row["method_id"] + " " + row["method_name"])
	}
	methodID := registry.Intern(desc, analyte, ts)

	sample := canonical.Sample{
		SiteID:     canonical.NamespaceID(c.src.Name, row["site_id"]),
		MethodID:   methodID,
		Analyte:    analyte,
		Fraction:   canonical.OrUnknown(canonical.NormalizeID(row["fraction"])),
		Speciation: orUnspecified(row["speciation"]),
		Value:      stdValue,
		Unit:       stdUnit,
		Timestamp:  ts,
		Depth:      depth,
		BelowLimit: isBelowLimit(row["bdl_flag"]),
		Status:     canonical.OrUnknown(canonical.NormalizeID(row["status"])),
		Comment:    row["comment"],
		Dataset:    row["dataset"],
	}
	if err := sample.Validate(); err != nil {
		return canonical.Sample{}, err
	}
	return sample, nil
}

const (
	wideAnalyteCol = "analyte"
	wideValueCol   = "value"

	// SpeciationUnspecified is the fill for samples with no reported
	// speciation convention.
	SpeciationUnspecified = "as Unspecified"
)

func orUnspecified(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return SpeciationUnspecified
	}
	return v
}

// isBelowLimit recognizes the below-detection-limit notations of the
// supported programs: "<" prefixes, Waterbase's below-LOQ flag "1", and
// ECCC's trace flag "T".
func isBelowLimit(flag string) bool {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "<", "1", "t", "true", "yes", "bdl", "below":
		return true
	}
	return false
}

func optionalFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func (c *Cleaner) parseTimestamp(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	candidate := date
	if clock != "" {
		candidate = date + " " + clock
	}
	layouts := c.src.DateLayouts
	if len(layouts) == 0 {
		layouts = defaultDateLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return t.UTC(), nil
		}
		if clock != "" {
			// fall back to date-only when the time component does not parse
			if t, err := time.Parse(layout, date); err == nil {
				return t.UTC(), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", candidate)
}

var defaultDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}
