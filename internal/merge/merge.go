// Package merge joins the standardized per-source table sets into the
// unified site, sample, and method tables. Method records deduplicate
// across sources by description; site records stay per-source (no
// cross-source site matching is attempted); sample identifiers are
// rewritten into the global namespace.
package merge

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"swatch/internal/geo"
	"swatch/internal/method"
	"swatch/pkg/canonical"
)

// ErrReferentialIntegrity marks a sample referencing a site or method
// identifier absent from its own source's tables: an upstream cleaning bug.
var ErrReferentialIntegrity = errors.New("referential integrity violation")

// Input is one source's standardized table set.
type Input struct {
	Source  string
	Sites   []canonical.Site
	Samples []canonical.Sample
	Methods []canonical.Method
}

// Violation describes one excluded sample.
type Violation struct {
	Source string
	Kind   string // "site" or "method"
	Ref    string // the dangling identifier
	Row    int    // index into the source's sample table
}

// Error renders the violation; errors.Is matches ErrReferentialIntegrity.
func (v Violation) Error() string {
	return fmt.Sprintf("%s sample %d: %v: unknown %s %q", v.Source, v.Row, ErrReferentialIntegrity, v.Kind, v.Ref)
}

// Unwrap ties violations to the sentinel for errors.Is.
func (v Violation) Unwrap() error { return ErrReferentialIntegrity }

// Result is the unified database produced by a merge.
type Result struct {
	Sites      []canonical.Site
	Samples    []canonical.Sample
	Methods    []canonical.Method
	Violations []Violation

	Rejected   int // samples kept but flagged rejected
	Outliers   int // samples flagged as potential outliers
	Duplicates int // cross-source duplicates removed
}

// Merger combines standardized table sets.
type Merger struct {
	log *zap.Logger
}

// New returns a Merger. A nil logger is replaced with a no-op logger.
func New(log *zap.Logger) *Merger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Merger{log: log}
}

// datasetPrecedence orders datasets for duplicate resolution: national
// programs win over aggregated portals.
var datasetPrecedence = map[string]int{
	"ECCC National Long-Term Water Quality Monitoring Data": 0,
	"Water Quality Portal":                                  1,
	"European Environment Agency (EEA) Waterbase":           2,
	"McMurdo Dry Valleys LTER":                              3,
	"GloRiCh":                                               4,
	"GEMStat":                                               5,
}

func precedence(dataset string) int {
	if p, ok := datasetPrecedence[dataset]; ok {
		return p
	}
	return len(datasetPrecedence)
}

// Merge produces the unified tables. Referential-integrity violations are
// collected and the offending samples excluded; the merge itself completes
// so the operator can inspect the report and re-run after fixing the
// upstream cleaning step.
func (m *Merger) Merge(ctx context.Context, inputs []Input) (Result, error) {
	var res Result
	registry := method.NewRegistry()
	var kept []canonical.Sample

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		siteIDs := make(map[string]bool, len(in.Sites))
		for _, s := range in.Sites {
			siteIDs[s.SiteID] = true
		}
		methodIDs := make(map[string]bool, len(in.Methods))
		for _, mr := range in.Methods {
			methodIDs[mr.MethodID] = true
			registry.Add(mr)
		}
		for i, s := range in.Samples {
			switch {
			case !siteIDs[s.SiteID]:
				res.Violations = append(res.Violations, Violation{Source: in.Source, Kind: "site", Ref: s.SiteID, Row: i})
			case s.MethodID != "" && !methodIDs[s.MethodID]:
				res.Violations = append(res.Violations, Violation{Source: in.Source, Kind: "method", Ref: s.MethodID, Row: i})
			default:
				kept = append(kept, s)
			}
		}
		res.Sites = append(res.Sites, in.Sites...)
	}
	for _, v := range res.Violations {
		m.log.Warn("sample excluded", zap.String("source", v.Source), zap.String("kind", v.Kind), zap.String("ref", v.Ref), zap.Int("row", v.Row))
	}

	// harmonize, screen, flag
	for i := range kept {
		harmonizeSpeciation(&kept[i])
		screen(&kept[i])
	}
	res.Outliers = flagOutliers(kept)
	harmonizeCoordinates(res.Sites)

	// cross-source duplicate removal under dataset precedence
	kept, res.Duplicates = dedupe(kept)
	res.Samples = kept
	res.Methods = registry.Records()

	for _, s := range res.Samples {
		if s.Status == canonical.StatusRejected {
			res.Rejected++
		}
	}
	m.log.Info("merge complete",
		zap.Int("sites", len(res.Sites)),
		zap.Int("samples", len(res.Samples)),
		zap.Int("methods", len(res.Methods)),
		zap.Int("violations", len(res.Violations)),
		zap.Int("duplicates_removed", res.Duplicates),
		zap.Int("rejected", res.Rejected),
		zap.Int("outliers_flagged", res.Outliers))
	return res, nil
}

// harmonizeCoordinates shifts every site into WGS84 where the source
// reference system is known; unknown systems keep their label for manual
// review.
func harmonizeCoordinates(sites []canonical.Site) {
	for i := range sites {
		s := &sites[i]
		lat, lon, ok := geo.ToWGS84(s.CRS, s.Latitude, s.Longitude)
		if ok {
			s.Latitude, s.Longitude, s.CRS = lat, lon, geo.WGS84
		}
	}
}

type dedupeKey struct {
	siteID     string
	analyte    string
	fraction   string
	speciation string
	value      float64
	timestamp  int64
}

// dedupe removes cross-source duplicate samples, keeping the record from
// the highest-precedence dataset.
func dedupe(samples []canonical.Sample) ([]canonical.Sample, int) {
	ordered := make([]canonical.Sample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return precedence(ordered[i].Dataset) < precedence(ordered[j].Dataset)
	})
	seen := make(map[dedupeKey]bool, len(ordered))
	out := ordered[:0]
	removed := 0
	for _, s := range ordered {
		k := dedupeKey{
			siteID:     s.SiteID,
			analyte:    s.Analyte,
			fraction:   s.Fraction,
			speciation: s.Speciation,
			value:      s.Value,
			timestamp:  s.Timestamp.Unix(),
		}
		if seen[k] {
			removed++
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out, removed
}
