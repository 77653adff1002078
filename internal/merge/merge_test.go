package merge

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"swatch/internal/method"
	"swatch/pkg/canonical"
)

func day(d int) time.Time {
	return time.Date(1998, 6, d, 0, 0, 0, 0, time.UTC)
}

func toyInput(src, dataset, methodDesc string, base float64) Input {
	reg := method.NewRegistry()
	mid := reg.Intern(methodDesc, "Calcium", day(1))
	siteID := src + ":site1"
	return Input{
		Source: src,
		Sites: []canonical.Site{{
			SiteID: siteID, Name: "Site One", Type: "river",
			Latitude: 45, Longitude: -66, CRS: "WGS84", Dataset: dataset,
		}},
		Samples: []canonical.Sample{
			{SiteID: siteID, MethodID: mid, Analyte: "Calcium", Fraction: "filtered",
				Speciation: "as Unspecified", Value: base, Unit: "mg/l",
				Timestamp: day(1), Depth: math.NaN(), Status: "validated", Dataset: dataset},
			{SiteID: siteID, MethodID: mid, Analyte: "Calcium", Fraction: "filtered",
				Speciation: "as Unspecified", Value: base + 0.1, Unit: "mg/l",
				Timestamp: day(2), Depth: math.NaN(), Status: "validated", Dataset: dataset},
		},
		Methods: reg.Records(),
	}
}

func TestMergeToySources(t *testing.T) {
	// three sources, one site/method/two samples each; sources a and b share
	// an identical method description, c differs
	inputs := []Input{
		toyInput("a", "GloRiCh", "EPA 200.7 ICP", 2.0),
		toyInput("b", "GEMStat", "epa 200.7  icp", 3.0),
		toyInput("c", "Water Quality Portal", "gran titration", 4.0),
	}
	res, err := New(nil).Merge(context.Background(), inputs)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(res.Sites) != 3 {
		t.Fatalf("expected 3 sites, got %d", len(res.Sites))
	}
	if len(res.Methods) != 2 {
		t.Fatalf("description-identical methods should deduplicate: got %d", len(res.Methods))
	}
	if len(res.Samples) != 6 {
		t.Fatalf("expected 6 samples, got %d", len(res.Samples))
	}
	siteIDs := make(map[string]bool)
	for _, s := range res.Sites {
		siteIDs[s.SiteID] = true
	}
	methodIDs := make(map[string]bool)
	for _, m := range res.Methods {
		methodIDs[m.MethodID] = true
	}
	for _, s := range res.Samples {
		if !siteIDs[s.SiteID] {
			t.Fatalf("sample site %q does not resolve", s.SiteID)
		}
		if !methodIDs[s.MethodID] {
			t.Fatalf("sample method %q does not resolve", s.MethodID)
		}
	}
	if len(res.Violations) != 0 {
		t.Fatalf("unexpected violations: %v", res.Violations)
	}
}

func TestMergeReportsAndExcludesCorruptedSample(t *testing.T) {
	in := toyInput("a", "GloRiCh", "gran titration", 2.0)
	bad := in.Samples[0]
	bad.SiteID = "a:missing"
	in.Samples = append(in.Samples, bad)

	res, err := New(nil).Merge(context.Background(), []Input{in})
	if err != nil {
		t.Fatalf("merge should complete despite violation: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(res.Violations))
	}
	v := res.Violations[0]
	if !errors.Is(v, ErrReferentialIntegrity) {
		t.Fatalf("violation should match ErrReferentialIntegrity")
	}
	if v.Kind != "site" || v.Ref != "a:missing" {
		t.Fatalf("unexpected violation: %+v", v)
	}
	if len(res.Samples) != 2 {
		t.Fatalf("corrupted sample must be excluded: got %d samples", len(res.Samples))
	}
}

func TestMergeDanglingMethodReference(t *testing.T) {
	in := toyInput("a", "GloRiCh", "gran titration", 2.0)
	in.Samples[1].MethodID = "m-000000000000"
	res, err := New(nil).Merge(context.Background(), []Input{in})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Kind != "method" {
		t.Fatalf("expected one method violation, got %+v", res.Violations)
	}
}

func TestHarmonizeSpeciation(t *testing.T) {
	cases := []struct {
		analyte, spec string
		value         float64
		wantSpec      string
		wantValue     float64
	}{
		{"Nitrite", "as N", 1, "as NO2", ratioNitriteAsN},
		{"Nitrate", "as N", 2, "as NO3", 2 * ratioNitrateAsN},
		{"Ammonium", "as N", 1, "as NH4", ratioAmmoniumAsN},
		{"Orthophosphate", "as P", 1, "as PO4", ratioAsPToPO4},
		{"Total hardness", "as CaCO3", 100, "as CO3", 60},
		{"Calcium", "as Unspecified", 5, "as Unspecified", 5},
		{"Calcium", "as CaCO3", 5, "as CaCO3", 5}, // not an alkalinity analyte
	}
	for _, tc := range cases {
		s := canonical.Sample{Analyte: tc.analyte, Speciation: tc.spec, Value: tc.value}
		harmonizeSpeciation(&s)
		if s.Speciation != tc.wantSpec || math.Abs(s.Value-tc.wantValue) > 1e-9 {
			t.Fatalf("%s %s: got (%v, %s), want (%v, %s)",
				tc.analyte, tc.spec, s.Value, s.Speciation, tc.wantValue, tc.wantSpec)
		}
	}
}

func TestScreenRejectsImpossibleValues(t *testing.T) {
	s := canonical.Sample{Analyte: "Calcium", Value: -1, Status: "validated"}
	screen(&s)
	if s.Status != canonical.StatusRejected {
		t.Fatalf("negative calcium should be rejected")
	}
	exempt := canonical.Sample{Analyte: "Temperature, water", Value: -4, Status: "validated"}
	screen(&exempt)
	if exempt.Status == canonical.StatusRejected {
		t.Fatalf("negative water temperature is legitimate")
	}
}

func TestFlagOutliers(t *testing.T) {
	mk := func(v float64, status string) canonical.Sample {
		return canonical.Sample{
			SiteID: "a:s", Analyte: "Calcium", Fraction: "filtered",
			Speciation: "as Unspecified", Value: v, Status: status,
		}
	}
	samples := []canonical.Sample{
		mk(10, "validated"), mk(10.5, "validated"), mk(9.8, "validated"),
		mk(10.2, "validated"), mk(500, "validated"),
		mk(-4, canonical.StatusRejected), // excluded from statistics
	}
	flagged := flagOutliers(samples)
	if flagged == 0 {
		t.Fatalf("extreme value should be flagged")
	}
	var extreme canonical.Sample
	for _, s := range samples {
		if s.Value == 500 {
			extreme = s
		}
		if s.Value == 10 && s.Comment != "" {
			t.Fatalf("central value should not be flagged: %q", s.Comment)
		}
	}
	if extreme.Comment == "" {
		t.Fatalf("outlier comment missing")
	}
}

func TestFlagOutliersSkipsDegenerateGroups(t *testing.T) {
	mk := func(analyte string, v float64) canonical.Sample {
		return canonical.Sample{
			SiteID: "a:s", Analyte: analyte, Fraction: "filtered",
			Speciation: "as Unspecified", Value: v, Status: "validated",
		}
	}
	// A constant baseline with one slightly different reading has zero
	// median absolute deviation; the jitter is not an outlier.
	samples := []canonical.Sample{
		mk("Calcium", 10), mk("Calcium", 10), mk("Calcium", 10), mk("Calcium", 10.1),
		// Two points give no spread estimate at all.
		mk("Chloride", 1), mk("Chloride", 900),
	}
	if flagged := flagOutliers(samples); flagged != 0 {
		t.Fatalf("degenerate groups should not be screened, flagged %d", flagged)
	}
	for _, s := range samples {
		if s.Comment != "" {
			t.Fatalf("unexpected comment on %s=%g: %q", s.Analyte, s.Value, s.Comment)
		}
	}
}

func TestDedupeKeepsHighestPrecedenceDataset(t *testing.T) {
	ts := day(1)
	a := canonical.Sample{SiteID: "x:1", Analyte: "Calcium", Fraction: "filtered",
		Speciation: "as Unspecified", Value: 2.5, Timestamp: ts, Dataset: "GEMStat"}
	b := a
	b.Dataset = "ECCC National Long-Term Water Quality Monitoring Data"
	deduped, removed := dedupe([]canonical.Sample{a, b})
	if removed != 1 || len(deduped) != 1 {
		t.Fatalf("expected one survivor, got %d (removed %d)", len(deduped), removed)
	}
	if deduped[0].Dataset != b.Dataset {
		t.Fatalf("national program should win precedence, got %s", deduped[0].Dataset)
	}
}
