package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"swatch/internal/merge"
	"swatch/pkg/canonical"
)

func testResult() merge.Result {
	ts := time.Date(1998, 6, 1, 0, 0, 0, 0, time.UTC)
	return merge.Result{
		Sites: []canonical.Site{{
			SiteID: "eccc:01aa001", Name: "Saint John River", Type: "river",
			Latitude: 45.1, Longitude: -66.4, CRS: "WGS84", Dataset: "eccc",
		}},
		Methods: []canonical.Method{{
			MethodID: "m-0123456789ab", Description: "ca by icp-ms",
			Technique: "icp spectrometry", Analyte: "Calcium",
			FirstUsed: ts, LastUsed: ts,
		}},
		Samples: []canonical.Sample{{
			SiteID: "eccc:01aa001", MethodID: "m-0123456789ab", Analyte: "Calcium",
			Fraction: "filtered", Speciation: "as Unspecified", Value: 2.5,
			Unit: "mg/l", Timestamp: ts, Depth: math.NaN(),
			Status: canonical.StatusValidated, Dataset: "eccc",
		}},
	}
}

func TestSaveAndCount(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "swatch.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.Save(ctx, testResult()); err != nil {
		t.Fatalf("save: %v", err)
	}
	sites, samples, methods, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if sites != 1 || samples != 1 || methods != 1 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/1", sites, samples, methods)
	}

	var depth any
	if err := store.DB().QueryRow("SELECT depth FROM samples").Scan(&depth); err != nil {
		t.Fatalf("scan depth: %v", err)
	}
	if depth != nil {
		t.Fatalf("NaN depth should persist as NULL, got %v", depth)
	}
}

func TestSaveIsIdempotentReplace(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "swatch.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := store.Save(ctx, testResult()); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	_, samples, _, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if samples != 1 {
		t.Fatalf("re-save should replace, not append: %d samples", samples)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "swatch.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	res := testResult()
	res.Samples[0].SiteID = "eccc:nonexistent"
	if err := store.Save(context.Background(), res); err == nil {
		t.Fatalf("dangling site reference should fail the transaction")
	}
}
