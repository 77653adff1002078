package postgres

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"swatch/internal/merge"
	"swatch/pkg/canonical"
)

// openTestStore connects to the server named by SWATCH_TEST_POSTGRES_DSN
// (or the default local DSN) and skips the test when none is reachable.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store, err := NewStore(ctx, os.Getenv("SWATCH_TEST_POSTGRES_DSN"))
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

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

func TestSaveReplacesContents(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testResult()); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Saving again must replace, not append.
	if err := store.Save(ctx, testResult()); err != nil {
		t.Fatalf("second save: %v", err)
	}
	var sites, samples, methods int
	row := store.DB().QueryRowContext(ctx,
		"SELECT (SELECT count(*) FROM sites), (SELECT count(*) FROM samples), (SELECT count(*) FROM methods)")
	if err := row.Scan(&sites, &samples, &methods); err != nil {
		t.Fatalf("count: %v", err)
	}
	if sites != 1 || samples != 1 || methods != 1 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/1", sites, samples, methods)
	}
}

func TestSavePersistsNaNDepthAsNull(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, testResult()); err != nil {
		t.Fatalf("save: %v", err)
	}
	var depth any
	if err := store.DB().QueryRowContext(ctx, "SELECT depth FROM samples").Scan(&depth); err != nil {
		t.Fatalf("scan depth: %v", err)
	}
	if depth != nil {
		t.Fatalf("NaN depth should persist as NULL, got %v", depth)
	}
}
