package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"swatch/internal/csvio"
	"swatch/internal/schema"
	"swatch/internal/units"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const ecccSites = `SITE_NO,SITE_NAME,SITE_TYPE,LATITUDE,LONGITUDE,DATUM,PROV_TERR,PEARSEDA
01AA001,saint john river,RIVER/RIVIÈRE,45.1234567,-66.456789,NAD83,NB,saint john
01AA001,saint john river,RIVER/RIVIÈRE,45.1234567,-66.456789,NAD83,NB,saint john
02BB002,mira lake,LAKE/LAC,46.01,-60.02,WGS84,NS,mira
`

const ecccSamples = `SITE_NO,DATE_TIME_HEURE,VARIABLE,VALUE_VALEUR,UNIT_UNITE,STATUS_STATUT,FLAG_MARQUEUR,VMV_CODE,Method_Title
01AA001,1998-06-01 10:30:00,CALCIUM DISSOLVED,2.5,mg/L,V,,100101,Ca by ICP-MS
01AA001,1998-06-02 10:30:00,CALCIUM DISSOLVED,2500,ug/L,V,,100101,Ca by ICP-MS
02BB002,1998-06-03,PH,7.8,unit,V,,100230,pH electrode
`

func TestCleanerStandardizesECCC(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFile(t, in, "raw_sites_eccc.csv", ecccSites)
	writeFile(t, in, "raw_samples_eccc.csv", ecccSamples)

	res, err := NewCleaner(ECCC(), nil).Clean(context.Background(), in, out)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if len(res.Sites) != 2 {
		t.Fatalf("duplicate site row should be dropped: got %d sites", len(res.Sites))
	}
	site := res.Sites[0]
	if site.SiteID != "eccc:01aa001" {
		t.Fatalf("site id not namespaced: %q", site.SiteID)
	}
	if site.StateProvince != "New Brunswick" {
		t.Fatalf("province code not expanded: %q", site.StateProvince)
	}
	if site.Latitude != 45.123 {
		t.Fatalf("latitude not rounded to 3 decimals: %v", site.Latitude)
	}

	if len(res.Samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(res.Samples))
	}
	a, b := res.Samples[0], res.Samples[1]
	if a.Value != 2.5 || a.Unit != "mg/l" {
		t.Fatalf("first sample not standardized: %v %s", a.Value, a.Unit)
	}
	if b.Value != 2.5 || b.Unit != "mg/l" {
		t.Fatalf("ug/l sample should convert to 2.5 mg/l: %v %s", b.Value, b.Unit)
	}
	if a.MethodID != b.MethodID {
		t.Fatalf("identical method text should intern to one id")
	}
	if len(res.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(res.Methods))
	}

	// cleaned tables round-trip through the canonical CSV layer
	sites, err := csvio.ReadSites(filepath.Join(out, SiteOutput("eccc")))
	if err != nil {
		t.Fatalf("read cleaned sites: %v", err)
	}
	if len(sites) != 2 {
		t.Fatalf("cleaned site table has %d rows", len(sites))
	}
	samples, err := csvio.ReadSamples(filepath.Join(out, SampleOutput("eccc")))
	if err != nil {
		t.Fatalf("read cleaned samples: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("cleaned sample table has %d rows", len(samples))
	}
}

func TestCleanerAbortsOnUnrecognizedUnit(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFile(t, in, "raw_sites_eccc.csv", ecccSites)
	writeFile(t, in, "raw_samples_eccc.csv",
		strings.Replace(ecccSamples, "mg/L", "bananas", 1))

	_, err := NewCleaner(ECCC(), nil).Clean(context.Background(), in, out)
	if !errors.Is(err, units.ErrUnrecognizedUnit) {
		t.Fatalf("expected ErrUnrecognizedUnit, got %v", err)
	}
}

func TestCleanerAbortsOnMissingRequiredColumn(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFile(t, in, "raw_sites_eccc.csv", ecccSites)
	// VALUE_VALEUR column absent entirely
	writeFile(t, in, "raw_samples_eccc.csv",
		"SITE_NO,DATE_TIME_HEURE,VARIABLE,UNIT_UNITE\n01AA001,1998-06-01,PH,unit\n")

	_, err := NewCleaner(ECCC(), nil).Clean(context.Background(), in, out)
	if !errors.Is(err, schema.ErrMissingRequiredColumn) {
		t.Fatalf("expected ErrMissingRequiredColumn, got %v", err)
	}
}

const waterbaseSites = `monitoringSiteIdentifier,monitoringSiteName,waterBodyCategory,lat,lon,countryCode
IT001,adige river,RW,46.1,11.1,IT
`

const waterbaseSamples = `monitoringSiteIdentifier,phenomenonTimeSamplingDate,observedPropertyDeterminandCode,procedureAnalysedFraction,resultUom,resultObservedValue,resultQualityObservedValueBelowLOQ,metadata_observationStatus
IT001,2010-05-01,Ca,dissolved,mg/L,0.05,1,A
IT001,2010-05-02,Ca,dissolved,mg/L,2.4,0,A
`

func TestCleanerFlagsWaterbaseBelowLOQ(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFile(t, in, "raw_sites_waterbase.csv", waterbaseSites)
	writeFile(t, in, "raw_samples_waterbase.csv", waterbaseSamples)

	res, err := NewCleaner(Waterbase(), nil).Clean(context.Background(), in, out)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if len(res.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(res.Samples))
	}
	if !res.Samples[0].BelowLimit {
		t.Fatalf("below-LOQ flag '1' should set BelowLimit")
	}
	if res.Samples[1].BelowLimit {
		t.Fatalf("flag '0' should not set BelowLimit")
	}
}

func TestCleanerFlagsECCCTrace(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFile(t, in, "raw_sites_eccc.csv", ecccSites)
	// trace flag on the first calcium row
	writeFile(t, in, "raw_samples_eccc.csv",
		strings.Replace(ecccSamples, ",V,,100101", ",V,T,100101", 1))

	res, err := NewCleaner(ECCC(), nil).Clean(context.Background(), in, out)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if !res.Samples[0].BelowLimit {
		t.Fatalf("trace flag 'T' should set BelowLimit")
	}
	if res.Samples[1].BelowLimit || res.Samples[2].BelowLimit {
		t.Fatalf("unflagged rows should keep BelowLimit false")
	}
}

const mcmurdoSamples = `LOCATION NAME,DATE_TIME,DEPTH (m),METHOD,Cl,SO4
lake bonney,1/5/1995 11:00,5,ion chromatography,280,95
lake hoare,1/6/1995,4,ion chromatography,62,
`

const mcmurdoSites = `LOCATION NAME,LOCATION,LATITUDE,LONGITUDE
lake bonney,Taylor Valley,-77.716,162.46
lake hoare,Taylor Valley,-77.625,162.9
`

func TestCleanerRestructuresWideSource(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFile(t, in, "raw_sites_mcmurdo.csv", mcmurdoSites)
	writeFile(t, in, "raw_samples_mcmurdo.csv", mcmurdoSamples)

	res, err := NewCleaner(McMurdo(), nil).Clean(context.Background(), in, out)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	// 3 non-empty measurement cells
	if len(res.Samples) != 3 {
		t.Fatalf("expected 3 long samples, got %d", len(res.Samples))
	}
	for _, s := range res.Samples {
		if s.Unit != "mg/l" {
			t.Fatalf("ueq/L should standardize to mg/l, got %s", s.Unit)
		}
		if s.Analyte != "Chloride" && s.Analyte != "Sulfate" {
			t.Fatalf("analyte code not expanded: %s", s.Analyte)
		}
	}
}

func TestByName(t *testing.T) {
	if _, ok := ByName("gemstat"); !ok {
		t.Fatalf("gemstat should resolve")
	}
	if _, ok := ByName("nope"); ok {
		t.Fatalf("unknown source should not resolve")
	}
	if len(All()) != 6 {
		t.Fatalf("expected six built-in sources")
	}
	for _, s := range All() {
		if err := s.SiteMapping.Validate(); err != nil {
			t.Fatalf("%s site mapping: %v", s.Name, err)
		}
		if err := s.SampleMapping.Validate(); err != nil {
			t.Fatalf("%s sample mapping: %v", s.Name, err)
		}
	}
}
