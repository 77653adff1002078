package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCLIUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := cli(nil, &out, &errOut); code != 2 {
		t.Fatalf("no args: code = %d, want 2", code)
	}
	if !strings.Contains(errOut.String(), "usage:") {
		t.Fatalf("missing usage: %s", errOut.String())
	}
}

func TestCLIUnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := cli([]string{"explode"}, &out, &errOut); code != 2 {
		t.Fatalf("code = %d, want 2", code)
	}
}

func TestCLIClean(t *testing.T) {
	in := t.TempDir()
	work := t.TempDir()
	sites := "SITE_NO,SITE_NAME,SITE_TYPE,LATITUDE,LONGITUDE,DATUM,PROV_TERR,PEARSEDA\n" +
		"01AA001,saint john river,RIVER,45.1,-66.4,WGS84,NB,saint john\n"
	samples := "SITE_NO,DATE_TIME_HEURE,VARIABLE,VALUE_VALEUR,UNIT_UNITE,STATUS_STATUT,FLAG_MARQUEUR,VMV_CODE,Method_Title\n" +
		"01AA001,1998-06-01,PH,7.8,unit,V,,100230,pH electrode\n"
	if err := os.WriteFile(filepath.Join(in, "raw_sites_eccc.csv"), []byte(sites), 0o600); err != nil {
		t.Fatalf("write sites: %v", err)
	}
	if err := os.WriteFile(filepath.Join(in, "raw_samples_eccc.csv"), []byte(samples), 0o600); err != nil {
		t.Fatalf("write samples: %v", err)
	}

	var out, errOut bytes.Buffer
	code := cli([]string{"clean", "-input", in, "-work", work, "-sources", "eccc"}, &out, &errOut)
	if code != 0 {
		t.Fatalf("code = %d, stderr: %s", code, errOut.String())
	}
	var summaries []map[string]any
	if err := json.Unmarshal(out.Bytes(), &summaries); err != nil {
		t.Fatalf("output not json: %v\n%s", err, out.String())
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	if _, err := os.Stat(filepath.Join(work, "cleaned_samples_eccc.csv")); err != nil {
		t.Fatalf("cleaned output missing: %v", err)
	}
}
