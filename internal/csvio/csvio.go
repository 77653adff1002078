// Package csvio reads raw source tables and round-trips the canonical
// site/sample/method tables through CSV, the interchange format between
// pipeline stages.
package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"swatch/internal/schema"
	"swatch/pkg/canonical"
)

const timeLayout = time.RFC3339

// ReadRaw reads a CSV file into header-keyed rows. Ragged rows are padded
// or truncated against the header; the context is checked periodically so
// long scans can be cancelled.
func ReadRaw(ctx context.Context, path string) ([]schema.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	var rows []schema.Row
	for i := 0; ; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: %w", path, i+2, err)
		}
		row := make(schema.Row, len(header))
		for j, col := range header {
			if j < len(record) {
				row[col] = record[j]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var siteHeader = []string{
	"site_id", "site_name", "site_type", "latitude", "longitude",
	"coordinate_system", "state_province", "country", "catchment_name",
	"agency", "dataset",
}

var sampleHeader = []string{
	"site_id", "method_id", "analyte", "fraction", "speciation", "value",
	"unit", "timestamp", "depth", "bdl_flag", "status", "comment", "dataset",
}

var methodHeader = []string{
	"method_id", "description", "technique", "analyte", "first_used", "last_used",
}

// WriteSites writes the canonical site table.
func WriteSites(path string, sites []canonical.Site) error {
	return writeTable(path, siteHeader, len(sites), func(i int) []string {
		s := sites[i]
		return []string{
			s.SiteID, s.Name, s.Type,
			formatFloat(s.Latitude), formatFloat(s.Longitude),
			s.CRS, s.StateProvince, s.Country, s.CatchmentName,
			s.Agency, s.Dataset,
		}
	})
}

// ReadSites reads a canonical site table.
func ReadSites(path string) ([]canonical.Site, error) {
	rows, err := readTable(path, siteHeader)
	if err != nil {
		return nil, err
	}
	sites := make([]canonical.Site, 0, len(rows))
	for i, rec := range rows {
		lat, err := parseFloat(rec[3])
		if err != nil {
			return nil, fmt.Errorf("%s row %d latitude: %w", path, i+2, err)
		}
		lon, err := parseFloat(rec[4])
		if err != nil {
			return nil, fmt.Errorf("%s row %d longitude: %w", path, i+2, err)
		}
		sites = append(sites, canonical.Site{
			SiteID: rec[0], Name: rec[1], Type: rec[2],
			Latitude: lat, Longitude: lon, CRS: rec[5],
			StateProvince: rec[6], Country: rec[7], CatchmentName: rec[8],
			Agency: rec[9], Dataset: rec[10],
		})
	}
	return sites, nil
}

// WriteSamples writes the canonical sample table.
func WriteSamples(path string, samples []canonical.Sample) error {
	return writeTable(path, sampleHeader, len(samples), func(i int) []string {
		s := samples[i]
		return []string{
			s.SiteID, s.MethodID, s.Analyte, s.Fraction, s.Speciation,
			formatFloat(s.Value), s.Unit, s.Timestamp.UTC().Format(timeLayout),
			formatFloat(s.Depth), formatBool(s.BelowLimit), s.Status,
			s.Comment, s.Dataset,
		}
	})
}

// ReadSamples reads a canonical sample table.
func ReadSamples(path string) ([]canonical.Sample, error) {
	rows, err := readTable(path, sampleHeader)
	if err != nil {
		return nil, err
	}
	samples := make([]canonical.Sample, 0, len(rows))
	for i, rec := range rows {
		value, err := parseFloat(rec[5])
		if err != nil {
			return nil, fmt.Errorf("%s row %d value: %w", path, i+2, err)
		}
		ts, err := time.Parse(timeLayout, rec[7])
		if err != nil {
			return nil, fmt.Errorf("%s row %d timestamp: %w", path, i+2, err)
		}
		depth, err := parseFloat(rec[8])
		if err != nil {
			return nil, fmt.Errorf("%s row %d depth: %w", path, i+2, err)
		}
		samples = append(samples, canonical.Sample{
			SiteID: rec[0], MethodID: rec[1], Analyte: rec[2],
			Fraction: rec[3], Speciation: rec[4], Value: value, Unit: rec[6],
			Timestamp: ts, Depth: depth, BelowLimit: rec[9] == "true",
			Status: rec[10], Comment: rec[11], Dataset: rec[12],
		})
	}
	return samples, nil
}

// WriteMethods writes the canonical method table.
func WriteMethods(path string, methods []canonical.Method) error {
	return writeTable(path, methodHeader, len(methods), func(i int) []string {
		m := methods[i]
		return []string{
			m.MethodID, m.Description, m.Technique, m.Analyte,
			formatTime(m.FirstUsed), formatTime(m.LastUsed),
		}
	})
}

// ReadMethods reads a canonical method table.
func ReadMethods(path string) ([]canonical.Method, error) {
	rows, err := readTable(path, methodHeader)
	if err != nil {
		return nil, err
	}
	methods := make([]canonical.Method, 0, len(rows))
	for i, rec := range rows {
		first, err := parseTime(rec[4])
		if err != nil {
			return nil, fmt.Errorf("%s row %d first_used: %w", path, i+2, err)
		}
		last, err := parseTime(rec[5])
		if err != nil {
			return nil, fmt.Errorf("%s row %d last_used: %w", path, i+2, err)
		}
		methods = append(methods, canonical.Method{
			MethodID: rec[0], Description: rec[1], Technique: rec[2],
			Analyte: rec[3], FirstUsed: first, LastUsed: last,
		})
	}
	return methods, nil
}

func writeTable(path string, header []string, n int, record func(int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("write header %s: %w", path, err)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(record(i)); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s row %d: %w", path, i+2, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func readTable(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	r := csv.NewReader(f)
	got, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	if len(got) != len(header) {
		return nil, fmt.Errorf("%s: expected %d columns, got %d", path, len(header), len(got))
	}
	for i, col := range header {
		if got[i] != col {
			return nil, fmt.Errorf("%s: column %d is %q, expected %q", path, i, got[i], col)
		}
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}
