package geo

import (
	"encoding/json"
	"math"
	"testing"

	"swatch/pkg/canonical"
)

func TestToWGS84PassthroughAndNAD83(t *testing.T) {
	lat, lon, ok := ToWGS84(WGS84, 45.0, -66.0)
	if !ok || lat != 45.0 || lon != -66.0 {
		t.Fatalf("WGS84 should pass through: %v %v %v", lat, lon, ok)
	}
	lat, lon, ok = ToWGS84("NAD83", 45.0, -66.0)
	if !ok || lat != 45.0 || lon != -66.0 {
		t.Fatalf("NAD83 treated as coincident: %v %v %v", lat, lon, ok)
	}
}

func TestToWGS84ShiftsNAD27(t *testing.T) {
	lat, lon, ok := ToWGS84("NAD27", 45.0, -66.0)
	if !ok {
		t.Fatalf("NAD27 should be supported")
	}
	dLat := math.Abs(lat - 45.0)
	dLon := math.Abs(lon - (-66.0))
	if dLat == 0 && dLon == 0 {
		t.Fatalf("NAD27 shift should move the point")
	}
	// shift magnitude in eastern Canada is tens of metres, well under 0.01 deg
	if dLat > 0.01 || dLon > 0.01 {
		t.Fatalf("implausible NAD27 shift: dlat=%v dlon=%v", dLat, dLon)
	}
}

func TestToWGS84UnknownSystem(t *testing.T) {
	lat, lon, ok := ToWGS84("TOKYO", 35.0, 139.0)
	if ok {
		t.Fatalf("unknown CRS should report ok=false")
	}
	if lat != 35.0 || lon != 139.0 {
		t.Fatalf("unknown CRS must pass coordinates through")
	}
}

func TestSiteLayer(t *testing.T) {
	sites := []canonical.Site{
		{SiteID: "eccc:01aa001", Name: "Saint John River", Latitude: 45.1, Longitude: -66.4, Dataset: "eccc"},
		{SiteID: "glorich:nocoords", Latitude: math.NaN(), Longitude: math.NaN(), Dataset: "glorich"},
	}
	raw, err := SiteLayer(sites)
	if err != nil {
		t.Fatalf("layer: %v", err)
	}
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(raw, &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Fatalf("expected 1 feature collection entry, got %+v", fc)
	}
	f := fc.Features[0]
	if f.Geometry.Type != "Point" || f.Geometry.Coordinates[0] != -66.4 {
		t.Fatalf("unexpected geometry: %+v", f.Geometry)
	}
	if f.Properties["site_id"] != "eccc:01aa001" {
		t.Fatalf("unexpected properties: %+v", f.Properties)
	}
}
