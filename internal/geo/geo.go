// Package geo harmonizes site coordinates into WGS84 and renders the merged
// site table as a GeoJSON point layer.
package geo

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"swatch/pkg/canonical"
)

// WGS84 is the canonical coordinate reference system label.
const WGS84 = "WGS84"

type ellipsoid struct {
	a float64 // semi-major axis (m)
	f float64 // flattening
}

// datum pairs a source ellipsoid with its geocentric offsets to WGS84.
type datum struct {
	ell        ellipsoid
	dx, dy, dz float64
}

var wgs84 = ellipsoid{a: 6378137.0, f: 1 / 298.257223563}

// Shifts use the standard abridged Molodensky parameters; NAD27 values are
// the CONUS mean. NAD83 is treated as coincident with WGS84 at the metre
// precision of the source data.
var datums = map[string]datum{
	"NAD27": {ell: ellipsoid{a: 6378206.4, f: 1 / 294.9786982}, dx: -8, dy: 160, dz: 176},
	"NAD83": {ell: wgs84, dx: 0, dy: 0, dz: 0},
}

// ToWGS84 shifts a coordinate from the named reference system into WGS84.
// Unknown systems are passed through unchanged with ok=false so the caller
// can decide whether to keep the original CRS label.
func ToWGS84(crs string, lat, lon float64) (outLat, outLon float64, ok bool) {
	if crs == WGS84 {
		return lat, lon, true
	}
	d, found := datums[crs]
	if !found {
		return lat, lon, false
	}
	if d.dx == 0 && d.dy == 0 && d.dz == 0 && d.ell == wgs84 {
		return lat, lon, true
	}
	dLat, dLon := molodensky(lat, lon, d)
	return lat + dLat, lon + dLon, true
}

// molodensky computes the abridged Molodensky latitude/longitude shifts in
// degrees for a point at ellipsoid height zero.
func molodensky(lat, lon float64, d datum) (dLatDeg, dLonDeg float64) {
	phi := lat * math.Pi / 180
	lam := lon * math.Pi / 180

	a := d.ell.a
	f := d.ell.f
	da := wgs84.a - a
	df := wgs84.f - f

	e2 := 2*f - f*f
	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	sinLam := math.Sin(lam)
	cosLam := math.Cos(lam)

	w := math.Sqrt(1 - e2*sinPhi*sinPhi)
	rm := a * (1 - e2) / (w * w * w) // meridional radius of curvature
	rn := a / w                      // prime vertical radius of curvature

	dPhi := (-d.dx*sinPhi*cosLam - d.dy*sinPhi*sinLam + d.dz*cosPhi +
		(a*df+f*da)*math.Sin(2*phi)) / rm
	dLam := (-d.dx*sinLam + d.dy*cosLam) / (rn * cosPhi)

	return dPhi * 180 / math.Pi, dLam * 180 / math.Pi
}

// SiteLayer renders the site table as a GeoJSON FeatureCollection with one
// point feature per site.
func SiteLayer(sites []canonical.Site) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, s := range sites {
		if math.IsNaN(s.Latitude) || math.IsNaN(s.Longitude) {
			continue
		}
		f := geojson.NewFeature(orb.Point{s.Longitude, s.Latitude})
		f.ID = s.SiteID
		f.Properties = geojson.Properties{
			"site_id":        s.SiteID,
			"site_name":      s.Name,
			"site_type":      s.Type,
			"state_province": s.StateProvince,
			"country":        s.Country,
			"dataset":        s.Dataset,
		}
		fc.Append(f)
	}
	raw, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("encode site layer: %w", err)
	}
	return raw, nil
}
