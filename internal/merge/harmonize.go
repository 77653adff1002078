package merge

import (
	"math"
	"sort"

	"swatch/pkg/canonical"
)

// Ion mass ratios for rewriting "as element" conventions to the ion itself.
const (
	ratioNitriteAsN  = 3.2845 // NO2 / N
	ratioNitrateAsN  = 4.4268 // NO3 / N
	ratioAmmoniumAsN = 1.2878 // NH4 / N
	ratioAsPToPO4    = 3.06   // PO4 / P
	ratioCaCO3ToCO3  = 0.60   // CO3 / CaCO3
)

// alkalinityAnalytes are reported "as CaCO3" by several programs and are
// rewritten to the carbonate ion convention.
var alkalinityAnalytes = map[string]bool{
	"Alkalinity, Phenolphthalein (total hydroxide+1/2 carbonate)": true,
	"Alkalinity, carbonate":   true,
	"Hardness, carbonate":     true,
	"Hardness, non-carbonate": true,
	"Total hardness":          true,
	"Hardness, Calcium":       true,
}

// screeningExempt analytes may legitimately report values at or below zero.
var screeningExempt = map[string]bool{
	"Alkalinity, Phenolphthalein (total hydroxide+1/2 carbonate)": true,
	"Alkalinity, carbonate":           true,
	"Alkalinity, total":               true,
	"Temperature, water":              true,
	"Gran acid neutralizing capacity": true,
}

// harmonizeSpeciation rewrites element-based reporting conventions to the
// ion conventions used by the unified tables.
func harmonizeSpeciation(s *canonical.Sample) {
	switch s.Speciation {
	case "as N":
		switch s.Analyte {
		case "Nitrite":
			s.Value *= ratioNitriteAsN
			s.Speciation = "as NO2"
		case "Nitrate":
			s.Value *= ratioNitrateAsN
			s.Speciation = "as NO3"
		case "Ammonium":
			s.Value *= ratioAmmoniumAsN
			s.Speciation = "as NH4"
		}
	case "as P":
		s.Value *= ratioAsPToPO4
		s.Speciation = "as PO4"
	case "as CaCO3":
		if alkalinityAnalytes[s.Analyte] {
			s.Value *= ratioCaCO3ToCO3
			s.Speciation = "as CO3"
		}
	}
}

// screen rejects physically impossible values. Rejected samples stay in the
// unified table under a rejected status so the exclusion is auditable.
func screen(s *canonical.Sample) {
	if s.Value <= 0 && !screeningExempt[s.Analyte] {
		s.Status = canonical.StatusRejected
	}
}

const outlierComment = "potential outlier: beyond four median absolute deviations"

// madScale is the consistency constant making the MAD comparable to a
// standard deviation under normality.
const madScale = 1.4826

type outlierKey struct {
	siteID     string
	analyte    string
	fraction   string
	speciation string
}

// flagOutliers annotates samples more than four scaled median absolute
// deviations from their group median. Rejected samples are excluded from
// the statistics but still receive flags. Returns the number flagged.
func flagOutliers(samples []canonical.Sample) int {
	groups := make(map[outlierKey][]int)
	for i, s := range samples {
		k := outlierKey{s.SiteID, s.Analyte, s.Fraction, s.Speciation}
		groups[k] = append(groups[k], i)
	}
	flagged := 0
	for _, idx := range groups {
		var values []float64
		for _, i := range idx {
			if samples[i].Status != canonical.StatusRejected && !math.IsNaN(samples[i].Value) {
				values = append(values, samples[i].Value)
			}
		}
		if len(values) < 3 {
			continue // too few observations for a robust spread
		}
		med := median(values)
		mad := medianAbsoluteDeviation(values, med)
		if mad == 0 {
			continue
		}
		lo, hi := med-4*mad, med+4*mad
		for _, i := range idx {
			v := samples[i].Value
			if v < lo || v > hi {
				appendComment(&samples[i], outlierComment)
				flagged++
			}
		}
	}
	return flagged
}

func appendComment(s *canonical.Sample, note string) {
	if s.Comment == "" {
		s.Comment = note
		return
	}
	s.Comment += "---" + note
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func medianAbsoluteDeviation(values []float64, med float64) float64 {
	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - med)
	}
	return median(dev) * madScale
}
