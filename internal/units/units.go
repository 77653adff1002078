// Package units converts reported concentration and quantity values across
// heterogeneous unit conventions to one canonical unit per analyte.
//
// Mass, molar, and equivalent concentrations all reduce to grams per litre
// through the analyte's molar mass and valency, so any supported pair
// converts through a fixed scalar and round-trips exactly up to float error.
// Temperatures are the one affine case (deg F and K offsets).
package units

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnrecognizedUnit is returned when a reported unit label cannot be
// matched against the conversion table.
var ErrUnrecognizedUnit = errors.New("unrecognized unit")

// ErrNoIonProperties is returned for molar or equivalent conversions of an
// analyte whose constituent ions are unknown (e.g. Gran ANC).
var ErrNoIonProperties = errors.New("no ion properties for analyte")

type kind int

const (
	kindMass kind = iota
	kindMolar
	kindEquivalent
	kindTemperature
	kindDimensionless
)

// unitDef describes one accepted unit label: its family and the scalar to
// the family base unit (g/L, mol/L, eq/L; temperature handled separately).
type unitDef struct {
	kind   kind
	factor float64
}

var unitTable = map[string]unitDef{
	// mass concentration (base g/l)
	"g/l":  {kindMass, 1},
	"mg/l": {kindMass, 1e-3},
	"ug/l": {kindMass, 1e-6},
	"ng/l": {kindMass, 1e-9},
	"ppm":  {kindMass, 1e-3}, // treated as mg/l for surface water
	"ppb":  {kindMass, 1e-6},
	// molar concentration (base mol/l)
	"mol/l":  {kindMolar, 1},
	"mole/l": {kindMolar, 1},
	"mmol/l": {kindMolar, 1e-3},
	"umol/l": {kindMolar, 1e-6},
	// equivalent concentration (base eq/l)
	"eq/l":  {kindEquivalent, 1},
	"meq/l": {kindEquivalent, 1e-3},
	"ueq/l": {kindEquivalent, 1e-6},
	// temperature
	"deg c": {kindTemperature, 0},
	"deg f": {kindTemperature, 0},
	"deg k": {kindTemperature, 0},
	// pH and other dimensionless scales
	"unit": {kindDimensionless, 1},
	"none": {kindDimensionless, 1},
}

// Properties holds the molar mass (g/mol) and valency used to reduce molar
// and equivalent concentrations to mass.
//
// Assumptions carried over from the source metadata:
//   - Fe speciation assumed half Fe2+ / half Fe3+
//   - P speciation assumed one third each of P3-, P3+, P5+
//   - organic and inorganic carbon use the molar mass of C
//   - alkalinity and hardness analytes reported as CO3
type Properties struct {
	MolarMass float64
	Valency   float64
}

var analyteProperties = map[string]Properties{
	"Aluminum":                      {26.9815, 3},
	"Iron":                          {55.8450, 2.5},
	"Calcium":                       {40.0780, 2},
	"Magnesium":                     {24.3050, 2},
	"Potassium":                     {39.0983, 1},
	"Sodium":                        {22.9898, 1},
	"Sulfate":                       {96.0626, 2},
	"Nitrate":                       {62.0049, 1},
	"Nitrite":                       {46.0055, 4},
	"Ammonium":                      {18.0385, 1},
	"Chloride":                      {35.4530, 1},
	"Fluoride":                      {18.9984, 1},
	"Total Phosphorus, mixed forms": {30.9738, 3.7},
	"Orthophosphate":                {94.9714, 3},
	"Organic carbon":                {12.0107, 4},
	"Inorganic carbon":              {12.0107, 4},
	"Bicarbonate":                   {61.0170, 1},
	"Carbonate":                     {60.0090, 2},
	"Carbon Dioxide, free CO2":      {44.0095, 1},
	"Alkalinity, Phenolphthalein (total hydroxide+1/2 carbonate)": {60.0090, 2},
	"Alkalinity, carbonate":  {60.0090, 2},
	"Alkalinity, total":      {60.0090, 2},
	"Hardness, non-carbonate": {60.0090, 2},
	"Hardness, carbonate":    {60.0090, 2},
	"Total hardness":         {60.0090, 2},
	"Hardness, Calcium":      {60.0090, 2},
}

// analytes reported in ug/l; everything else with ion properties lands in mg/l.
var microgramAnalytes = map[string]bool{
	"Aluminum": true,
	"Iron":     true,
}

const (
	unitMicrogram = "ug/l"
	unitMilligram = "mg/l"
	unitCelsius   = "deg c"
	unitPH        = "unit"
)

// CanonicalUnit returns the target unit for an analyte.
func CanonicalUnit(analyte string) string {
	switch {
	case microgramAnalytes[analyte]:
		return unitMicrogram
	case analyte == "Temperature, water":
		return unitCelsius
	case analyte == "pH":
		return unitPH
	default:
		return unitMilligram
	}
}

// NormalizeLabel folds a reported unit label into table form: lower-cased,
// trimmed, internal whitespace collapsed to single spaces.
func NormalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}

// Standardize converts a reported value to the canonical unit for the
// analyte. The unit lookup is case and whitespace insensitive; labels not in
// the conversion table fail with ErrUnrecognizedUnit.
func Standardize(analyte string, value float64, unit string) (float64, string, error) {
	target := CanonicalUnit(analyte)
	converted, err := Convert(analyte, value, unit, target)
	if err != nil {
		return 0, "", err
	}
	return converted, target, nil
}

// Convert converts value between two supported units for the given analyte.
// Pure function; a fixed scalar multiply/divide per unit pair (temperature
// excepted, which is affine).
func Convert(analyte string, value float64, from, to string) (float64, error) {
	fromDef, err := lookup(from)
	if err != nil {
		return 0, err
	}
	toDef, err := lookup(to)
	if err != nil {
		return 0, err
	}
	if fromDef.kind == kindTemperature || toDef.kind == kindTemperature {
		if fromDef.kind != toDef.kind {
			return 0, fmt.Errorf("convert %s %q to %q: incompatible families", analyte, from, to)
		}
		return convertTemperature(value, NormalizeLabel(from), NormalizeLabel(to)), nil
	}
	if fromDef.kind == kindDimensionless || toDef.kind == kindDimensionless {
		if fromDef.kind != toDef.kind {
			return 0, fmt.Errorf("convert %s %q to %q: incompatible families", analyte, from, to)
		}
		return value, nil
	}

	grams, err := toGrams(analyte, value, fromDef)
	if err != nil {
		return 0, err
	}
	return fromGrams(analyte, grams, toDef)
}

func lookup(label string) (unitDef, error) {
	def, ok := unitTable[NormalizeLabel(label)]
	if !ok {
		return unitDef{}, fmt.Errorf("%w: %q", ErrUnrecognizedUnit, label)
	}
	return def, nil
}

func toGrams(analyte string, value float64, def unitDef) (float64, error) {
	switch def.kind {
	case kindMass:
		return value * def.factor, nil
	case kindMolar:
		props, ok := analyteProperties[analyte]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrNoIonProperties, analyte)
		}
		return value * def.factor * props.MolarMass, nil
	case kindEquivalent:
		props, ok := analyteProperties[analyte]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrNoIonProperties, analyte)
		}
		return value * def.factor * props.MolarMass / props.Valency, nil
	}
	return 0, fmt.Errorf("unsupported unit family")
}

func fromGrams(analyte string, grams float64, def unitDef) (float64, error) {
	switch def.kind {
	case kindMass:
		return grams / def.factor, nil
	case kindMolar:
		props, ok := analyteProperties[analyte]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrNoIonProperties, analyte)
		}
		return grams / (def.factor * props.MolarMass), nil
	case kindEquivalent:
		props, ok := analyteProperties[analyte]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrNoIonProperties, analyte)
		}
		return grams * props.Valency / (def.factor * props.MolarMass), nil
	}
	return 0, fmt.Errorf("unsupported unit family")
}

func convertTemperature(value float64, from, to string) float64 {
	// normalize to Celsius first
	var c float64
	switch from {
	case "deg f":
		c = (value - 32) / 1.8
	case "deg k":
		c = value - 273.15
	default:
		c = value
	}
	switch to {
	case "deg f":
		return c*1.8 + 32
	case "deg k":
		return c + 273.15
	default:
		return c
	}
}

// Admissible reports whether a standardized analyte/unit combination is in
// the accepted family for that analyte. Records failing this check indicate
// an upstream cleaning bug rather than a convertible unit.
func Admissible(analyte, unit string) bool {
	return NormalizeLabel(unit) == CanonicalUnit(analyte)
}

// IonProperties exposes the molar mass and valency table entry for an
// analyte, primarily for merge-time speciation arithmetic.
func IonProperties(analyte string) (Properties, bool) {
	p, ok := analyteProperties[analyte]
	return p, ok
}
