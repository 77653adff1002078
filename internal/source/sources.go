package source

import "swatch/internal/schema"

// Dataset citation names carried on every record.
const (
	DatasetECCC      = "ECCC National Long-Term Water Quality Monitoring Data"
	DatasetWQP       = "Water Quality Portal"
	DatasetWaterbase = "European Environment Agency (EEA) Waterbase"
	DatasetMcMurdo   = "McMurdo Dry Valleys LTER"
	DatasetGloRiCh   = "GloRiCh"
	DatasetGEMStat   = "GEMStat"
)

// analyte vocabulary shared by coded sources (GEMStat, Waterbase codes and
// the common abbreviations used by research-station records).
var analyteNames = map[string]string{
	"Al":            "Aluminum",
	"Al-Dis":        "Aluminum",
	"Al-Tot":        "Aluminum",
	"Fe":            "Iron",
	"Ca":            "Calcium",
	"Ca-Dis":        "Calcium",
	"Mg":            "Magnesium",
	"Mg-Dis":        "Magnesium",
	"K":             "Potassium",
	"K-Dis":         "Potassium",
	"Na":            "Sodium",
	"Na-Dis":        "Sodium",
	"SO4":           "Sulfate",
	"SO4-Dis":       "Sulfate",
	"NO3":           "Nitrate",
	"NO2":           "Nitrite",
	"NH4":           "Ammonium",
	"Cl":            "Chloride",
	"Cl-Dis":        "Chloride",
	"F":             "Fluoride",
	"F-Dis":         "Fluoride",
	"PO4":           "Orthophosphate",
	"TP":            "Total Phosphorus, mixed forms",
	"TOC":           "Organic carbon",
	"DOC":           "Organic carbon",
	"DIC":           "Inorganic carbon",
	"HCO3":          "Bicarbonate",
	"CO3":           "Carbonate",
	"TEMP":          "Temperature, water",
	"CAS_7429-90-5": "Aluminum",
	"CAS_7439-89-6": "Iron",
	"EEA_3152-01-0": "Alkalinity, total",
}

// ECCC: Environment and Climate Change Canada national long-term monitoring.
func ECCC() Source {
	return Source{
		Name:       "eccc",
		Dataset:    DatasetECCC,
		SiteFile:   "raw_sites_eccc.csv",
		SampleFile: "raw_samples_eccc.csv",
		SiteMapping: schema.Mapping{
			Source: "eccc",
			Columns: map[string]string{
				"SITE_NO":   "site_id",
				"SITE_NAME": "site_name",
				"SITE_TYPE": "site_type",
				"LATITUDE":  "latitude",
				"LONGITUDE": "longitude",
				"DATUM":     "coordinate_system",
				"PROV_TERR": "state_province",
				"PEARSEDA":  "catchment_name",
			},
			Defaults: map[string]string{
				"dataset": DatasetECCC,
				"country": "Canada",
				"agency":  "ECCC",
			},
			Replacements: map[string]map[string]string{
				"site_type": {
					"RIVER/RIVIÈRE": "river",
					"LAKE/LAC":      "lake",
					"POND/ÉTANG":    "pond",
				},
				"state_province": provinceNames,
			},
			Required: []string{"site_id", "dataset"},
		},
		SampleMapping: schema.Mapping{
			Source: "eccc",
			Columns: map[string]string{
				"SITE_NO":         "site_id",
				"DATE_TIME_HEURE": "date",
				"VARIABLE":        "analyte",
				"VALUE_VALEUR":    "value",
				"UNIT_UNITE":      "unit",
				"STATUS_STATUT":   "status",
				"FLAG_MARQUEUR":   "bdl_flag",
				"VMV_CODE":        "method_id",
				"Method_Title":    "method_name",
			},
			Defaults: map[string]string{
				"dataset":  DatasetECCC,
				"fraction": "unspecified",
			},
			Replacements: map[string]map[string]string{
				"analyte": {
					"CALCIUM DISSOLVED":   "Calcium",
					"CHLORIDE DISSOLVED":  "Chloride",
					"MAGNESIUM DISSOLVED": "Magnesium",
					"SODIUM DISSOLVED":    "Sodium",
					"SULPHATE DISSOLVED":  "Sulfate",
					"TEMPERATURE WATER":   "Temperature, water",
					"PH":                  "pH",
				},
			},
			Required: []string{"site_id", "date", "analyte", "value", "unit", "dataset"},
		},
		DateLayouts: []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"},
	}
}

// WQP: United States Water Quality Portal (includes legacy STORET records).
func WQP() Source {
	return Source{
		Name:       "wqp",
		Dataset:    DatasetWQP,
		SiteFile:   "raw_sites_wqp.csv",
		SampleFile: "raw_samples_wqp.csv",
		SiteMapping: schema.Mapping{
			Source: "wqp",
			Columns: map[string]string{
				"MonitoringLocationIdentifier":                     "site_id",
				"MonitoringLocationName":                           "site_name",
				"MonitoringLocationTypeName":                       "site_type",
				"LatitudeMeasure":                                  "latitude",
				"LongitudeMeasure":                                 "longitude",
				"HorizontalCoordinateReferenceSystemDatumName":     "coordinate_system",
				"StateCode":                                        "state_province",
				"CountryCode":                                      "country",
				"OrganizationFormalName":                           "agency",
			},
			Defaults: map[string]string{"dataset": DatasetWQP},
			Replacements: map[string]map[string]string{
				"coordinate_system": {"UNKWN": "WGS84"}, // assumed
			},
			Required: []string{"site_id", "dataset"},
		},
		SampleMapping: schema.Mapping{
			Source: "wqp",
			Columns: map[string]string{
				"MonitoringLocationIdentifier":                "site_id",
				"ActivityStartDate":                           "date",
				"ActivityStartTime/Time":                      "time",
				"CharacteristicName":                          "analyte",
				"ResultSampleFractionText":                    "fraction",
				"MethodSpecificationName":                     "speciation",
				"ResultMeasureValue":                          "value",
				"ResultMeasure/MeasureUnitCode":               "unit",
				"ResultDepthHeightMeasure/MeasureValue":       "depth",
				"ResultDetectionConditionText":                "bdl_flag",
				"ResultStatusIdentifier":                      "status",
				"ResultCommentText":                           "comment",
				"ResultAnalyticalMethod/MethodIdentifier":     "method_id",
				"ResultAnalyticalMethod/MethodName":           "method_name",
				"ResultAnalyticalMethod/MethodDescriptionText": "method_description",
			},
			Defaults: map[string]string{"dataset": DatasetWQP},
			Required: []string{"site_id", "date", "analyte", "value", "unit", "dataset"},
		},
		DateLayouts: []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"},
	}
}

// Waterbase: EEA Waterbase disaggregated water quality data.
func Waterbase() Source {
	return Source{
		Name:       "waterbase",
		Dataset:    DatasetWaterbase,
		SiteFile:   "raw_sites_waterbase.csv",
		SampleFile: "raw_samples_waterbase.csv",
		SiteMapping: schema.Mapping{
			Source: "waterbase",
			Columns: map[string]string{
				"monitoringSiteIdentifier": "site_id",
				"monitoringSiteName":       "site_name",
				"waterBodyCategory":        "site_type",
				"lat":                      "latitude",
				"lon":                      "longitude",
				"countryCode":              "country",
			},
			Defaults: map[string]string{
				"dataset":           DatasetWaterbase,
				"coordinate_system": "WGS84",
				"agency":            "EEA",
			},
			Replacements: map[string]map[string]string{
				"site_type": {"RW": "river", "LW": "lake", "GW": "groundwater"},
			},
			Required: []string{"site_id", "dataset"},
		},
		SampleMapping: schema.Mapping{
			Source: "waterbase",
			Columns: map[string]string{
				"monitoringSiteIdentifier":           "site_id",
				"phenomenonTimeSamplingDate":         "date",
				"observedPropertyDeterminandCode":    "analyte",
				"procedureAnalysedFraction":          "fraction",
				"parameterSampleDepth":               "depth",
				"procedureAnalyticalMethod":          "method_description",
				"resultUom":                          "unit",
				"resultObservedValue":                "value",
				"resultQualityObservedValueBelowLOQ": "bdl_flag",
				"metadata_observationStatus":         "status",
			},
			Defaults: map[string]string{"dataset": DatasetWaterbase},
			Replacements: map[string]map[string]string{
				"analyte": analyteNames,
				"status":  {"V": "preliminary", "A": "validated"},
			},
			Required: []string{"site_id", "date", "analyte", "value", "unit", "dataset"},
		},
		DateLayouts: []string{"2006-01-02", "2006-01-02 15:04:05"},
	}
}

// McMurdo: McMurdo Dry Valleys LTER lake and stream chemistry. Raw tables
// are wide (one column per analyte).
func McMurdo() Source {
	return Source{
		Name:       "mcmurdo",
		Dataset:    DatasetMcMurdo,
		SiteFile:   "raw_sites_mcmurdo.csv",
		SampleFile: "raw_samples_mcmurdo.csv",
		Wide:       true,
		InfoCols:   []string{"LOCATION NAME", "DATE_TIME", "DEPTH (m)", "METHOD"},
		SiteMapping: schema.Mapping{
			Source: "mcmurdo",
			Columns: map[string]string{
				"LOCATION NAME": "site_id",
				"LOCATION":      "site_name",
				"LATITUDE":      "latitude",
				"LONGITUDE":     "longitude",
			},
			Defaults: map[string]string{
				"dataset":           DatasetMcMurdo,
				"site_type":         "lake",
				"coordinate_system": "WGS84",
				"country":           "Antarctica",
				"agency":            "MCM LTER",
			},
			Required: []string{"site_id", "dataset"},
		},
		SampleMapping: schema.Mapping{
			Source: "mcmurdo",
			Columns: map[string]string{
				"LOCATION NAME": "site_id",
				"DATE_TIME":     "date",
				"DEPTH (m)":     "depth",
				"METHOD":        "method_description",
				"analyte":       "analyte",
				"value":         "value",
			},
			Defaults: map[string]string{
				"dataset":  DatasetMcMurdo,
				"unit":     "ueq/L",
				"fraction": "filtered",
			},
			Replacements: map[string]map[string]string{
				"analyte": analyteNames,
			},
			Required: []string{"site_id", "date", "analyte", "value", "unit", "dataset"},
		},
		DateLayouts: []string{"1/2/2006 15:04", "1/2/2006", "2006-01-02 15:04", "2006-01-02"},
	}
}

// GloRiCh: Global River Chemistry database.
func GloRiCh() Source {
	return Source{
		Name:       "glorich",
		Dataset:    DatasetGloRiCh,
		SiteFile:   "raw_sites_glorich.csv",
		SampleFile: "raw_samples_glorich.csv",
		SiteMapping: schema.Mapping{
			Source: "glorich",
			Columns: map[string]string{
				"STAT_ID":          "site_id",
				"STATION_NAME":     "site_name",
				"STATION_ID_ORIG":  "site_id_orig",
				"State":            "state_province",
				"Country":          "country",
				"CoordinateSystem": "coordinate_system",
				"Latitude":         "latitude",
				"Longitude":        "longitude",
				"Catch_ID":         "catchment_name",
			},
			Defaults: map[string]string{
				"dataset":   DatasetGloRiCh,
				"site_type": "river",
			},
			Replacements: map[string]map[string]string{
				"state_province": provinceNames,
			},
			Required: []string{"site_id", "dataset"},
		},
		SampleMapping: schema.Mapping{
			Source: "glorich",
			Columns: map[string]string{
				"STAT_ID":       "site_id",
				"RESULT_DATUM":  "date",
				"analyte_name":  "analyte",
				"value":         "value",
				"unit":          "unit",
				"sample_method": "method_description",
			},
			Defaults: map[string]string{
				"dataset":  DatasetGloRiCh,
				"fraction": "unspecified",
			},
			Replacements: map[string]map[string]string{
				"analyte": analyteNames,
			},
			Required: []string{"site_id", "date", "analyte", "value", "unit", "dataset"},
		},
		DateLayouts: []string{"2006-01-02", "02.01.2006", "2006-01-02 15:04:05"},
	}
}

// GEMStat: UNEP GEMS/Water global freshwater quality database.
func GEMStat() Source {
	return Source{
		Name:       "gemstat",
		Dataset:    DatasetGEMStat,
		SiteFile:   "raw_sites_gemstat.csv",
		SampleFile: "raw_samples_gemstat.csv",
		SiteMapping: schema.Mapping{
			Source: "gemstat",
			Columns: map[string]string{
				"GEMS Station Number":           "site_id",
				"Station Identifier":            "site_name",
				"Water Type":                    "site_type",
				"Country Name":                  "country",
				"Main Basin":                    "catchment_name",
				"Responsible Collection Agency": "agency",
				"Latitude":                      "latitude",
				"Longitude":                     "longitude",
			},
			Defaults: map[string]string{
				"dataset":           DatasetGEMStat,
				"coordinate_system": "WGS84",
			},
			Replacements: map[string]map[string]string{
				"site_type": {
					"River station":     "river",
					"Lake station":      "lake",
					"Reservoir station": "reservoir",
				},
			},
			Required: []string{"site_id", "dataset"},
		},
		SampleMapping: schema.Mapping{
			Source: "gemstat",
			Columns: map[string]string{
				"GEMS Station Number":  "site_id",
				"Sample Date":          "date",
				"Sample Time":          "time",
				"Depth":                "depth",
				"Parameter Code":       "analyte",
				"Analysis Method Code": "method_id",
				"Method Name":          "method_name",
				"Method Description":   "method_description",
				"Value Flags":          "bdl_flag",
				"Value":                "value",
				"Unit":                 "unit",
				"Data Quality":         "status",
			},
			Defaults: map[string]string{
				"dataset":  DatasetGEMStat,
				"fraction": "unspecified",
			},
			Replacements: map[string]map[string]string{
				"analyte": analyteNames,
				"status": {
					"Good":    "validated",
					"Fair":    "validated",
					"Suspect": "rejected",
					"Poor":    "rejected",
				},
			},
			Required: []string{"site_id", "date", "analyte", "value", "unit", "dataset"},
		},
		DateLayouts: []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"},
	}
}

// All returns the built-in sources in national-program-first order, the
// precedence used for cross-source duplicate resolution.
func All() []Source {
	return []Source{ECCC(), WQP(), Waterbase(), McMurdo(), GloRiCh(), GEMStat()}
}

// ByName resolves a built-in source by its short name.
func ByName(name string) (Source, bool) {
	for _, s := range All() {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

// provinceNames expands the two-letter codes used by the Canadian sources.
var provinceNames = map[string]string{
	"AB": "Alberta",
	"BC": "British Columbia",
	"MB": "Manitoba",
	"NB": "New Brunswick",
	"NL": "Newfoundland and Labrador",
	"NS": "Nova Scotia",
	"NT": "Northwest Territories",
	"NU": "Nunavut",
	"ON": "Ontario",
	"PE": "Prince Edward Island",
	"QC": "Quebec",
	"SK": "Saskatchewan",
	"YT": "Yukon",
	"AK": "Alaska",
}
