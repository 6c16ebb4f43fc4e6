package sr

// Coding schemes
const (
	SchemeDCM     = "DCM"
	SchemeSRT     = "SRT"
	SchemeSCT     = "SCT"
	SchemeUCUM    = "UCUM"
	SchemeRFC5646 = "RFC5646"
	SchemeISO3166 = "ISO3166_1"
)

// Template identification for TID 1500
const (
	MappingResource = "DCMR"
	TemplateID      = "1500"
)

// SOP class and transfer syntax of the generated document
const (
	EnhancedSRStorage      = "1.2.840.10008.5.1.4.1.1.88.22"
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
)

// Document header flags
const (
	CompletionComplete     = "COMPLETE"
	VerificationUnverified = "UNVERIFIED"
)

// Measurement names recognized by the builder, after normalization
const (
	MeasurementLength    = "Length"
	MeasurementPerimeter = "Perimeter"
	MeasurementArea      = "Area"
)

// PerimeterNotComputed is reported as the Perimeter value of area
// measurements; the perimeter is never derived from the outline.
const PerimeterNotComputed = 0.0

// Concept names
var (
	CodeMeasurementReport   = Code{Value: "126000", Scheme: SchemeDCM, Meaning: "Imaging Measurement Report"}
	CodeLanguage            = Code{Value: "121049", Scheme: SchemeDCM, Meaning: "Language of Content Item and Descendants"}
	CodeCountry             = Code{Value: "121046", Scheme: SchemeDCM, Meaning: "Country of Language"}
	CodeObserverName        = Code{Value: "121008", Scheme: SchemeDCM, Meaning: "Person Observer Name"}
	CodeProcedureReported   = Code{Value: "121058", Scheme: SchemeDCM, Meaning: "Procedure reported"}
	CodeImageLibrary        = Code{Value: "111028", Scheme: SchemeDCM, Meaning: "Image Library"}
	CodeImageLibraryGroup   = Code{Value: "126200", Scheme: SchemeDCM, Meaning: "Image Library Group"}
	CodeImagingMeasurements = Code{Value: "126010", Scheme: SchemeDCM, Meaning: "Imaging Measurements"}
	CodeMeasurementGroup    = Code{Value: "125007", Scheme: SchemeDCM, Meaning: "Measurement Group"}
	CodeTrackingID          = Code{Value: "112039", Scheme: SchemeDCM, Meaning: "Tracking Identifier"}
	CodeTrackingUID         = Code{Value: "112040", Scheme: SchemeDCM, Meaning: "Tracking Unique Identifier"}

	CodeLength    = Code{Value: "G-D7FE", Scheme: SchemeSRT, Meaning: "Length"}
	CodePerimeter = Code{Value: "131191004", Scheme: SchemeSCT, Meaning: "Perimeter"}
	CodeArea      = Code{Value: "G-A166", Scheme: SchemeSRT, Meaning: "Area"}
)

// Concept values
var (
	CodeEnglish          = Code{Value: "eng", Scheme: SchemeRFC5646, Meaning: "English"}
	CodeUnitedStates     = Code{Value: "US", Scheme: SchemeISO3166, Meaning: "United States"}
	CodeUnknownProcedure = Code{Value: "1", Scheme: "99dcmjs", Meaning: "Unknown procedure"}
)

// Units
var (
	UnitMillimeter       = Code{Value: "mm", Scheme: SchemeUCUM, Meaning: "millimeter", SchemeVersion: "1.4"}
	UnitSquareMillimeter = Code{Value: "mm2", Scheme: SchemeUCUM, Meaning: "SquareMilliMeter", SchemeVersion: "1.4"}
)

// measurementConcepts maps a normalized measurement name to its concept and unit
var measurementConcepts = map[string]struct {
	concept Code
	unit    Code
}{
	MeasurementLength:    {CodeLength, UnitMillimeter},
	MeasurementPerimeter: {CodePerimeter, UnitMillimeter},
	MeasurementArea:      {CodeArea, UnitSquareMillimeter},
}
