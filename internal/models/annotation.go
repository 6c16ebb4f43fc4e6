package models

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"annotationsr/pkg/errs"
)

// Shape is the geometric primitive an annotation was drawn with
type Shape string

const (
	// ShapeLine is a two-point ruler: x1, y1, x2, y2
	ShapeLine Shape = "Line"

	// ShapeRectangle is a closed five-point polyline (10 values)
	ShapeRectangle Shape = "Rectangle"
)

// coordinateCounts holds the exact number of coordinate values each shape carries
var coordinateCounts = map[Shape]int{
	ShapeLine:      4,
	ShapeRectangle: 10,
}

// ParseShape converts the wire form of a shape into a Shape
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case ShapeLine, ShapeRectangle:
		return Shape(s), nil
	default:
		return "", errs.NewValidation("shape", fmt.Sprintf("unknown shape %q", s))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Shape) UnmarshalText(text []byte) error {
	parsed, err := ParseShape(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// Annotation represents one derived measurement drawn on a referenced image
type Annotation struct {
	// Shape is the primitive the measurement was drawn with
	Shape Shape `json:"shape"`

	// MeasurementName selects the coded concept, e.g. "Length" or "Area"
	MeasurementName string `json:"measurement_name"`

	// MeasurementValue is the measured quantity; nil when the tool produced none
	MeasurementValue *float64 `json:"measurement_value,omitempty"`

	// SOPClassUID, SeriesInstanceUID and SOPInstanceUID identify the source image
	SOPClassUID       string `json:"sop_class_uid"`
	SeriesInstanceUID string `json:"series_instance_uid"`
	SOPInstanceUID    string `json:"sop_instance_uid"`

	// Coordinates are the graphic data in image pixel space, kept verbatim
	Coordinates []float64 `json:"coordinates"`
}

// NewAnnotation builds an Annotation and validates its coordinate invariant
func NewAnnotation(shape Shape, name string, value *float64, sopClassUID, seriesUID, sopInstanceUID string, coords []float64) (Annotation, error) {
	a := Annotation{
		Shape:             shape,
		MeasurementName:   name,
		MeasurementValue:  value,
		SOPClassUID:       sopClassUID,
		SeriesInstanceUID: seriesUID,
		SOPInstanceUID:    sopInstanceUID,
		Coordinates:       append([]float64(nil), coords...),
	}
	if err := a.Validate(); err != nil {
		return Annotation{}, err
	}
	return a, nil
}

// Validate checks that the coordinate count matches the shape
func (a Annotation) Validate() error {
	want, ok := coordinateCounts[a.Shape]
	if !ok {
		return errs.NewValidation("shape", fmt.Sprintf("unknown shape %q", string(a.Shape)))
	}
	if len(a.Coordinates) != want {
		return errs.NewValidation("coordinates",
			fmt.Sprintf("%s requires exactly %d coordinate values, got %d", a.Shape, want, len(a.Coordinates)))
	}
	return nil
}

// NormalizedName returns the measurement name with its first letter upper
// cased and the rest lower cased, so "length" and "LENGTH" both map to "Length".
func (a Annotation) NormalizedName() string {
	name := a.MeasurementName
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + strings.ToLower(name[size:])
}

// Value returns the measurement value, or 0 when none was recorded
func (a Annotation) Value() float64 {
	if a.MeasurementValue == nil {
		return 0
	}
	return *a.MeasurementValue
}

func (a Annotation) String() string {
	coords := fmt.Sprint(a.Coordinates)
	if len(a.Coordinates) > 6 {
		coords = fmt.Sprintf("%d values", len(a.Coordinates))
	}
	value := "none"
	if a.MeasurementValue != nil {
		value = fmt.Sprint(*a.MeasurementValue)
	}
	return fmt.Sprintf("Annotation(shape=%s, name=%q, value=%s, series=%s, sop=%s, coords=%s)",
		a.Shape, a.MeasurementName, value, a.SeriesInstanceUID, a.SOPInstanceUID, coords)
}

// Patient holds the patient module values copied into generated reports
type Patient struct {
	Name      string `json:"patient_name"`
	ID        string `json:"patient_id"`
	BirthDate string `json:"patient_birth_date"`
	Sex       string `json:"patient_sex"`
}

// Manifest is the study-level set of annotations produced by one save request.
// It is immutable once built: the annotation list is only reachable through
// copies.
type Manifest struct {
	StudyInstanceUID string
	StudyID          string
	Patient          Patient

	annotations []Annotation
}

// NewManifest validates every annotation and returns a Manifest. The first
// invalid annotation aborts construction.
func NewManifest(studyInstanceUID, studyID string, patient Patient, annotations []Annotation) (*Manifest, error) {
	for i, a := range annotations {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
	}
	copied := make([]Annotation, len(annotations))
	for i, a := range annotations {
		a.Coordinates = append([]float64(nil), a.Coordinates...)
		copied[i] = a
	}
	return &Manifest{
		StudyInstanceUID: studyInstanceUID,
		StudyID:          studyID,
		Patient:          patient,
		annotations:      copied,
	}, nil
}

// Annotations returns a copy of the manifest's annotations in order
func (m *Manifest) Annotations() []Annotation {
	out := make([]Annotation, len(m.annotations))
	for i, a := range m.annotations {
		a.Coordinates = append([]float64(nil), a.Coordinates...)
		out[i] = a
	}
	return out
}

// Len returns the number of annotations
func (m *Manifest) Len() int {
	return len(m.annotations)
}
