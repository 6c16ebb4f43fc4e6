package models

import (
	"fmt"

	"github.com/bytedance/sonic"

	"annotationsr/pkg/errs"
)

// manifestWire mirrors the JSON form of a Manifest. Pointer fields let us tell
// a missing key apart from an empty value.
type manifestWire struct {
	Annotations      *[]annotationWire `json:"annotations"`
	StudyInstanceUID *string           `json:"study_instance_uid"`
	StudyID          *string           `json:"study_id"`
	PatientName      *string           `json:"patient_name"`
	PatientID        *string           `json:"patient_id"`
	PatientBirthDate *string           `json:"patient_birth_date"`
	PatientSex       *string           `json:"patient_sex"`
}

type annotationWire struct {
	Shape             *string    `json:"shape"`
	MeasurementName   *string    `json:"measurement_name"`
	MeasurementValue  *float64   `json:"measurement_value"`
	SOPClassUID       *string    `json:"sop_class_uid"`
	SeriesInstanceUID *string    `json:"series_instance_uid"`
	SOPInstanceUID    *string    `json:"sop_instance_uid"`
	Coordinates       *[]float64 `json:"coordinates"`
}

// ParseManifest decodes a manifest JSON document. Missing required keys yield
// an errs.SchemaError; a malformed annotation yields an errs.ValidationError.
func ParseManifest(data []byte) (*Manifest, error) {
	var wire manifestWire
	if err := sonic.Unmarshal(data, &wire); err != nil {
		return nil, &errs.SchemaError{Document: "manifest", Message: "invalid JSON", Err: err}
	}

	header := []struct {
		key string
		val *string
	}{
		{"study_instance_uid", wire.StudyInstanceUID},
		{"study_id", wire.StudyID},
		{"patient_name", wire.PatientName},
		{"patient_id", wire.PatientID},
		{"patient_birth_date", wire.PatientBirthDate},
		{"patient_sex", wire.PatientSex},
	}
	for _, h := range header {
		if h.val == nil {
			return nil, errs.NewSchema("manifest", h.key, "required key missing")
		}
	}
	if wire.Annotations == nil {
		return nil, errs.NewSchema("manifest", "annotations", "required key missing")
	}

	annotations := make([]Annotation, 0, len(*wire.Annotations))
	for i, aw := range *wire.Annotations {
		a, err := aw.toAnnotation(i)
		if err != nil {
			return nil, err
		}
		annotations = append(annotations, a)
	}

	patient := Patient{
		Name:      *wire.PatientName,
		ID:        *wire.PatientID,
		BirthDate: *wire.PatientBirthDate,
		Sex:       *wire.PatientSex,
	}
	return NewManifest(*wire.StudyInstanceUID, *wire.StudyID, patient, annotations)
}

func (aw annotationWire) toAnnotation(index int) (Annotation, error) {
	required := []struct {
		key string
		val *string
	}{
		{"shape", aw.Shape},
		{"measurement_name", aw.MeasurementName},
		{"sop_class_uid", aw.SOPClassUID},
		{"series_instance_uid", aw.SeriesInstanceUID},
		{"sop_instance_uid", aw.SOPInstanceUID},
	}
	for _, r := range required {
		if r.val == nil {
			return Annotation{}, errs.NewSchema("manifest", fmt.Sprintf("annotations[%d].%s", index, r.key), "required key missing")
		}
	}
	if aw.Coordinates == nil {
		return Annotation{}, errs.NewSchema("manifest", fmt.Sprintf("annotations[%d].coordinates", index), "required key missing")
	}

	shape, err := ParseShape(*aw.Shape)
	if err != nil {
		return Annotation{}, fmt.Errorf("annotation %d: %w", index, err)
	}
	a, err := NewAnnotation(shape, *aw.MeasurementName, aw.MeasurementValue,
		*aw.SOPClassUID, *aw.SeriesInstanceUID, *aw.SOPInstanceUID, *aw.Coordinates)
	if err != nil {
		return Annotation{}, fmt.Errorf("annotation %d: %w", index, err)
	}
	return a, nil
}
