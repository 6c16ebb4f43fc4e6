package dicomio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"annotationsr/internal/models"
	"annotationsr/pkg/errs"
	"annotationsr/pkg/metadata"
)

// PrivateMetadata is the private channel read from one instance
type PrivateMetadata struct {
	Creator    string
	DatasetIDs []string
	Payload    *metadata.Payload
}

// Summary is the identifying header of a stored report
type Summary struct {
	SOPClassUID       string
	SOPInstanceUID    string
	StudyInstanceUID  string
	SeriesInstanceUID string
	Modality          string
	Patient           models.Patient
	CompletionFlag    string
	VerificationFlag  string

	// ContentItems counts the items of the content tree, root included
	ContentItems int
}

// Parse reads a Part-10 stream, skipping any pixel data
func Parse(data []byte) (dicom.Dataset, error) {
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil, dicom.SkipPixelData())
	if err != nil {
		return dicom.Dataset{}, &errs.SchemaError{Document: "dicom", Message: "unreadable Part-10 stream", Err: err}
	}
	return ds, nil
}

// ReadPrivateMetadata extracts the private channel written by EncodeReport.
// The block is located by its creator string; an instance without it yields
// an error matching errs.ErrNotFound.
func ReadPrivateMetadata(data []byte, creator string, group uint16) (*PrivateMetadata, error) {
	if creator == "" {
		creator = metadata.DefaultCreator
	}
	if group == 0 {
		group = metadata.DefaultGroup
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return PrivateMetadataFrom(ds, creator, group)
}

// PrivateMetadataFrom extracts the private channel from a parsed dataset
func PrivateMetadataFrom(ds dicom.Dataset, creator string, group uint16) (*PrivateMetadata, error) {
	path := fmt.Sprintf("(%04X,%04X)", group, metadata.ElementCreator)
	got, err := stringValue(ds, tag.Tag{Group: group, Element: metadata.ElementCreator})
	if err != nil {
		return nil, errs.NewNotFound("dicom", path, "private creator missing")
	}
	if strings.TrimSpace(got) != creator {
		return nil, errs.NewNotFound("dicom", path, fmt.Sprintf("creator is %q, want %q", got, creator))
	}

	out := &PrivateMetadata{Creator: creator}

	idsText, err := stringValue(ds, tag.Tag{Group: group, Element: metadata.ElementDatasetIDs})
	if err == nil {
		if out.DatasetIDs, err = metadata.UnmarshalDatasetIDs([]byte(strings.TrimSpace(idsText))); err != nil {
			return nil, err
		}
	}

	payloadText, err := stringValue(ds, tag.Tag{Group: group, Element: metadata.ElementPayload})
	if err != nil {
		return nil, errs.NewNotFound("dicom", fmt.Sprintf("(%04X,%04X)", group, metadata.ElementPayload), "metadata payload missing")
	}
	if out.Payload, err = metadata.Unmarshal([]byte(strings.TrimSpace(payloadText))); err != nil {
		return nil, err
	}
	if out.DatasetIDs == nil {
		out.DatasetIDs = out.Payload.DatasetIDs
	}
	return out, nil
}

// ReadSummary reads the identifying header of a stored report
func ReadSummary(data []byte) (*Summary, error) {
	ds, err := Parse(data)
	if err != nil {
		return nil, err
	}
	get := func(a attr) string {
		s, _ := stringValue(ds, a.tag)
		return s
	}
	s := &Summary{
		SOPClassUID:       get(attrSOPClassUID),
		SOPInstanceUID:    get(attrSOPInstanceUID),
		StudyInstanceUID:  get(attrStudyInstanceUID),
		SeriesInstanceUID: get(attrSeriesInstanceUID),
		Modality:          get(attrModality),
		Patient: models.Patient{
			Name:      get(attrPatientName),
			ID:        get(attrPatientID),
			BirthDate: get(attrPatientBirthDate),
			Sex:       get(attrPatientSex),
		},
		CompletionFlag:   get(attrCompletionFlag),
		VerificationFlag: get(attrVerificationFlag),
	}
	if s.SOPClassUID == "" {
		return nil, errs.NewSchema("dicom", "SOPClassUID", "required attribute missing")
	}
	s.ContentItems = 1 + countContent(ds.Elements)
	return s, nil
}

func countContent(elems []*dicom.Element) int {
	n := 0
	for _, e := range elems {
		if e.Tag != attrContentSequence.tag {
			continue
		}
		items, ok := e.Value.GetValue().([]*dicom.SequenceItemValue)
		if !ok {
			continue
		}
		for _, item := range items {
			n += 1 + countContent(item.GetValue().([]*dicom.Element))
		}
	}
	return n
}

var errNotString = errors.New("element is not a string value")

func stringValue(ds dicom.Dataset, t tag.Tag) (string, error) {
	e, err := ds.FindElementByTag(t)
	if err != nil {
		return "", err
	}
	values, ok := e.Value.GetValue().([]string)
	if !ok {
		return "", errNotString
	}
	trimmed := make([]string, len(values))
	for i, v := range values {
		trimmed[i] = strings.TrimRight(v, " \x00")
	}
	return strings.Join(trimmed, `\`), nil
}
