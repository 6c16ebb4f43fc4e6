package dicomio

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"annotationsr/internal/models"
	"annotationsr/pkg/errs"
	"annotationsr/pkg/metadata"
	"annotationsr/pkg/sr"
)

// Fixed header values
const (
	DefaultSeriesDescription     = "annotationsr-sr"
	DefaultImplementationVersion = "SRGenV1.0"
	CharacterSetUTF8             = "ISO_IR 192"
	ModalitySR                   = "SR"
	Unspecified                  = "Unspecified"
	NotForClinicalUse            = "NOT FOR CLINICAL USE"
	QualificationResearch        = "RESEARCH"
)

// Options controls the instance header and the private channel
type Options struct {
	// SeriesInstanceUID places the report in an existing series; empty
	// generates a new series
	SeriesInstanceUID string

	SeriesDescription     string
	ImplementationVersion string
	AccessionNumber       string

	// Metadata is written to the private channel when set
	Metadata *metadata.Payload

	// Creator and Group locate the private channel
	Creator string
	Group   uint16

	UIDs   sr.UIDGenerator
	Now    func() time.Time
	Logger *slog.Logger
}

// DefaultOptions returns options that generate every UID and stamp the
// current time
func DefaultOptions() Options {
	return Options{
		SeriesDescription:     DefaultSeriesDescription,
		ImplementationVersion: DefaultImplementationVersion,
		Creator:               metadata.DefaultCreator,
		Group:                 metadata.DefaultGroup,
		UIDs:                  sr.UUIDGenerator{},
		Now:                   time.Now,
	}
}

func (o *Options) fill() {
	d := DefaultOptions()
	if o.SeriesDescription == "" {
		o.SeriesDescription = d.SeriesDescription
	}
	if o.ImplementationVersion == "" {
		o.ImplementationVersion = d.ImplementationVersion
	}
	if o.Creator == "" {
		o.Creator = d.Creator
	}
	if o.Group == 0 {
		o.Group = d.Group
	}
	if o.UIDs == nil {
		o.UIDs = d.UIDs
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// EncodeReport writes the document as a Part-10 Enhanced SR instance in
// explicit VR little endian. Nothing is written if any element fails to build.
func EncodeReport(w io.Writer, doc *sr.Document, manifest *models.Manifest, opts Options) error {
	ds, err := BuildDataset(doc, manifest, opts)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := dicom.Write(&buf, ds, dicom.SkipVRVerification()); err != nil {
		return &errs.EncodeError{Message: "write DICOM stream", Err: err}
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// MarshalReport is EncodeReport into a byte slice
func MarshalReport(doc *sr.Document, manifest *models.Manifest, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeReport(&buf, doc, manifest, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildDataset assembles the dataset EncodeReport writes
func BuildDataset(doc *sr.Document, manifest *models.Manifest, opts Options) (dicom.Dataset, error) {
	opts.fill()
	b := &builder{}

	seriesUID := opts.SeriesInstanceUID
	if seriesUID == "" {
		seriesUID = opts.UIDs.NewUID()
	}
	now := opts.Now()
	date, clock := now.Format("20060102"), now.Format("150405")

	// file meta
	b.add(tag.FileMetaInformationVersion, "OB", []byte{0x00, 0x01})
	b.add(tag.MediaStorageSOPClassUID, "UI", []string{sr.EnhancedSRStorage})
	b.add(tag.MediaStorageSOPInstanceUID, "UI", []string{doc.SOPInstanceUID})
	b.add(tag.TransferSyntaxUID, "UI", []string{sr.ExplicitVRLittleEndian})
	b.add(tag.ImplementationClassUID, "UI", []string{opts.UIDs.NewUID()})
	b.add(tag.ImplementationVersionName, "SH", []string{opts.ImplementationVersion})

	b.set(attrSpecificCharacterSet, CharacterSetUTF8)
	b.set(attrSOPClassUID, sr.EnhancedSRStorage)
	b.set(attrSOPInstanceUID, doc.SOPInstanceUID)
	b.set(attrStudyDate, date)
	b.set(attrContentDate, date)
	b.set(attrStudyTime, clock)
	b.set(attrContentTime, clock)
	b.set(attrAccessionNumber, opts.AccessionNumber)
	b.set(attrModality, ModalitySR)
	b.set(attrManufacturer, Unspecified)
	b.set(attrReferringPhysicianName, "")
	b.set(attrSeriesDescription, opts.SeriesDescription)
	b.set(attrManufacturerModelName, Unspecified)
	b.set(attrDeviceSerialNumber, "1")
	b.set(attrSoftwareVersions, opts.ImplementationVersion)
	b.set(attrContentQualification, QualificationResearch)
	b.set(attrImageComments, NotForClinicalUse)

	b.set(attrPatientName, manifest.Patient.Name)
	b.set(attrPatientID, manifest.Patient.ID)
	b.set(attrPatientBirthDate, manifest.Patient.BirthDate)
	b.set(attrPatientSex, manifest.Patient.Sex)

	b.set(attrStudyInstanceUID, manifest.StudyInstanceUID)
	b.set(attrSeriesInstanceUID, seriesUID)
	b.set(attrStudyID, manifest.StudyID)
	b.set(attrSeriesNumber, "1")
	b.set(attrInstanceNumber, "1")

	b.set(attrCompletionFlag, sr.CompletionComplete)
	b.set(attrVerificationFlag, sr.VerificationUnverified)
	b.seq(attrPerformedProcedureCodeSequence)
	b.seq(attrEvidenceSequence, evidenceItems(b, doc.Evidence)...)
	b.seq(attrContentTemplateSequence, b.items(
		b.str(attrMappingResource, doc.Template.MappingResource),
		b.str(attrTemplateIdentifier, doc.Template.TemplateID),
	))

	// the root content item's attributes live at the top level
	b.elems = append(b.elems, contentAttributes(b, doc.Root, true)...)

	if opts.Metadata != nil {
		if err := b.private(opts); err != nil {
			return dicom.Dataset{}, err
		}
	}

	if b.err != nil {
		return dicom.Dataset{}, b.err
	}
	sortElements(b.elems)

	opts.Logger.Debug("built SR dataset",
		"sop_instance_uid", doc.SOPInstanceUID,
		"series_instance_uid", seriesUID,
		"elements", len(b.elems),
		"private_metadata", opts.Metadata != nil)

	return dicom.Dataset{Elements: b.elems}, nil
}

// builder accumulates elements and keeps the first construction error
type builder struct {
	elems []*dicom.Element
	err   error
}

func (b *builder) element(t tag.Tag, vr string, data any) *dicom.Element {
	v, err := dicom.NewValue(data)
	if err != nil {
		if b.err == nil {
			b.err = &errs.EncodeError{Message: fmt.Sprintf("element %s", t), Err: err}
		}
		return nil
	}
	return &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    tag.GetVRKind(t, vr),
		RawValueRepresentation: vr,
		Value:                  v,
	}
}

func (b *builder) add(t tag.Tag, vr string, data any) {
	if e := b.element(t, vr, data); e != nil {
		b.elems = append(b.elems, e)
	}
}

func (b *builder) set(a attr, value string) {
	b.add(a.tag, a.vr, []string{value})
}

func (b *builder) seq(a attr, items ...[]*dicom.Element) {
	if items == nil {
		items = [][]*dicom.Element{}
	}
	b.add(a.tag, a.vr, items)
}

func (b *builder) str(a attr, value string) *dicom.Element {
	return b.element(a.tag, a.vr, []string{value})
}

func (b *builder) sq(a attr, items ...[]*dicom.Element) *dicom.Element {
	if items == nil {
		items = [][]*dicom.Element{}
	}
	return b.element(a.tag, a.vr, items)
}

// items drops nil elements and sorts the rest into one sequence item
func (b *builder) items(elems ...*dicom.Element) []*dicom.Element {
	out := make([]*dicom.Element, 0, len(elems))
	for _, e := range elems {
		if e != nil {
			out = append(out, e)
		}
	}
	sortElements(out)
	return out
}

func (b *builder) code(c sr.Code) []*dicom.Element {
	elems := []*dicom.Element{
		b.str(attrCodeValue, c.Value),
		b.str(attrCodingSchemeDesignator, c.Scheme),
		b.str(attrCodeMeaning, c.Meaning),
	}
	if c.SchemeVersion != "" {
		elems = append(elems, b.str(attrCodingSchemeVersion, c.SchemeVersion))
	}
	return b.items(elems...)
}

func (b *builder) sopRef(ref sr.SOPReference) []*dicom.Element {
	return b.items(
		b.str(attrReferencedSOPClassUID, ref.ClassUID),
		b.str(attrReferencedSOPInstanceUID, ref.InstanceUID),
	)
}

func (b *builder) private(opts Options) error {
	ids, err := metadata.MarshalDatasetIDs(opts.Metadata.DatasetIDs)
	if err != nil {
		return &errs.EncodeError{Message: "encode dataset ids", Err: err}
	}
	payload, err := opts.Metadata.Marshal()
	if err != nil {
		return err
	}
	b.add(tag.Tag{Group: opts.Group, Element: metadata.ElementCreator}, "LO", []string{opts.Creator})
	b.add(tag.Tag{Group: opts.Group, Element: metadata.ElementDatasetIDs}, "UT", []string{string(ids)})
	b.add(tag.Tag{Group: opts.Group, Element: metadata.ElementPayload}, "UT", []string{string(payload)})
	return nil
}

// evidenceItems writes one study item per evidence entry, each holding a
// single series with a single instance
func evidenceItems(b *builder, evidence []sr.EvidenceItem) [][]*dicom.Element {
	out := make([][]*dicom.Element, 0, len(evidence))
	for _, ev := range evidence {
		series := b.items(
			b.str(attrSeriesInstanceUID, ev.SeriesInstanceUID),
			b.sq(attrReferencedSOPSequence, b.sopRef(ev.Ref)),
		)
		out = append(out, b.items(
			b.str(attrStudyInstanceUID, ev.StudyInstanceUID),
			b.sq(attrReferencedSeriesSequence, series),
		))
	}
	return out
}

// contentAttributes maps one content item onto its attributes. The root
// carries no relationship type.
func contentAttributes(b *builder, item *sr.ContentItem, root bool) []*dicom.Element {
	elems := []*dicom.Element{b.str(attrValueType, string(item.ValueType()))}
	if !root {
		elems = append(elems, b.str(attrRelationshipType, string(item.Relationship)))
	}
	if item.ConceptName != nil {
		elems = append(elems, b.sq(attrConceptNameCodeSequence, b.code(*item.ConceptName)))
	}

	switch v := item.Value.(type) {
	case sr.ContainerValue:
		elems = append(elems, b.str(attrContinuityOfContent, v.Continuity))
	case sr.TextValue:
		elems = append(elems, b.str(attrTextValue, v.Text))
	case sr.CodeValue:
		elems = append(elems, b.sq(attrConceptCodeSequence, b.code(v.Code)))
	case sr.NumValue:
		var measured [][]*dicom.Element
		if v.Value != nil {
			measured = append(measured, b.items(
				b.sq(attrMeasurementUnitsCodeSequence, b.code(v.Unit)),
				b.str(attrNumericValue, FormatDS(*v.Value)),
			))
		}
		elems = append(elems, b.sq(attrMeasuredValueSequence, measured...))
	case sr.PersonNameValue:
		elems = append(elems, b.str(attrPersonName, v.Name))
	case sr.UIDRefValue:
		elems = append(elems, b.str(attrUID, v.UID))
	case sr.SCoordValue:
		elems = append(elems,
			b.str(attrGraphicType, v.GraphicType),
			b.element(attrGraphicData.tag, attrGraphicData.vr, append([]float64{}, v.GraphicData...)),
		)
	case sr.ImageValue:
		elems = append(elems, b.sq(attrReferencedSOPSequence, b.sopRef(v.Ref)))
	default:
		if b.err == nil {
			b.err = errs.NewEncode(fmt.Sprintf("content item has no encodable value (%T)", item.Value))
		}
	}

	if len(item.Children) > 0 {
		children := make([][]*dicom.Element, 0, len(item.Children))
		for _, child := range item.Children {
			children = append(children, b.items(contentAttributes(b, child, false)...))
		}
		elems = append(elems, b.sq(attrContentSequence, children...))
	}
	if root {
		return elems
	}
	return b.items(elems...)
}

// FormatDS renders v as a decimal string of at most 16 characters
func FormatDS(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	for prec := 15; len(s) > 16 && prec > 0; prec-- {
		s = strconv.FormatFloat(v, 'g', prec, 64)
	}
	return s
}

func sortElements(elems []*dicom.Element) {
	sort.SliceStable(elems, func(i, j int) bool {
		a, b := elems[i].Tag, elems[j].Tag
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Element < b.Element
	})
}
