package sr

import (
	"fmt"
	"log/slog"

	"annotationsr/internal/models"
)

// Defaults for the fixed header and tracking items
const (
	DefaultObserverName       = "unknown^unknown"
	DefaultTrackingIdentifier = "Cornerstone3DTools@^0.1.0:Length"
)

// Template names the content template a document follows
type Template struct {
	MappingResource string `json:"mappingResource"`
	TemplateID      string `json:"templateIdentifier"`
}

// EvidenceItem links the document to one source image. One item is emitted
// per annotation; items are not merged by series.
type EvidenceItem struct {
	StudyInstanceUID  string       `json:"studyInstanceUID"`
	SeriesInstanceUID string       `json:"seriesInstanceUID"`
	Ref               SOPReference `json:"referencedSOP"`
}

// Document is a built report: the content tree plus the header structures
// that accompany it
type Document struct {
	// SOPInstanceUID is freshly generated for every build
	SOPInstanceUID string `json:"sopInstanceUID"`

	Root     *ContentItem   `json:"content"`
	Evidence []EvidenceItem `json:"evidence"`
	Template Template       `json:"template"`
}

// MeasurementGroups returns the measurement group containers in manifest order
func (d *Document) MeasurementGroups() []*ContentItem {
	for _, section := range d.Root.Find(CodeImagingMeasurements.Value) {
		return section.Children
	}
	return nil
}

// Builder converts manifests into report documents. A Builder holds no
// per-document state and may be shared between goroutines.
type Builder struct {
	uids               UIDGenerator
	observerName       string
	trackingIdentifier string
	logger             *slog.Logger
}

// Option configures a Builder
type Option func(*Builder)

// WithUIDGenerator replaces the UID source, e.g. for deterministic tests
func WithUIDGenerator(g UIDGenerator) Option {
	return func(b *Builder) { b.uids = g }
}

// WithObserverName sets the Person Observer Name value
func WithObserverName(name string) Option {
	return func(b *Builder) { b.observerName = name }
}

// WithTrackingIdentifier sets the Tracking Identifier text of every group
func WithTrackingIdentifier(id string) Option {
	return func(b *Builder) { b.trackingIdentifier = id }
}

// WithLogger sets the logger used for build diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// NewBuilder creates a Builder with the given options
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		uids:               UUIDGenerator{},
		observerName:       DefaultObserverName,
		trackingIdentifier: DefaultTrackingIdentifier,
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build converts a manifest into a report document. Any invalid annotation
// aborts the build; no partial document is returned.
func (b *Builder) Build(manifest *models.Manifest) (*Document, error) {
	annotations := manifest.Annotations()
	for i, a := range annotations {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
	}

	measurements := container(RelContains, CodeImagingMeasurements)
	for _, a := range annotations {
		measurements.Add(b.measurementGroup(a))
	}

	root := &ContentItem{
		ConceptName: codePtr(CodeMeasurementReport),
		Value:       ContainerValue{Continuity: ContinuitySeparate},
	}
	root.Add(
		languageItem(),
		b.observerItem(),
		procedureItem(),
		imageLibrary(annotations),
		measurements,
	)

	evidence := make([]EvidenceItem, 0, len(annotations))
	for _, a := range annotations {
		evidence = append(evidence, EvidenceItem{
			StudyInstanceUID:  manifest.StudyInstanceUID,
			SeriesInstanceUID: a.SeriesInstanceUID,
			Ref:               sopRef(a),
		})
	}

	b.logger.Debug("built measurement report",
		"study_instance_uid", manifest.StudyInstanceUID,
		"annotations", len(annotations))

	return &Document{
		SOPInstanceUID: b.uids.NewUID(),
		Root:           root,
		Evidence:       evidence,
		Template:       Template{MappingResource: MappingResource, TemplateID: TemplateID},
	}, nil
}

func codePtr(c Code) *Code {
	return &c
}

func sopRef(a models.Annotation) SOPReference {
	return SOPReference{ClassUID: a.SOPClassUID, InstanceUID: a.SOPInstanceUID}
}

func container(rel RelationshipType, concept Code) *ContentItem {
	return &ContentItem{
		Relationship: rel,
		ConceptName:  codePtr(concept),
		Value:        ContainerValue{Continuity: ContinuitySeparate},
	}
}

func languageItem() *ContentItem {
	country := &ContentItem{
		Relationship: RelHasConceptMod,
		ConceptName:  codePtr(CodeCountry),
		Value:        CodeValue{Code: CodeUnitedStates},
	}
	language := &ContentItem{
		Relationship: RelHasConceptMod,
		ConceptName:  codePtr(CodeLanguage),
		Value:        CodeValue{Code: CodeEnglish},
	}
	return language.Add(country)
}

func (b *Builder) observerItem() *ContentItem {
	return &ContentItem{
		Relationship: RelHasObsContext,
		ConceptName:  codePtr(CodeObserverName),
		Value:        PersonNameValue{Name: b.observerName},
	}
}

func procedureItem() *ContentItem {
	return &ContentItem{
		Relationship: RelHasConceptMod,
		ConceptName:  codePtr(CodeProcedureReported),
		Value:        CodeValue{Code: CodeUnknownProcedure},
	}
}

func imageLibrary(annotations []models.Annotation) *ContentItem {
	group := container(RelContains, CodeImageLibraryGroup)
	for _, a := range annotations {
		group.Add(&ContentItem{
			Relationship: RelContains,
			Value:        ImageValue{Ref: sopRef(a)},
		})
	}
	return container(RelContains, CodeImageLibrary).Add(group)
}

func (b *Builder) measurementGroup(a models.Annotation) *ContentItem {
	group := container(RelContains, CodeMeasurementGroup)
	group.Add(
		&ContentItem{
			Relationship: RelHasObsContext,
			ConceptName:  codePtr(CodeTrackingID),
			Value:        TextValue{Text: b.trackingIdentifier},
		},
		&ContentItem{
			Relationship: RelHasObsContext,
			ConceptName:  codePtr(CodeTrackingUID),
			Value:        UIDRefValue{UID: b.uids.NewUID()},
		},
	)

	switch name := a.NormalizedName(); name {
	case MeasurementLength:
		group.Add(numItem(MeasurementLength, a.MeasurementValue, a))
	case MeasurementPerimeter, MeasurementArea:
		perimeter := PerimeterNotComputed
		group.Add(
			numItem(MeasurementPerimeter, &perimeter, a),
			numItem(MeasurementArea, a.MeasurementValue, a),
		)
	default:
		b.logger.Warn("measurement name has no coded concept; group left without a value",
			"measurement_name", a.MeasurementName,
			"sop_instance_uid", a.SOPInstanceUID)
	}
	return group
}

// numItem builds a NUM item with its SCOORD outline and the image the outline
// was drawn on
func numItem(name string, value *float64, a models.Annotation) *ContentItem {
	concept := measurementConcepts[name]
	if value != nil {
		v := *value
		value = &v
	}

	image := &ContentItem{
		Relationship: RelSelectedFrom,
		Value:        ImageValue{Ref: sopRef(a)},
	}
	outline := &ContentItem{
		Relationship: RelInferredFrom,
		Value: SCoordValue{
			GraphicType: GraphicTypePolyline,
			GraphicData: append([]float64(nil), a.Coordinates...),
		},
	}
	outline.Add(image)

	num := &ContentItem{
		Relationship: RelContains,
		ConceptName:  codePtr(concept.concept),
		Value:        NumValue{Value: value, Unit: concept.unit},
	}
	return num.Add(outline)
}
