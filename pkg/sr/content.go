// Package sr builds coded Structured Report content trees (TID 1500
// "Measurement Report") from a manifest of annotations.
package sr

import (
	"github.com/bytedance/sonic"
)

// ValueType is the closed set of content item value types used by reports
type ValueType string

const (
	ValueTypeContainer  ValueType = "CONTAINER"
	ValueTypeNum        ValueType = "NUM"
	ValueTypeText       ValueType = "TEXT"
	ValueTypeCode       ValueType = "CODE"
	ValueTypePersonName ValueType = "PNAME"
	ValueTypeUIDRef     ValueType = "UIDREF"
	ValueTypeSCoord     ValueType = "SCOORD"
	ValueTypeImage      ValueType = "IMAGE"
)

// RelationshipType links a content item to its parent
type RelationshipType string

const (
	RelContains      RelationshipType = "CONTAINS"
	RelHasObsContext RelationshipType = "HAS OBS CONTEXT"
	RelHasConceptMod RelationshipType = "HAS CONCEPT MOD"
	RelSelectedFrom  RelationshipType = "SELECTED FROM"
	RelInferredFrom  RelationshipType = "INFERRED FROM"
)

// Continuity values for containers
const (
	ContinuitySeparate   = "SEPARATE"
	ContinuityContinuous = "CONTINUOUS"
)

// GraphicTypePolyline is the only graphic type emitted for annotation outlines
const GraphicTypePolyline = "POLYLINE"

// Code is a coded concept triple with an optional scheme version
type Code struct {
	Value         string `json:"value"`
	Scheme        string `json:"scheme"`
	Meaning       string `json:"meaning"`
	SchemeVersion string `json:"schemeVersion,omitempty"`
}

// SOPReference identifies one stored instance by class and instance UID
type SOPReference struct {
	ClassUID    string `json:"referencedSOPClassUID"`
	InstanceUID string `json:"referencedSOPInstanceUID"`
}

// Content is the value payload of a content item. Exactly one concrete type
// exists per ValueType.
type Content interface {
	ValueType() ValueType
	isContent()
}

// ContainerValue carries no value beyond its continuity flag
type ContainerValue struct {
	Continuity string `json:"continuityOfContent"`
}

// TextValue is a free-text value
type TextValue struct {
	Text string `json:"textValue"`
}

// CodeValue is a coded value
type CodeValue struct {
	Code Code `json:"conceptCode"`
}

// NumValue is a numeric measurement with its unit. A nil Value means the
// measurement was not recorded; the unit is still reported.
type NumValue struct {
	Value *float64 `json:"numericValue"`
	Unit  Code     `json:"measurementUnits"`
}

// PersonNameValue is a DICOM person name (components separated by ^)
type PersonNameValue struct {
	Name string `json:"personName"`
}

// UIDRefValue references a UID
type UIDRefValue struct {
	UID string `json:"uid"`
}

// SCoordValue is a spatial coordinate graphic in image pixel space
type SCoordValue struct {
	GraphicType string    `json:"graphicType"`
	GraphicData []float64 `json:"graphicData"`
}

// ImageValue references the image a measurement was taken on
type ImageValue struct {
	Ref SOPReference `json:"referencedSOP"`
}

func (ContainerValue) ValueType() ValueType  { return ValueTypeContainer }
func (TextValue) ValueType() ValueType       { return ValueTypeText }
func (CodeValue) ValueType() ValueType       { return ValueTypeCode }
func (NumValue) ValueType() ValueType        { return ValueTypeNum }
func (PersonNameValue) ValueType() ValueType { return ValueTypePersonName }
func (UIDRefValue) ValueType() ValueType     { return ValueTypeUIDRef }
func (SCoordValue) ValueType() ValueType     { return ValueTypeSCoord }
func (ImageValue) ValueType() ValueType      { return ValueTypeImage }

func (ContainerValue) isContent()  {}
func (TextValue) isContent()       {}
func (CodeValue) isContent()       {}
func (NumValue) isContent()        {}
func (PersonNameValue) isContent() {}
func (UIDRefValue) isContent()     {}
func (SCoordValue) isContent()     {}
func (ImageValue) isContent()      {}

// ContentItem is one node of a report content tree
type ContentItem struct {
	// Relationship links the item to its parent; empty for the document root
	Relationship RelationshipType

	// ConceptName is nil for image references, which carry no concept name
	ConceptName *Code

	Value    Content
	Children []*ContentItem
}

// ValueType returns the type of the item's value payload
func (c *ContentItem) ValueType() ValueType {
	return c.Value.ValueType()
}

// Add appends children and returns the item for chaining
func (c *ContentItem) Add(children ...*ContentItem) *ContentItem {
	c.Children = append(c.Children, children...)
	return c
}

// Walk visits the item and its descendants depth first. Returning false from
// fn skips the item's children.
func (c *ContentItem) Walk(fn func(depth int, item *ContentItem) bool) {
	c.walk(0, fn)
}

func (c *ContentItem) walk(depth int, fn func(int, *ContentItem) bool) {
	if !fn(depth, c) {
		return
	}
	for _, child := range c.Children {
		child.walk(depth+1, fn)
	}
}

// Find returns the direct children whose concept name has the given code value
func (c *ContentItem) Find(codeValue string) []*ContentItem {
	var out []*ContentItem
	for _, child := range c.Children {
		if child.ConceptName != nil && child.ConceptName.Value == codeValue {
			out = append(out, child)
		}
	}
	return out
}

type contentItemJSON struct {
	Relationship RelationshipType `json:"relationshipType,omitempty"`
	ValueType    ValueType        `json:"valueType"`
	ConceptName  *Code            `json:"conceptName,omitempty"`
	Value        Content          `json:"value"`
	Children     []*ContentItem   `json:"children,omitempty"`
}

// MarshalJSON emits the item with an explicit valueType discriminator
func (c *ContentItem) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(contentItemJSON{
		Relationship: c.Relationship,
		ValueType:    c.ValueType(),
		ConceptName:  c.ConceptName,
		Value:        c.Value,
		Children:     c.Children,
	})
}
