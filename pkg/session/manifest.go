// Package session reads and builds the viewer-session manifest: the datasets,
// the data-source graph that links them to files and the saved tool state.
package session

import (
	"github.com/bytedance/sonic"

	"annotationsr/internal/models"
	"annotationsr/pkg/errs"
)

// Version is written into manifests built by this package
const Version = "5.0.1"

// Data source record types
const (
	TypeCollection = "collection"
	TypeFile       = "file"
)

// DICOMFileType is the fileType of file sources pointing at DICOM instances
const DICOMFileType = "application/dicom"

// Dataset is a loaded dataset and the data source it came from
type Dataset struct {
	ID           string `json:"id"`
	DataSourceID int    `json:"dataSourceId"`
}

// DataSource is one node of the data-source graph. Collection sources list
// child source ids; file sources carry the key into DatasetFilePath.
type DataSource struct {
	ID       int    `json:"id"`
	Type     string `json:"type"`
	Sources  []int  `json:"sources,omitempty"`
	FileID   *int   `json:"fileId,omitempty"`
	FileType string `json:"fileType,omitempty"`
}

// Crosshairs is the crosshair tool state
type Crosshairs struct {
	Position [3]float64 `json:"position"`
}

// Paint is the paint tool state
type Paint struct {
	ActiveSegmentGroupID *string `json:"activeSegmentGroupID"`
	ActiveSegment        int     `json:"activeSegment"`
	BrushSize            int     `json:"brushSize"`
}

// CropBounds holds per-axis crop planes for one dataset
type CropBounds struct {
	Sagittal [2]float64 `json:"Sagittal"`
	Coronal  [2]float64 `json:"Coronal"`
	Axial    [2]float64 `json:"Axial"`
}

// ShapeTools is the state of a tool family whose tools are not interpreted here
type ShapeTools struct {
	Tools  []any                       `json:"tools"`
	Labels map[string]models.ToolLabel `json:"labels"`
}

// Tools is the saved tool state
type Tools struct {
	Crosshairs Crosshairs            `json:"crosshairs"`
	Paint      Paint                 `json:"paint"`
	Crop       map[string]CropBounds `json:"crop"`
	Current    string                `json:"current"`
	Polygons   ShapeTools            `json:"polygons"`
	Rectangles ShapeTools            `json:"rectangles"`
	Rulers     models.Rulers         `json:"rulers"`
}

// Layout is the viewer layout
type Layout struct {
	Name      string   `json:"name"`
	Direction string   `json:"direction"`
	Items     []string `json:"items"`
}

// Manifest is a viewer-session manifest.json
type Manifest struct {
	Version          string            `json:"version"`
	Datasets         []Dataset         `json:"datasets"`
	DataSources      []DataSource      `json:"dataSources"`
	DatasetFilePath  map[string]string `json:"datasetFilePath"`
	LabelMaps        []any             `json:"labelMaps"`
	Tools            Tools             `json:"tools"`
	Layout           Layout            `json:"layout"`
	Views            []any             `json:"views"`
	ParentToLayers   []any             `json:"parentToLayers"`
	PrimarySelection string            `json:"primarySelection"`
}

// DatasetIDs returns the dataset ids in manifest order
func (m *Manifest) DatasetIDs() []string {
	ids := make([]string, len(m.Datasets))
	for i, d := range m.Datasets {
		ids[i] = d.ID
	}
	return ids
}

// Dataset returns the dataset entry with the given id
func (m *Manifest) Dataset(id string) (Dataset, bool) {
	for _, d := range m.Datasets {
		if d.ID == id {
			return d, true
		}
	}
	return Dataset{}, false
}

// ParseManifest decodes a manifest.json. The graph keys (datasets,
// dataSources, datasetFilePath) are required; tool and layout state is optional.
func ParseManifest(data []byte) (*Manifest, error) {
	var probe struct {
		Datasets        *[]Dataset         `json:"datasets"`
		DataSources     *[]DataSource      `json:"dataSources"`
		DatasetFilePath *map[string]string `json:"datasetFilePath"`
	}
	if err := sonic.Unmarshal(data, &probe); err != nil {
		return nil, &errs.SchemaError{Document: "session", Message: "invalid JSON", Err: err}
	}
	switch {
	case probe.Datasets == nil:
		return nil, errs.NewSchema("session", "datasets", "required key missing")
	case probe.DataSources == nil:
		return nil, errs.NewSchema("session", "dataSources", "required key missing")
	case probe.DatasetFilePath == nil:
		return nil, errs.NewSchema("session", "datasetFilePath", "required key missing")
	}

	var m Manifest
	if err := sonic.Unmarshal(data, &m); err != nil {
		return nil, &errs.SchemaError{Document: "session", Message: "invalid JSON", Err: err}
	}
	if m.Tools.Rulers.Labels == nil {
		m.Tools.Rulers.Labels = map[string]models.ToolLabel{}
	}
	return &m, nil
}

// Marshal encodes the manifest with indentation
func (m *Manifest) Marshal() ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(m, "", "    ")
}
