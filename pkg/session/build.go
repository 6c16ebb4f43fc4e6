package session

import (
	"fmt"
	"strconv"

	"annotationsr/internal/models"
	"annotationsr/pkg/errs"
)

// Sources is the dataset/data-source/path triple generated for a set of files
type Sources struct {
	Datasets        []Dataset
	DataSources     []DataSource
	DatasetFilePath map[string]string
}

// BuildDataSources generates the graph for pairs of dataset id and filename.
// Each pair takes three consecutive ids starting at 1: the collection source,
// the file source and the file id. Files are placed at data/<fileId>/<filename>.
func BuildDataSources(datasetIDs, filenames []string) (*Sources, error) {
	if len(datasetIDs) != len(filenames) {
		return nil, errs.NewValidation("filenames",
			fmt.Sprintf("got %d filenames for %d dataset ids", len(filenames), len(datasetIDs)))
	}

	out := &Sources{
		Datasets:        make([]Dataset, 0, len(datasetIDs)),
		DataSources:     make([]DataSource, 0, 2*len(datasetIDs)),
		DatasetFilePath: make(map[string]string, len(datasetIDs)),
	}

	nextID := 1
	for i, id := range datasetIDs {
		collectionID := nextID
		sourceID := nextID + 1
		fileID := nextID + 2

		out.Datasets = append(out.Datasets, Dataset{ID: id, DataSourceID: collectionID})
		out.DataSources = append(out.DataSources,
			DataSource{ID: sourceID, Type: TypeFile, FileID: &fileID, FileType: DICOMFileType},
			DataSource{ID: collectionID, Type: TypeCollection, Sources: []int{sourceID}},
		)
		out.DatasetFilePath[strconv.Itoa(fileID)] = fmt.Sprintf("data/%d/%s", fileID, filenames[i])

		nextID += 3
	}
	return out, nil
}

// NewViewerSession assembles a complete manifest around generated sources and
// saved ruler state, with the default single axial layout
func NewViewerSession(sources *Sources, rulers models.Rulers) *Manifest {
	primary := ""
	if n := len(sources.Datasets); n > 0 {
		primary = sources.Datasets[n-1].ID
	}
	rulers = rulers.Clone()
	if rulers.Tools == nil {
		rulers.Tools = []models.Ruler{}
	}

	return &Manifest{
		Version:         Version,
		Datasets:        sources.Datasets,
		DataSources:     sources.DataSources,
		DatasetFilePath: sources.DatasetFilePath,
		LabelMaps:       []any{},
		Tools: Tools{
			Paint:      Paint{ActiveSegment: 1, BrushSize: 4},
			Crop:       map[string]CropBounds{},
			Current:    "Ruler",
			Polygons:   ShapeTools{Tools: []any{}, Labels: map[string]models.ToolLabel{}},
			Rectangles: ShapeTools{Tools: []any{}, Labels: map[string]models.ToolLabel{}},
			Rulers:     rulers,
		},
		Layout:           Layout{Name: "Axial Only", Direction: "H", Items: []string{"Axial"}},
		Views:            []any{},
		ParentToLayers:   []any{},
		PrimarySelection: primary,
	}
}

// RulersForDataset returns the rulers drawn on the given dataset together
// with every label style, since labels are shared across datasets
func RulersForDataset(m *Manifest, datasetID string) models.Rulers {
	out := models.Rulers{
		Tools:  []models.Ruler{},
		Labels: make(map[string]models.ToolLabel, len(m.Tools.Rulers.Labels)),
	}
	for _, r := range m.Tools.Rulers.Tools {
		if r.ImageID == datasetID {
			out.Tools = append(out.Tools, r)
		}
	}
	for k, v := range m.Tools.Rulers.Labels {
		out.Labels[k] = v
	}
	return out
}
