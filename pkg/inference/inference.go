// Package inference parses responses from the segmentation and measurement
// inference service into segmentation objects and ruler tools.
package inference

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
	"gonum.org/v1/gonum/floats"

	"annotationsr/internal/models"
	"annotationsr/pkg/errs"
	"annotationsr/pkg/segmentation"
)

// StageTRL is the stage given to CEJ to apex rulers
const StageTRL = "trl"

type segmentationResponse struct {
	YoloResults *struct {
		Contents *[]contentWire `json:"yolov8_contents"`
	} `json:"yolo_results"`
}

type contentWire struct {
	ClassID *float64  `json:"class_id"`
	Points  []float64 `json:"points"`
}

// Segmentation is a parsed segmentation response
type Segmentation struct {
	Objects []models.SegmentedObject

	// Positions holds the response position of each entry in Objects
	Positions []int

	// Skipped lists entries that could not become objects; Index is the
	// entry's position in the response
	Skipped []segmentation.Diagnostic
}

// Diagnostics merges Skipped with compositor diagnostics for Objects. The
// compositor indexes into Objects, so those indices are mapped back to
// response positions. The result is ordered by position.
func (s *Segmentation) Diagnostics(composited []segmentation.Diagnostic) []segmentation.Diagnostic {
	out := make([]segmentation.Diagnostic, 0, len(s.Skipped)+len(composited))
	out = append(out, s.Skipped...)
	for _, d := range composited {
		if d.Index >= 0 && d.Index < len(s.Positions) {
			pos := s.Positions[d.Index]
			var decodeErr *errs.DecodeError
			if errors.As(d.Err, &decodeErr) {
				d.Err = &errs.DecodeError{Index: pos, ClassID: decodeErr.ClassID, Message: decodeErr.Message}
			}
			d.Index = pos
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ParseSegmentation reads yolo_results.yolov8_contents. Each entry's points
// hold the run lengths followed by the bbox corners x1 y1 x2 y2. Entries with
// no class_id or fewer than four points are skipped.
func ParseSegmentation(data []byte) (*Segmentation, error) {
	var resp segmentationResponse
	if err := sonic.Unmarshal(data, &resp); err != nil {
		return nil, &errs.SchemaError{Document: "segmentation response", Message: "invalid JSON", Err: err}
	}
	if resp.YoloResults == nil || resp.YoloResults.Contents == nil {
		return nil, errs.NewSchema("segmentation response", "yolo_results.yolov8_contents", "required key missing")
	}

	out := &Segmentation{}
	for i, c := range *resp.YoloResults.Contents {
		if c.ClassID == nil {
			out.Skipped = append(out.Skipped, segmentation.Diagnostic{
				Index:   i,
				ClassID: -1,
				Err:     errs.NewDecode(i, -1, "missing class_id"),
			})
			continue
		}
		classID := int(*c.ClassID)
		if len(c.Points) < 4 {
			out.Skipped = append(out.Skipped, segmentation.Diagnostic{
				Index:   i,
				ClassID: classID,
				Err:     errs.NewDecode(i, classID, "want runs plus 4 bbox values, got %d points", len(c.Points)),
			})
			continue
		}

		n := len(c.Points) - 4
		runs := make([]int, n)
		for j, v := range c.Points[:n] {
			runs[j] = int(v)
		}
		bbox := c.Points[n:]
		out.Positions = append(out.Positions, i)
		out.Objects = append(out.Objects, models.SegmentedObject{
			ClassID: classID,
			Runs:    runs,
			BBox: models.BBox{
				X1: int(bbox[0]),
				Y1: int(bbox[1]),
				X2: int(bbox[2]),
				Y2: int(bbox[3]),
			},
		})
	}
	return out, nil
}

type measurementResponse struct {
	Measurements *[]struct {
		PairMeasurements []pairWire `json:"pair_measurements"`
	} `json:"measurements"`
}

type pairWire struct {
	Stage string    `json:"stage"`
	CEJ   []float64 `json:"CEJ"`
	ALC   []float64 `json:"ALC"`
	APEX  []float64 `json:"APEX"`
}

// RulersFromMeasurements converts landmark pairs into ruler tools on imageID.
// Each pair yields two rulers in order: CEJ to ALC carrying the pair's stage,
// then CEJ to APEX with stage "trl". Rulers lie on slice 0 of an axial frame.
func RulersFromMeasurements(data []byte, imageID string) ([]models.Ruler, error) {
	var resp measurementResponse
	if err := sonic.Unmarshal(data, &resp); err != nil {
		return nil, &errs.SchemaError{Document: "measurement response", Message: "invalid JSON", Err: err}
	}
	if resp.Measurements == nil {
		return nil, errs.NewSchema("measurement response", "measurements", "required key missing")
	}

	rulers := []models.Ruler{}
	for i, m := range *resp.Measurements {
		for j, pair := range m.PairMeasurements {
			path := fmt.Sprintf("measurements[%d].pair_measurements[%d]", i, j)
			for _, lm := range []struct {
				name  string
				point []float64
			}{{"CEJ", pair.CEJ}, {"ALC", pair.ALC}, {"APEX", pair.APEX}} {
				if len(lm.point) < 2 {
					return nil, errs.NewSchema("measurement response", path+"."+lm.name, "landmark needs x and y")
				}
			}

			cej := planePoint(pair.CEJ)
			rulers = append(rulers,
				newRuler(imageID, pair.Stage, cej, planePoint(pair.ALC)),
				newRuler(imageID, StageTRL, cej, planePoint(pair.APEX)),
			)
		}
	}
	return rulers, nil
}

func planePoint(p []float64) [3]float64 {
	return [3]float64{p[0], p[1], 0}
}

func newRuler(imageID, stage string, first, second [3]float64) models.Ruler {
	return models.Ruler{
		ImageID:          imageID,
		FrameOfReference: models.AxialFrame,
		Slice:            0,
		Placing:          false,
		FirstPoint:       first,
		SecondPoint:      second,
		Stage:            stage,
	}
}

// Length returns the in-plane distance between a ruler's end points in
// canvas units
func Length(r models.Ruler) float64 {
	return floats.Distance(r.FirstPoint[:2], r.SecondPoint[:2], 2)
}
