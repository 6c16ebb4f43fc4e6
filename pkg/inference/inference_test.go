package inference

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotationsr/internal/models"
	"annotationsr/pkg/errs"
	"annotationsr/pkg/segmentation"
)

const segmentationResponseJSON = `{
  "yolo_results": {
    "yolov8_contents": [
      {"class_id": 0, "points": [0, 4, 0, 0, 1, 1]},
      {"class_id": 1, "points": [0, 4, 1.0, 1.0, 2.0, 2.0]},
      {"points": [1, 2, 0, 0, 1, 1]},
      {"class_id": 3, "points": [0, 0]},
      {"class_id": 2, "points": []}
    ]
  }
}`

// TestParseSegmentation splits runs from bbox and skips incomplete entries
func TestParseSegmentation(t *testing.T) {
	seg, err := ParseSegmentation([]byte(segmentationResponseJSON))
	require.NoError(t, err)

	require.Len(t, seg.Objects, 2)
	assert.Equal(t, models.SegmentedObject{
		ClassID: 1,
		Runs:    []int{0, 4},
		BBox:    models.BBox{X1: 1, Y1: 1, X2: 2, Y2: 2},
	}, seg.Objects[1])

	require.Len(t, seg.Skipped, 3)
	assert.Equal(t, []int{2, 3, 4}, []int{seg.Skipped[0].Index, seg.Skipped[1].Index, seg.Skipped[2].Index})
	for _, d := range seg.Skipped {
		assert.True(t, errors.Is(d.Err, errs.ErrDecode))
	}

	// feeds straight into the compositor
	res := segmentation.Composite(seg.Objects, 3, 3)
	assert.Equal(t, []uint8{1, 1, 0, 1, 2, 2, 0, 2, 2}, res.Canvas.Data)
}

const mixedResponseJSON = `{
  "yolo_results": {
    "yolov8_contents": [
      {"points": [1, 2, 0, 0, 1, 1]},
      {"class_id": 0, "points": [0, 4, 0, 0, 1, 1]},
      {"class_id": 4, "points": [1, 2]},
      {"class_id": 1, "points": [0, 4, 50, 50, 51, 51]},
      {"class_id": 2, "points": [0, 1, 1, 0, 0, 0]}
    ]
  }
}`

// TestDiagnosticsUseResponsePositions reports parse and composite problems
// against the same response positions
func TestDiagnosticsUseResponsePositions(t *testing.T) {
	seg, err := ParseSegmentation([]byte(mixedResponseJSON))
	require.NoError(t, err)
	require.Len(t, seg.Objects, 3)
	assert.Equal(t, []int{1, 3, 4}, seg.Positions)

	res := segmentation.Composite(seg.Objects, 3, 3)
	diags := seg.Diagnostics(res.Diagnostics)
	require.Len(t, diags, 4)

	got := make([]int, len(diags))
	for i, d := range diags {
		got[i] = d.Index
	}
	assert.Equal(t, []int{0, 2, 3, 4}, got)

	// bbox off the canvas
	assert.Equal(t, 1, diags[2].ClassID)
	assert.True(t, errors.Is(diags[2].Err, segmentation.ErrNoOverlap))

	// inverted bbox fails to decode and names its response position
	assert.Equal(t, 2, diags[3].ClassID)
	var decodeErr *errs.DecodeError
	require.True(t, errors.As(diags[3].Err, &decodeErr))
	assert.Equal(t, 4, decodeErr.Index)
	assert.Contains(t, diags[3].Err.Error(), "object 4")

	// the compositor's own list stays indexed by object
	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, 1, res.Diagnostics[0].Index)
	assert.Equal(t, 2, res.Diagnostics[1].Index)
}

// TestParseSegmentationSchema requires the contents list
func TestParseSegmentationSchema(t *testing.T) {
	for _, doc := range []string{`{}`, `{"yolo_results": {}}`, `not json`} {
		_, err := ParseSegmentation([]byte(doc))
		assert.True(t, errors.Is(err, errs.ErrSchema), doc)
	}

	seg, err := ParseSegmentation([]byte(`{"yolo_results": {"yolov8_contents": []}}`))
	require.NoError(t, err)
	assert.Empty(t, seg.Objects)
}

const measurementResponseJSON = `{
  "measurements": [
    {"pair_measurements": [
      {"stage": "II", "CEJ": [10, 20], "ALC": [13, 24], "APEX": [10, 60]},
      {"stage": "I", "CEJ": [5, 5, 9], "ALC": [5, 8], "APEX": [5, 30]}
    ]},
    {"pair_measurements": []}
  ]
}`

// TestRulersFromMeasurements produces a stage ruler and a trl ruler per pair
func TestRulersFromMeasurements(t *testing.T) {
	rulers, err := RulersFromMeasurements([]byte(measurementResponseJSON), "img-1")
	require.NoError(t, err)
	require.Len(t, rulers, 4)

	first := rulers[0]
	assert.Equal(t, "II", first.Stage)
	assert.Equal(t, "img-1", first.ImageID)
	assert.Equal(t, 0, first.Slice)
	assert.False(t, first.Placing)
	assert.Equal(t, [3]float64{10, 20, 0}, first.FirstPoint)
	assert.Equal(t, [3]float64{13, 24, 0}, first.SecondPoint)
	assert.Equal(t, models.AxialFrame, first.FrameOfReference)
	assert.InDelta(t, 5.0, Length(first), 1e-9)

	trl := rulers[1]
	assert.Equal(t, StageTRL, trl.Stage)
	assert.Equal(t, [3]float64{10, 60, 0}, trl.SecondPoint)
	assert.InDelta(t, 40.0, Length(trl), 1e-9)

	// z of the landmark is dropped
	assert.Equal(t, [3]float64{5, 5, 0}, rulers[2].FirstPoint)
	assert.Equal(t, "I", rulers[2].Stage)
}

// TestRulersFromMeasurementsErrors checks schema failures
func TestRulersFromMeasurementsErrors(t *testing.T) {
	for _, doc := range []string{
		`{}`,
		`{"measurements": [{"pair_measurements": [{"CEJ": [1], "ALC": [1, 2], "APEX": [1, 2]}]}]}`,
		`{"measurements": [{"pair_measurements": [{"CEJ": [1, 2], "ALC": [1, 2]}]}]}`,
	} {
		_, err := RulersFromMeasurements([]byte(doc), "x")
		assert.True(t, errors.Is(err, errs.ErrSchema), doc)
	}

	rulers, err := RulersFromMeasurements([]byte(`{"measurements": []}`), "x")
	require.NoError(t, err)
	assert.NotNil(t, rulers)
	assert.Empty(t, rulers)
}
