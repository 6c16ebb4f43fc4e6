package segmentation

import (
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotationsr/internal/models"
	"annotationsr/pkg/errs"
)

func rows(m *LocalMask) [][]uint8 {
	out := make([][]uint8, m.Height)
	for y := range out {
		out[y] = m.Data[y*m.Width : (y+1)*m.Width]
	}
	return out
}

func canvasRows(c *models.MaskCanvas) [][]uint8 {
	out := make([][]uint8, c.Height)
	for y := range out {
		out[y] = c.Data[y*c.Width : (y+1)*c.Width]
	}
	return out
}

// TestDecodeSquare checks a 2x2 box with one background cell
func TestDecodeSquare(t *testing.T) {
	mask, err := DecodeObject(0, models.SegmentedObject{
		ClassID: 0,
		Runs:    []int{1, 3},
		BBox:    models.BBox{X1: 0, Y1: 0, X2: 1, Y2: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]uint8{{0, 1}, {1, 1}}, rows(mask))
	assert.False(t, mask.Truncated)
}

// TestDecodeNonSquare pins the axis convention on a 3 wide, 2 tall box
func TestDecodeNonSquare(t *testing.T) {
	data, truncated := DecodeRuns([]int{1, 1, 2, 2}, 3, 2)
	assert.False(t, truncated)
	assert.Equal(t, []uint8{0, 1, 0, 0, 1, 1}, data)
}

// TestDecodeOverflow verifies the overflowing run fills the rest and stops
func TestDecodeOverflow(t *testing.T) {
	data, truncated := DecodeRuns([]int{1, 10, 5}, 2, 2)
	assert.True(t, truncated)
	assert.Equal(t, []uint8{0, 1, 1, 1}, data)

	data, truncated = DecodeRuns([]int{2, 10}, 2, 2)
	assert.True(t, truncated)
	assert.Equal(t, []uint8{0, 0, 1, 1}, data)
}

// TestDecodeShortRuns verifies cells not covered by any run stay background
func TestDecodeShortRuns(t *testing.T) {
	data, truncated := DecodeRuns([]int{0, 1}, 2, 2)
	assert.False(t, truncated)
	assert.Equal(t, []uint8{1, 0, 0, 0}, data)
}

// TestDecodeRejects verifies malformed objects produce decode errors
func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		obj  models.SegmentedObject
	}{
		{"empty runs", models.SegmentedObject{BBox: models.BBox{X2: 1, Y2: 1}}},
		{"inverted x", models.SegmentedObject{Runs: []int{1}, BBox: models.BBox{X1: 2, X2: 1, Y2: 1}}},
		{"inverted y", models.SegmentedObject{Runs: []int{1}, BBox: models.BBox{X2: 1, Y1: 3, Y2: 1}}},
		{"negative run", models.SegmentedObject{Runs: []int{1, -2}, BBox: models.BBox{X2: 1, Y2: 1}}},
		{"negative class", models.SegmentedObject{ClassID: -1, Runs: []int{1}, BBox: models.BBox{X2: 1, Y2: 1}}},
		{"class too large", models.SegmentedObject{ClassID: 255, Runs: []int{1}, BBox: models.BBox{X2: 1, Y2: 1}}},
		{"width overflows", models.SegmentedObject{Runs: []int{1}, BBox: models.BBox{X2: math.MaxInt, Y2: 10}}},
		{"span overflows", models.SegmentedObject{Runs: []int{1}, BBox: models.BBox{X1: math.MinInt, X2: math.MaxInt, Y2: 1}}},
		{"area too large", models.SegmentedObject{Runs: []int{1}, BBox: models.BBox{X2: 1 << 14, Y2: 1 << 14}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeObject(7, tt.obj)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrDecode))

			var de *errs.DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, 7, de.Index)
		})
	}
}

// TestMaskSizeLimit accepts a bbox of exactly MaxMaskCells cells
func TestMaskSizeLimit(t *testing.T) {
	w, h, ok := maskSize(models.BBox{X2: 1<<13 - 1, Y2: 1<<13 - 1})
	require.True(t, ok)
	assert.Equal(t, MaxMaskCells, w*h)

	_, _, ok = maskSize(models.BBox{X2: 1 << 13, Y2: 1<<13 - 1})
	assert.False(t, ok)

	w, h, ok = maskSize(models.BBox{X1: -3, Y1: 5, X2: 2, Y2: 5})
	require.True(t, ok)
	assert.Equal(t, []int{6, 1}, []int{w, h})
}

// TestCompositeSkipsHugeBBox keeps compositing after an oversized object
func TestCompositeSkipsHugeBBox(t *testing.T) {
	res := Composite([]models.SegmentedObject{
		{ClassID: 0, Runs: []int{0, 1}, BBox: models.BBox{X1: -math.MaxInt, X2: math.MaxInt, Y2: 0}},
		{ClassID: 1, Runs: []int{0, 4}, BBox: models.BBox{X2: 1, Y2: 1}},
	}, 2, 2)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, 0, res.Diagnostics[0].Index)
	assert.True(t, res.Diagnostics[0].IsDecodeFailure())
	assert.Equal(t, []uint8{2, 2, 2, 2}, res.Canvas.Data)
}

// TestCompositeOverlap verifies later objects win on overlapping cells
func TestCompositeOverlap(t *testing.T) {
	objects := []models.SegmentedObject{
		{ClassID: 0, Runs: []int{0, 4}, BBox: models.BBox{X1: 0, Y1: 0, X2: 1, Y2: 1}},
		{ClassID: 1, Runs: []int{0, 4}, BBox: models.BBox{X1: 1, Y1: 1, X2: 2, Y2: 2}},
	}
	res := Composite(objects, 3, 3)

	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, 2, res.Painted)
	assert.Equal(t, [][]uint8{
		{1, 1, 0},
		{1, 2, 2},
		{0, 2, 2},
	}, canvasRows(res.Canvas))
}

// TestCompositeOrderIndependentOfWorkers verifies the paste order holds for
// any worker count
func TestCompositeOrderIndependentOfWorkers(t *testing.T) {
	var objects []models.SegmentedObject
	for i := 0; i < 40; i++ {
		objects = append(objects, models.SegmentedObject{
			ClassID: i % 5,
			Runs:    []int{0, 16},
			BBox:    models.BBox{X1: i % 3, Y1: i % 4, X2: i%3 + 3, Y2: i%4 + 3},
		})
	}
	want := Composite(objects, 8, 8).Canvas.Data

	for _, workers := range []int{1, 2, 7, 64} {
		got := NewCompositor(workers, nil).Composite(objects, 8, 8)
		assert.Equal(t, want, got.Canvas.Data, "workers=%d", workers)
	}

	// the last object covers rows 3..6, columns 0..3
	last := objects[len(objects)-1]
	res := Composite(objects, 8, 8)
	assert.Equal(t, uint8(last.ClassID+1), res.Canvas.At(last.BBox.X1, last.BBox.Y1))
}

// TestCompositeSkipsAndClips verifies skipped objects do not stop the rest
// and that boxes past the edge are clipped
func TestCompositeSkipsAndClips(t *testing.T) {
	objects := []models.SegmentedObject{
		{ClassID: 3, Runs: nil, BBox: models.BBox{X2: 1, Y2: 1}},
		{ClassID: 0, Runs: []int{0, 4}, BBox: models.BBox{X1: 10, Y1: 10, X2: 11, Y2: 11}},
		{ClassID: 2, Runs: []int{0, 9}, BBox: models.BBox{X1: -1, Y1: 2, X2: 1, Y2: 4}},
		{ClassID: 1, Runs: []int{1, 3}, BBox: models.BBox{X1: 2, Y1: 0, X2: 4, Y2: 3}},
	}
	res := Composite(objects, 4, 4)

	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, 0, res.Diagnostics[0].Index)
	assert.True(t, res.Diagnostics[0].IsDecodeFailure())
	assert.Equal(t, 1, res.Diagnostics[1].Index)
	assert.ErrorIs(t, res.Diagnostics[1].Err, ErrNoOverlap)
	assert.Equal(t, 2, res.Painted)

	assert.Equal(t, [][]uint8{
		{0, 0, 0, 2},
		{0, 0, 2, 0},
		{3, 3, 0, 0},
		{3, 3, 0, 0},
	}, canvasRows(res.Canvas))
}

// TestCompositeTruncatedObject verifies an overflowing object is still painted
func TestCompositeTruncatedObject(t *testing.T) {
	res := Composite([]models.SegmentedObject{
		{ClassID: 4, Runs: []int{2, 100}, BBox: models.BBox{X2: 1, Y2: 1}},
	}, 2, 2)

	require.Len(t, res.Diagnostics, 1)
	assert.ErrorIs(t, res.Diagnostics[0].Err, ErrTruncated)
	assert.Equal(t, []uint8{0, 0, 5, 5}, res.Canvas.Data)
}

// TestCompositeEmptyCanvas verifies a zero-sized canvas skips every object
func TestCompositeEmptyCanvas(t *testing.T) {
	res := Composite([]models.SegmentedObject{
		{ClassID: 0, Runs: []int{0, 1}, BBox: models.BBox{}},
	}, 0, 0)
	assert.Empty(t, res.Canvas.Data)
	require.Len(t, res.Diagnostics, 1)
	assert.ErrorIs(t, res.Diagnostics[0].Err, ErrNoOverlap)
}

// TestDecodeProperties checks run totals against the decoded foreground
func TestDecodeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	runsGen := gen.SliceOf(gen.IntRange(0, 6))

	properties.Property("output size is width*height", prop.ForAll(
		func(runs []int, w, h int) bool {
			data, _ := DecodeRuns(runs, w, h)
			return len(data) == w*h
		},
		runsGen, gen.IntRange(1, 8), gen.IntRange(1, 8),
	))

	properties.Property("foreground equals odd runs when nothing overflows", prop.ForAll(
		func(runs []int, w, h int) bool {
			total, fg := 0, 0
			for i, r := range runs {
				total += r
				if i%2 == 1 {
					fg += r
				}
			}
			if total > w*h {
				return true
			}
			data, truncated := DecodeRuns(runs, w, h)
			count := 0
			for _, v := range data {
				count += int(v)
			}
			return !truncated && count == fg
		},
		runsGen, gen.IntRange(1, 8), gen.IntRange(1, 8),
	))

	properties.Property("values are binary", prop.ForAll(
		func(runs []int, w, h int) bool {
			data, _ := DecodeRuns(runs, w, h)
			for _, v := range data {
				if v > 1 {
					return false
				}
			}
			return true
		},
		runsGen, gen.IntRange(1, 8), gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}

// TestSummarize verifies per-label pixel counts, area and centroid
func TestSummarize(t *testing.T) {
	res := Composite([]models.SegmentedObject{
		{ClassID: 0, Runs: []int{0, 4}, BBox: models.BBox{X1: 0, Y1: 0, X2: 1, Y2: 1}},
		{ClassID: 1, Runs: []int{0, 4}, BBox: models.BBox{X1: 1, Y1: 1, X2: 2, Y2: 2}},
	}, 3, 3)

	geometry := models.VolumeGeometry{Spacing: models.Vec3{X: 0.5, Y: 2, Z: 1}}
	stats := Summarize(res.Canvas, geometry)
	require.Len(t, stats, 2)

	assert.Equal(t, uint8(1), stats[0].Label)
	assert.Equal(t, 0, stats[0].ClassID)
	assert.Equal(t, 3, stats[0].Pixels)
	assert.InDelta(t, 3.0, stats[0].AreaMM2, 1e-9)
	assert.InDelta(t, 1.0/3, stats[0].CentroidX, 1e-9)
	assert.InDelta(t, 1.0/3, stats[0].CentroidY, 1e-9)
	assert.Equal(t, models.BBox{X1: 0, Y1: 0, X2: 1, Y2: 1}, stats[0].Bounds)

	assert.Equal(t, 4, stats[1].Pixels)
	assert.InDelta(t, 1.5, stats[1].CentroidX, 1e-9)
	assert.Equal(t, models.BBox{X1: 1, Y1: 1, X2: 2, Y2: 2}, stats[1].Bounds)

	assert.InDelta(t, 7.0/9, Coverage(res.Canvas), 1e-9)
}

// TestGeometryFromSource verifies the spacing override and thickness fallback
func TestGeometryFromSource(t *testing.T) {
	src := SourceImage{
		PixelSpacing:   [2]float64{0.3, 0.4},
		SliceThickness: 0,
		Origin:         models.Vec3{X: 1, Y: 2, Z: 3},
	}

	g := GeometryFromSource(src, GeometryOptions{OverridePixelSpacing: true, DefaultSliceThickness: 2.5})
	assert.Equal(t, models.Vec3{X: 1, Y: 1, Z: 2.5}, g.Spacing)
	assert.Equal(t, src.Origin, g.Origin)

	src.SliceThickness = 0.8
	g = GeometryFromSource(src, GeometryOptions{})
	assert.Equal(t, models.Vec3{X: 0.3, Y: 0.4, Z: 0.8}, g.Spacing)

	src.PixelSpacing = [2]float64{}
	src.SliceThickness = -1
	g = GeometryFromSource(src, GeometryOptions{})
	assert.Equal(t, models.Vec3{X: 1, Y: 1, Z: DefaultSliceThickness}, g.Spacing)
}
