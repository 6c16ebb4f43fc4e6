// Package segmentation decodes run-length encoded object masks returned by the
// inference service and composites them into one labeled canvas.
package segmentation

import (
	"annotationsr/internal/models"
	"annotationsr/pkg/errs"
)

// MaxClassID is the largest class id whose label (class_id+1) fits a byte
const MaxClassID = 254

// MaxMaskCells caps the bbox area of one object mask
const MaxMaskCells = 1 << 26

// LocalMask is a decoded object mask covering exactly its bounding box,
// stored row-major; 1 marks foreground
type LocalMask struct {
	Width  int
	Height int
	Data   []uint8

	// Truncated is set when the runs described more cells than the box holds
	Truncated bool
}

// At returns the mask value at local column x, row y
func (m *LocalMask) At(x, y int) uint8 {
	return m.Data[y*m.Width+x]
}

// DecodeRuns expands alternating background/foreground runs over a buffer of
// width*height cells. The walk starts with background and flips after every
// run. A run that would overflow fills the rest of the buffer with its value
// and ends the walk; cells after a short run list stay background.
//
// The flat buffer is read as a width x height column-major matrix and then
// transposed, which yields a height x width row-major mask.
func DecodeRuns(runs []int, width, height int) (data []uint8, truncated bool) {
	total := width * height
	flat := make([]uint8, total)

	idx := 0
	var val uint8
	for _, count := range runs {
		end := idx + count
		if end > total {
			for i := idx; i < total; i++ {
				flat[i] = val
			}
			truncated = true
			break
		}
		for i := idx; i < end; i++ {
			flat[i] = val
		}
		idx = end
		val = 1 - val
	}

	// column-major (width x height): element (i, j) lives at i + j*width
	data = make([]uint8, total)
	for i := 0; i < width; i++ {
		for j := 0; j < height; j++ {
			// transpose: row j, column i of the result
			data[j*width+i] = flat[i+j*width]
		}
	}
	return data, truncated
}

// DecodeObject decodes one object into a mask the size of its bounding box.
// index is the object's position in the input list and only labels errors.
func DecodeObject(index int, obj models.SegmentedObject) (*LocalMask, error) {
	if obj.ClassID < 0 || obj.ClassID > MaxClassID {
		return nil, errs.NewDecode(index, obj.ClassID, "class id out of range 0..%d", MaxClassID)
	}
	if len(obj.Runs) < 1 {
		return nil, errs.NewDecode(index, obj.ClassID, "empty run list")
	}
	if obj.BBox.Degenerate() {
		return nil, errs.NewDecode(index, obj.ClassID, "degenerate bbox %+v", obj.BBox)
	}
	for i, r := range obj.Runs {
		if r < 0 {
			return nil, errs.NewDecode(index, obj.ClassID, "negative run length %d at position %d", r, i)
		}
	}

	width, height, ok := maskSize(obj.BBox)
	if !ok {
		return nil, errs.NewDecode(index, obj.ClassID, "bbox %+v exceeds %d cells", obj.BBox, MaxMaskCells)
	}
	data, truncated := DecodeRuns(obj.Runs, width, height)
	return &LocalMask{
		Width:     width,
		Height:    height,
		Data:      data,
		Truncated: truncated,
	}, nil
}

// maskSize returns the width and height of a non-degenerate bbox, or false
// when its area exceeds MaxMaskCells. Extents are taken modulo 2^64 so that
// corners far apart cannot overflow int.
func maskSize(b models.BBox) (int, int, bool) {
	dx := uint64(int64(b.X2)) - uint64(int64(b.X1))
	dy := uint64(int64(b.Y2)) - uint64(int64(b.Y1))
	if dx >= MaxMaskCells || dy >= MaxMaskCells {
		return 0, 0, false
	}
	w, h := dx+1, dy+1
	if w > MaxMaskCells/h {
		return 0, 0, false
	}
	return int(w), int(h), true
}
