package segmentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"annotationsr/internal/models"
	"annotationsr/pkg/errs"
)

// Diagnostic records an object that was skipped or only partly used
type Diagnostic struct {
	Index   int
	ClassID int
	Err     error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("object %d (class %d): %v", d.Index, d.ClassID, d.Err)
}

// ErrNoOverlap marks an object whose bounding box lies outside the canvas
var ErrNoOverlap = errors.New("bbox does not overlap the canvas")

// ErrTruncated marks an object whose runs overflowed its bounding box
var ErrTruncated = errors.New("run list overflows bbox; remainder filled")

// Result is a composited canvas plus the diagnostics gathered on the way
type Result struct {
	Canvas      *models.MaskCanvas
	Diagnostics []Diagnostic

	// Painted counts objects that overlapped the canvas and were pasted
	Painted int
}

// Compositor decodes objects concurrently and pastes them serially
type Compositor struct {
	// Workers bounds concurrent decodes; values below 1 use GOMAXPROCS
	Workers int

	Logger *slog.Logger
}

// NewCompositor creates a Compositor with the given worker bound
func NewCompositor(workers int, logger *slog.Logger) *Compositor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compositor{Workers: workers, Logger: logger}
}

// Composite decodes every object and paints its foreground into a fresh
// canvas of the given size as class_id+1. Objects are painted strictly in
// input order, so later objects overwrite earlier ones where they overlap.
// Malformed objects are skipped and reported as diagnostics.
func Composite(objects []models.SegmentedObject, height, width int) *Result {
	return NewCompositor(0, nil).Composite(objects, height, width)
}

// Composite is the configured form of the package-level Composite
func (c *Compositor) Composite(objects []models.SegmentedObject, height, width int) *Result {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	masks, diagnostics := c.decodeAll(objects)

	result := &Result{
		Canvas:      models.NewMaskCanvas(height, width),
		Diagnostics: diagnostics,
	}
	for i, obj := range objects {
		mask := masks[i]
		if mask == nil {
			continue
		}
		if !paste(result.Canvas, obj, mask) {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Index:   i,
				ClassID: obj.ClassID,
				Err:     ErrNoOverlap,
			})
			continue
		}
		result.Painted++
	}

	sortDiagnostics(result.Diagnostics)
	for _, d := range result.Diagnostics {
		level := slog.LevelWarn
		if errors.Is(d.Err, ErrTruncated) {
			level = slog.LevelDebug
		}
		logger.Log(context.Background(), level, "segmentation object diagnostic",
			"index", d.Index,
			"class_id", d.ClassID,
			"error", d.Err)
	}
	logger.Debug("composited segmentation",
		"objects", len(objects),
		"painted", result.Painted,
		"width", result.Canvas.Width,
		"height", result.Canvas.Height)

	return result
}

// decodeAll decodes every object on a bounded set of goroutines. Results are
// stored by input index so the caller can paste in order.
func (c *Compositor) decodeAll(objects []models.SegmentedObject) ([]*LocalMask, []Diagnostic) {
	workers := c.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	type decodeResult struct {
		index int
		mask  *LocalMask
		err   error
	}
	resultChan := make(chan decodeResult)
	sem := make(chan struct{}, workers)

	for i := range objects {
		go func(index int, obj models.SegmentedObject) {
			sem <- struct{}{}
			mask, err := DecodeObject(index, obj)
			<-sem
			resultChan <- decodeResult{index: index, mask: mask, err: err}
		}(i, objects[i])
	}

	masks := make([]*LocalMask, len(objects))
	var diagnostics []Diagnostic
	for completed := 0; completed < len(objects); completed++ {
		res := <-resultChan
		obj := objects[res.index]
		if res.err != nil {
			diagnostics = append(diagnostics, Diagnostic{Index: res.index, ClassID: obj.ClassID, Err: res.err})
			continue
		}
		if res.mask.Truncated {
			diagnostics = append(diagnostics, Diagnostic{Index: res.index, ClassID: obj.ClassID, Err: ErrTruncated})
		}
		masks[res.index] = res.mask
	}
	return masks, diagnostics
}

// paste copies the foreground of mask onto the canvas at the object's bbox,
// clipped to the canvas. It reports false when nothing overlaps.
func paste(canvas *models.MaskCanvas, obj models.SegmentedObject, mask *LocalMask) bool {
	x1, y1 := max(obj.BBox.X1, 0), max(obj.BBox.Y1, 0)
	x2, y2 := min(obj.BBox.X2, canvas.Width-1), min(obj.BBox.Y2, canvas.Height-1)
	if x2 < x1 || y2 < y1 {
		return false
	}

	label := uint8(obj.ClassID + 1)
	for y := y1; y <= y2; y++ {
		ly := y - obj.BBox.Y1
		for x := x1; x <= x2; x++ {
			if mask.At(x-obj.BBox.X1, ly) == 1 {
				canvas.Set(x, y, label)
			}
		}
	}
	return true
}

func sortDiagnostics(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].Index < ds[j].Index })
}

// IsDecodeFailure reports whether a diagnostic caused its object to be dropped
func (d Diagnostic) IsDecodeFailure() bool {
	return errors.Is(d.Err, errs.ErrDecode)
}
