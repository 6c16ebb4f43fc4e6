package models

// BBox is an axis-aligned bounding box with inclusive integer corners and a
// top-left origin
type BBox struct {
	X1, Y1, X2, Y2 int
}

// Width returns the number of columns covered by the box
func (b BBox) Width() int { return b.X2 - b.X1 + 1 }

// Height returns the number of rows covered by the box
func (b BBox) Height() int { return b.Y2 - b.Y1 + 1 }

// Degenerate reports whether the corners are inverted
func (b BBox) Degenerate() bool { return b.X2 < b.X1 || b.Y2 < b.Y1 }

// SegmentedObject is one object returned by the inference service
type SegmentedObject struct {
	// ClassID is the zero-based class index; canvas labels are ClassID+1
	ClassID int

	// Runs alternates background and foreground run lengths, starting with
	// background, over a column-major walk of the bounding box
	Runs []int

	// BBox locates the decoded mask on the canvas
	BBox BBox
}

// MaskCanvas is a labeled single-slice canvas stored row-major.
// 0 is background; any other value is class_id+1 of the last object painted there.
type MaskCanvas struct {
	Width  int
	Height int
	Data   []uint8
}

// NewMaskCanvas allocates an all-background canvas
func NewMaskCanvas(height, width int) *MaskCanvas {
	if height < 0 {
		height = 0
	}
	if width < 0 {
		width = 0
	}
	return &MaskCanvas{
		Width:  width,
		Height: height,
		Data:   make([]uint8, width*height),
	}
}

// At returns the label at column x, row y
func (c *MaskCanvas) At(x, y int) uint8 {
	return c.Data[y*c.Width+x]
}

// Set writes a label at column x, row y
func (c *MaskCanvas) Set(x, y int, label uint8) {
	c.Data[y*c.Width+x] = label
}

// Vec3 is a physical (x, y, z) triple in mm
type Vec3 struct {
	X, Y, Z float64
}

// VolumeGeometry places a canvas in physical space. Spacing follows the
// source pixel-spacing order: X is the spacing between canvas rows and Y the
// spacing between canvas columns. Origin is in patient (x, y, z) order.
type VolumeGeometry struct {
	Spacing Vec3
	Origin  Vec3
}

// LabelVolume is a decoded label image with its physical placement.
// Data is stored row-major with index z*Width*Height + y*Width + x.
type LabelVolume struct {
	Data []uint8

	Width  int
	Height int
	Depth  int

	Spacing Vec3
	Origin  Vec3

	// ScalarName is the name of the point-data array the labels came from
	ScalarName string
}

// Index returns the flat offset of voxel (x, y, z)
func (v *LabelVolume) Index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}
