package segmentation

import "annotationsr/internal/models"

// DefaultSliceThickness is used when the source image carries no thickness
const DefaultSliceThickness = 1.0

// SourceImage is the geometry read from the image a segmentation was run on
type SourceImage struct {
	// PixelSpacing is (row spacing, column spacing) in mm
	PixelSpacing   [2]float64
	SliceThickness float64
	Origin         models.Vec3
}

// GeometryOptions controls how source geometry maps onto the label volume
type GeometryOptions struct {
	// OverridePixelSpacing forces in-plane spacing to (1, 1); label volumes
	// line up with the viewer's pixel grid rather than physical space
	OverridePixelSpacing bool

	// DefaultSliceThickness replaces a missing or non-positive thickness
	DefaultSliceThickness float64
}

// GeometryFromSource derives the label volume geometry from the source image
func GeometryFromSource(src SourceImage, opts GeometryOptions) models.VolumeGeometry {
	rowSpacing, colSpacing := src.PixelSpacing[0], src.PixelSpacing[1]
	if opts.OverridePixelSpacing || rowSpacing <= 0 || colSpacing <= 0 {
		rowSpacing, colSpacing = 1, 1
	}

	thickness := src.SliceThickness
	if thickness <= 0 {
		thickness = opts.DefaultSliceThickness
	}
	if thickness <= 0 {
		thickness = DefaultSliceThickness
	}

	return models.VolumeGeometry{
		Spacing: models.Vec3{X: rowSpacing, Y: colSpacing, Z: thickness},
		Origin:  src.Origin,
	}
}
