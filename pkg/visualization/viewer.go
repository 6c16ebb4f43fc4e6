// Package visualization renders label volumes as color images for quick
// inspection of segmentation output.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"annotationsr/internal/models"
)

// palette colors labels 1..len(palette); higher labels wrap around
var palette = []color.RGBA{
	{R: 230, G: 25, B: 75, A: 255},
	{R: 60, G: 180, B: 75, A: 255},
	{R: 255, G: 225, B: 25, A: 255},
	{R: 0, G: 130, B: 200, A: 255},
	{R: 245, G: 130, B: 48, A: 255},
	{R: 145, G: 30, B: 180, A: 255},
	{R: 70, G: 240, B: 240, A: 255},
	{R: 240, G: 50, B: 230, A: 255},
	{R: 210, G: 245, B: 60, A: 255},
	{R: 250, G: 190, B: 212, A: 255},
	{R: 0, G: 128, B: 128, A: 255},
	{R: 170, G: 110, B: 40, A: 255},
}

// Background is the color of label 0
var Background = color.RGBA{A: 255}

// LabelColor returns the display color of a label
func LabelColor(label uint8) color.RGBA {
	if label == 0 {
		return Background
	}
	return palette[int(label-1)%len(palette)]
}

// Viewer extracts and saves colored slices of a label volume
type Viewer struct {
	volume *models.LabelVolume
}

// NewViewer creates a viewer over a decoded label volume
func NewViewer(volume *models.LabelVolume) *Viewer {
	return &Viewer{volume: volume}
}

// NewCanvasViewer wraps a single canvas as a one-slice volume
func NewCanvasViewer(canvas *models.MaskCanvas, geometry models.VolumeGeometry) *Viewer {
	return NewViewer(&models.LabelVolume{
		Data:    canvas.Data,
		Width:   canvas.Width,
		Height:  canvas.Height,
		Depth:   1,
		Spacing: geometry.Spacing,
		Origin:  geometry.Origin,
	})
}

// Dimensions returns the volume's width, height and depth
func (v *Viewer) Dimensions() (int, int, int) {
	return v.volume.Width, v.volume.Height, v.volume.Depth
}

func (v *Viewer) label(x, y, z int) uint8 {
	idx := v.volume.Index(x, y, z)
	if idx < len(v.volume.Data) {
		return v.volume.Data[idx]
	}
	return 0
}

// ExtractSlice extracts a colored 2D slice perpendicular to the given axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	width, height, depth := v.Dimensions()

	var img *image.RGBA

	switch axis {
	case "x", "X":
		// YZ plane
		if position >= width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, width)
		}
		img = image.NewRGBA(image.Rect(0, 0, depth, height))
		for y := 0; y < height; y++ {
			for z := 0; z < depth; z++ {
				img.SetRGBA(z, y, LabelColor(v.label(position, y, z)))
			}
		}

	case "y", "Y":
		// XZ plane
		if position >= height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, height)
		}
		img = image.NewRGBA(image.Rect(0, 0, width, depth))
		for z := 0; z < depth; z++ {
			for x := 0; x < width; x++ {
				img.SetRGBA(x, z, LabelColor(v.label(x, position, z)))
			}
		}

	case "z", "Z":
		// XY plane
		if position >= depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, depth)
		}
		img = image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.SetRGBA(x, y, LabelColor(v.label(x, y, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// ExtractRegion copies the labels of a 3D subregion
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) ([]uint8, error) {
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}
	width, height, depth := v.Dimensions()
	if startX+sizeX > width || startY+sizeY > height || startZ+sizeZ > depth {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := make([]uint8, sizeX*sizeY*sizeZ)
	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				region[z*sizeX*sizeY+y*sizeX+x] = v.label(startX+x, startY+y, startZ+z)
			}
		}
	}
	return region, nil
}

// SaveSlice saves an extracted slice. A .jpg or .jpeg name writes JPEG;
// anything else writes PNG, which keeps label colors exact.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(file, img)
	}
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	width, height, depth := v.Dimensions()
	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = width
	case "y", "Y":
		maxPos = height
	case "z", "Z":
		maxPos = depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
