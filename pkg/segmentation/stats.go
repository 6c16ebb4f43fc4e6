package segmentation

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"annotationsr/internal/models"
)

// LabelStats summarizes one label present on a canvas
type LabelStats struct {
	Label   uint8
	ClassID int
	Pixels  int

	// AreaMM2 is Pixels times the physical area of one cell
	AreaMM2 float64

	// CentroidX and CentroidY are in canvas cell coordinates
	CentroidX float64
	CentroidY float64

	// Bounds is the tight bounding box of the label's cells
	Bounds models.BBox
}

// Summarize returns one entry per non-background label on the canvas, ordered
// by label
func Summarize(canvas *models.MaskCanvas, geometry models.VolumeGeometry) []LabelStats {
	xs := make(map[uint8][]float64)
	ys := make(map[uint8][]float64)
	for y := 0; y < canvas.Height; y++ {
		for x := 0; x < canvas.Width; x++ {
			label := canvas.At(x, y)
			if label == 0 {
				continue
			}
			xs[label] = append(xs[label], float64(x))
			ys[label] = append(ys[label], float64(y))
		}
	}

	cellArea := geometry.Spacing.X * geometry.Spacing.Y
	stats := make([]LabelStats, 0, len(xs))
	for label, lx := range xs {
		ly := ys[label]
		stats = append(stats, LabelStats{
			Label:     label,
			ClassID:   int(label) - 1,
			Pixels:    len(lx),
			AreaMM2:   float64(len(lx)) * cellArea,
			CentroidX: stat.Mean(lx, nil),
			CentroidY: stat.Mean(ly, nil),
			Bounds: models.BBox{
				X1: int(floats.Min(lx)),
				Y1: int(floats.Min(ly)),
				X2: int(floats.Max(lx)),
				Y2: int(floats.Max(ly)),
			},
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Label < stats[j].Label })
	return stats
}

// Coverage returns the fraction of canvas cells carrying any label
func Coverage(canvas *models.MaskCanvas) float64 {
	if len(canvas.Data) == 0 {
		return 0
	}
	labeled := 0
	for _, v := range canvas.Data {
		if v != 0 {
			labeled++
		}
	}
	return float64(labeled) / float64(len(canvas.Data))
}
