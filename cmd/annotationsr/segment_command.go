package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"annotationsr/internal/models"
	"annotationsr/pkg/artifact"
	"annotationsr/pkg/inference"
	"annotationsr/pkg/segmentation"
	"annotationsr/pkg/visualization"
	"annotationsr/pkg/vti"
)

func newSegmentCommand(ctx *commandContext) *cobra.Command {
	var responsePath string
	var rows, cols int
	var spacingFlag string
	var originFlag string
	var thickness float64
	var keepSpacing bool
	var outPath string
	var encodingFlag string
	var previewPath string
	var workers int

	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Composite a segmentation response into a label volume image",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger := ctx.log()

			if rows <= 0 || cols <= 0 {
				return fmt.Errorf("--rows and --cols must be positive")
			}
			data, err := readInput("response", responsePath)
			if err != nil {
				return err
			}
			seg, err := inference.ParseSegmentation(data)
			if err != nil {
				return err
			}

			src := segmentation.SourceImage{}
			if spacingFlag != "" {
				v, err := parseFloats("spacing", spacingFlag, 2)
				if err != nil {
					return err
				}
				src.PixelSpacing = [2]float64{v[0], v[1]}
			}
			if originFlag != "" {
				v, err := parseFloats("origin", originFlag, 3)
				if err != nil {
					return err
				}
				src.Origin = models.Vec3{X: v[0], Y: v[1], Z: v[2]}
			}
			src.SliceThickness = thickness
			geometry := segmentation.GeometryFromSource(src, segmentation.GeometryOptions{
				OverridePixelSpacing:  cfg.Segmentation.OverridePixelSpacing && !keepSpacing,
				DefaultSliceThickness: cfg.Segmentation.DefaultSliceThickness,
			})

			if !cmd.Flags().Changed("workers") {
				workers = cfg.Segmentation.DecodeWorkers
			}
			result := segmentation.NewCompositor(workers, logger).Composite(seg.Objects, rows, cols)

			encoding := cfg.Volume.Encoding
			if encodingFlag != "" {
				encoding = encodingFlag
			}
			enc, err := vti.ParseEncoding(encoding)
			if err != nil {
				return err
			}
			encoded, err := vti.Encode(result.Canvas, geometry, vti.Options{
				Encoding:   enc,
				ScalarName: cfg.Volume.ScalarName,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printLabelStats(out, segmentation.Summarize(result.Canvas, geometry))
			printDiagnostics(out, seg.Diagnostics(result.Diagnostics))

			var records []artifact.Record
			if outPath != "" {
				rec, err := writeOutput(outPath, artifact.MediaTypeVTI, encoded)
				if err != nil {
					return err
				}
				records = append(records, rec)
			} else {
				fmt.Fprintln(out, "no --out given; volume not written")
			}

			if previewPath != "" {
				viewer := visualization.NewCanvasViewer(result.Canvas, geometry)
				img, err := viewer.ExtractSlice("z", 0)
				if err != nil {
					return err
				}
				if err := viewer.SaveSlice(img, previewPath); err != nil {
					return fmt.Errorf("save preview: %w", err)
				}
			}

			printRecords(out, records)
			logger.Info("segmentation composited",
				"objects", len(seg.Objects),
				"painted", result.Painted,
				"skipped", len(seg.Skipped)+len(result.Diagnostics),
				"coverage", segmentation.Coverage(result.Canvas))
			return nil
		},
	}

	cmd.Flags().StringVarP(&responsePath, "response", "r", "", "Segmentation response JSON")
	cmd.Flags().IntVar(&rows, "rows", 0, "Canvas height in pixels")
	cmd.Flags().IntVar(&cols, "cols", 0, "Canvas width in pixels")
	cmd.Flags().StringVar(&spacingFlag, "spacing", "", "Source pixel spacing as row,column in mm")
	cmd.Flags().StringVar(&originFlag, "origin", "", "Volume origin as x,y,z in mm")
	cmd.Flags().Float64Var(&thickness, "thickness", 0, "Source slice thickness in mm")
	cmd.Flags().BoolVar(&keepSpacing, "keep-spacing", false, "Use the source pixel spacing instead of 1.0 x 1.0")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the label volume to this .vti file")
	cmd.Flags().StringVar(&encodingFlag, "encoding", "", "Appended data encoding: base64 or raw")
	cmd.Flags().StringVar(&previewPath, "preview", "", "Write a colored preview image (.png or .jpg)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent decodes (default from config)")
	_ = cmd.MarkFlagRequired("response")

	return cmd
}

func printLabelStats(out io.Writer, stats []segmentation.LabelStats) {
	if len(stats) == 0 {
		fmt.Fprintln(out, "no labels painted")
		return
	}
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			strconv.Itoa(int(s.Label)),
			strconv.Itoa(s.ClassID),
			strconv.Itoa(s.Pixels),
			strconv.FormatFloat(s.AreaMM2, 'f', 2, 64),
			fmt.Sprintf("%.1f, %.1f", s.CentroidX, s.CentroidY),
			fmt.Sprintf("%d,%d - %d,%d", s.Bounds.X1, s.Bounds.Y1, s.Bounds.X2, s.Bounds.Y2),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Label", "Class", "Pixels", "Area mm2", "Centroid", "Bounds"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
}

func printDiagnostics(out io.Writer, diags []segmentation.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	rows := make([][]string, 0, len(diags))
	for _, d := range diags {
		rows = append(rows, []string{strconv.Itoa(d.Index), strconv.Itoa(d.ClassID), d.Err.Error()})
	}
	fmt.Fprintln(out, renderTable([]string{"Object", "Class", "Problem"}, rows,
		[]columnAlignment{alignRight, alignRight, alignLeft}))
}
