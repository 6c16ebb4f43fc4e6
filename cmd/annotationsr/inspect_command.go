package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"annotationsr/pkg/dicomio"
	"annotationsr/pkg/errs"
	"annotationsr/pkg/segmentation"
	"annotationsr/pkg/visualization"
	"annotationsr/pkg/vti"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var vtiPath string
	var dicomPath string
	var previewPath string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Describe a label volume image or a stored report",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch {
			case vtiPath != "" && dicomPath != "":
				return fmt.Errorf("give one of --vti or --dicom")
			case vtiPath != "":
				return inspectVTI(out, vtiPath, previewPath)
			case dicomPath != "":
				cfg := ctx.configValue()
				return inspectDICOM(out, dicomPath, cfg.Metadata.Creator, cfg.Metadata.Group)
			}
			return fmt.Errorf("one of --vti or --dicom is required")
		},
	}

	cmd.Flags().StringVar(&vtiPath, "vti", "", "Label volume image to inspect")
	cmd.Flags().StringVar(&dicomPath, "dicom", "", "DICOM report to inspect")
	cmd.Flags().StringVar(&previewPath, "preview", "", "Write a colored preview of the first slice (.png or .jpg)")

	return cmd
}

func inspectVTI(out io.Writer, path, previewPath string) error {
	data, err := readInput("vti", path)
	if err != nil {
		return err
	}
	doc, err := vti.Decode(data)
	if err != nil {
		return err
	}

	v := doc.Volume
	rows := [][]string{
		{"Dimensions", fmt.Sprintf("%d x %d x %d", v.Width, v.Height, v.Depth)},
		{"Spacing", fmt.Sprintf("%s %s %s", formatFloat(v.Spacing.X), formatFloat(v.Spacing.Y), formatFloat(v.Spacing.Z))},
		{"Origin", fmt.Sprintf("%s %s %s", formatFloat(v.Origin.X), formatFloat(v.Origin.Y), formatFloat(v.Origin.Z))},
		{"Scalars", v.ScalarName},
		{"Encoding", string(doc.Encoding)},
		{"Range", fmt.Sprintf("%s - %s", formatFloat(doc.RangeMin), formatFloat(doc.RangeMax))},
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

	canvas := doc.Canvas()
	geometry := doc.Geometry()
	printLabelStats(out, segmentation.Summarize(canvas, geometry))

	if previewPath != "" {
		viewer := visualization.NewViewer(&doc.Volume)
		img, err := viewer.ExtractSlice("z", 0)
		if err != nil {
			return err
		}
		if err := viewer.SaveSlice(img, previewPath); err != nil {
			return fmt.Errorf("save preview: %w", err)
		}
		fmt.Fprintf(out, "preview written to %s\n", previewPath)
	}
	return nil
}

func inspectDICOM(out io.Writer, path, creator string, group uint16) error {
	data, err := readInput("dicom", path)
	if err != nil {
		return err
	}
	summary, err := dicomio.ReadSummary(data)
	if err != nil {
		return err
	}

	rows := [][]string{
		{"SOP Class", summary.SOPClassUID},
		{"SOP Instance", summary.SOPInstanceUID},
		{"Study", summary.StudyInstanceUID},
		{"Series", summary.SeriesInstanceUID},
		{"Modality", summary.Modality},
		{"Patient", fmt.Sprintf("%s (%s)", summary.Patient.Name, summary.Patient.ID)},
		{"Completion", summary.CompletionFlag},
		{"Verification", summary.VerificationFlag},
		{"Content items", strconv.Itoa(summary.ContentItems)},
	}

	meta, err := dicomio.ReadPrivateMetadata(data, creator, group)
	switch {
	case err == nil:
		rows = append(rows,
			[]string{"Metadata datasets", fmt.Sprint(meta.DatasetIDs)},
			[]string{"Metadata rulers", strconv.Itoa(len(meta.Payload.Rulers.Tools))},
		)
	case errors.Is(err, errs.ErrNotFound):
		rows = append(rows, []string{"Metadata", "none"})
	default:
		return err
	}

	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
	return nil
}
