package main

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"annotationsr/internal/models"
	"annotationsr/pkg/artifact"
	"annotationsr/pkg/dicomio"
	"annotationsr/pkg/metadata"
	"annotationsr/pkg/session"
	"annotationsr/pkg/sr"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var manifestPath string
	var dicomPath string
	var jsonPath string
	var seriesUID string
	var sessionPath string
	var datasetIDs []string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a measurement report from an annotation manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger := ctx.log()

			data, err := readInput("manifest", manifestPath)
			if err != nil {
				return err
			}
			manifest, err := models.ParseManifest(data)
			if err != nil {
				return err
			}

			builder := sr.NewBuilder(
				sr.WithObserverName(cfg.Report.ObserverName),
				sr.WithTrackingIdentifier(cfg.Report.TrackingIdentifier),
				sr.WithLogger(logger),
			)
			doc, err := builder.Build(manifest)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderContentTree(doc))

			var records []artifact.Record
			if dicomPath != "" {
				opts := dicomio.Options{
					SeriesInstanceUID:     seriesUID,
					SeriesDescription:     cfg.Report.SeriesDescription,
					ImplementationVersion: cfg.Report.ImplementationVersion,
					Creator:               cfg.Metadata.Creator,
					Group:                 cfg.Metadata.Group,
					Logger:                logger,
				}
				if sessionPath != "" {
					payload, err := sessionPayload(sessionPath, datasetIDs)
					if err != nil {
						return err
					}
					opts.Metadata = payload
				}
				encoded, err := dicomio.MarshalReport(doc, manifest, opts)
				if err != nil {
					return err
				}
				rec, err := writeOutput(dicomPath, artifact.MediaTypeDICOM, encoded)
				if err != nil {
					return err
				}
				records = append(records, rec)
			}

			if jsonPath != "" {
				encoded, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
				if err != nil {
					return fmt.Errorf("encode report JSON: %w", err)
				}
				rec, err := writeOutput(jsonPath, artifact.MediaTypeJSON, encoded)
				if err != nil {
					return err
				}
				records = append(records, rec)
			}

			printRecords(out, records)
			logger.Info("report built",
				"sop_instance_uid", doc.SOPInstanceUID,
				"annotations", manifest.Len(),
				"outputs", len(records))
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Annotation manifest JSON")
	cmd.Flags().StringVar(&dicomPath, "dicom", "", "Write the report as a DICOM Enhanced SR file")
	cmd.Flags().StringVar(&jsonPath, "json", "", "Write the report content tree as JSON")
	cmd.Flags().StringVar(&seriesUID, "series-uid", "", "Place the report in this series instead of a new one")
	cmd.Flags().StringVar(&sessionPath, "session", "", "Viewer session manifest whose rulers are stored with the report")
	cmd.Flags().StringSliceVar(&datasetIDs, "dataset", nil, "Dataset ids to store (default all datasets of the session)")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

// sessionPayload builds the private metadata payload for the selected
// datasets of a viewer session, one payload per dataset aggregated in order
func sessionPayload(path string, datasetIDs []string) (*metadata.Payload, error) {
	data, err := readInput("session", path)
	if err != nil {
		return nil, err
	}
	m, err := session.ParseManifest(data)
	if err != nil {
		return nil, err
	}
	if len(datasetIDs) == 0 {
		datasetIDs = m.DatasetIDs()
	}

	payloads := make([]*metadata.Payload, 0, len(datasetIDs))
	for _, id := range datasetIDs {
		if _, ok := m.Dataset(id); !ok {
			return nil, fmt.Errorf("dataset %q is not in the session", id)
		}
		payloads = append(payloads, metadata.New([]string{id}, session.RulersForDataset(m, id)))
	}
	return metadata.Aggregate(payloads), nil
}

func renderContentTree(doc *sr.Document) string {
	var rows [][]string
	doc.Root.Walk(func(depth int, item *sr.ContentItem) bool {
		concept := ""
		if item.ConceptName != nil {
			concept = item.ConceptName.Meaning
		}
		rows = append(rows, []string{
			strings.Repeat("  ", depth) + string(item.ValueType()),
			string(item.Relationship),
			concept,
			describeValue(item),
		})
		return true
	})
	return renderTable([]string{"Item", "Relationship", "Concept", "Value"}, rows, nil)
}
