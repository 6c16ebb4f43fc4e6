package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"annotationsr/pkg/artifact"
	"annotationsr/pkg/inference"
)

func newMetadataCommand(ctx *commandContext) *cobra.Command {
	var sessionPath string
	var datasetIDs []string
	var measurementsPath string
	var imageID string
	var outPath string

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Emit the private metadata payload for session datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.log()

			payload, err := sessionPayload(sessionPath, datasetIDs)
			if err != nil {
				return err
			}

			if measurementsPath != "" {
				data, err := readInput("measurements", measurementsPath)
				if err != nil {
					return err
				}
				target := imageID
				if target == "" && len(payload.DatasetIDs) > 0 {
					target = payload.DatasetIDs[0]
				}
				rulers, err := inference.RulersFromMeasurements(data, target)
				if err != nil {
					return err
				}
				for i := range rulers {
					rulers[i].ID = uuid.NewString()
				}
				payload.Rulers.Tools = append(payload.Rulers.Tools, rulers...)
				logger.Debug("added measured rulers", "image_id", target, "rulers", len(rulers))
			}

			encoded, err := payload.Marshal()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath == "" {
				fmt.Fprintln(out, string(encoded))
				return nil
			}
			rec, err := writeOutput(outPath, artifact.MediaTypeJSON, encoded)
			if err != nil {
				return err
			}
			printRecords(out, []artifact.Record{rec})
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionPath, "session", "s", "", "Viewer session manifest.json")
	cmd.Flags().StringSliceVarP(&datasetIDs, "dataset", "d", nil, "Dataset ids to include (default all)")
	cmd.Flags().StringVar(&measurementsPath, "measurements", "", "Measurement response whose landmark pairs become rulers")
	cmd.Flags().StringVar(&imageID, "image-id", "", "Image the measured rulers lie on (default first dataset)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the payload to this file instead of stdout")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}
