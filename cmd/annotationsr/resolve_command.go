package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"annotationsr/pkg/session"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var sessionPath string
	var datasetID string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve viewer session datasets to their file paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.log()

			data, err := readInput("session", sessionPath)
			if err != nil {
				return err
			}
			m, err := session.ParseManifest(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if datasetID != "" {
				path, err := session.ResolveByID(datasetID, m)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, path)
				return nil
			}

			paths, failures := session.ResolveAll(m)
			ids := make([]string, 0, len(paths))
			for id := range paths {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			rows := make([][]string, 0, len(ids)+len(failures))
			for _, id := range ids {
				rows = append(rows, []string{id, paths[id], ""})
			}
			for _, err := range failures {
				logger.Warn("dataset did not resolve", "error", err)
				rows = append(rows, []string{"", "", err.Error()})
			}
			fmt.Fprintln(out, renderTable([]string{"Dataset", "Path", "Error"}, rows, nil))

			if len(failures) > 0 {
				return fmt.Errorf("%d of %d datasets did not resolve", len(failures), len(m.Datasets))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionPath, "session", "s", "", "Viewer session manifest.json")
	cmd.Flags().StringVarP(&datasetID, "dataset", "d", "", "Resolve only this dataset id")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}
