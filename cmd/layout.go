package cmd

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/shelver/internal/layout"
)

var layoutFormats = []string{"text", "yaml", "json"}

func newLayoutCmd(opts *rootOptions) *cobra.Command {
	var (
		collectionID int64
		format       string
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Show the placement grid of a collection",
		Example: `  shelver layout --collection 1
  shelver layout --collection 1 --format yaml > site.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(layoutFormats, format) {
				return fmt.Errorf("unsupported format: %s (supported: text, yaml, json)", format)
			}

			service, closeStore, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeStore()

			view, err := service.View(cmd.Context(), collectionID)
			if err != nil {
				return err
			}
			report := layout.NewReport(view.Collection.Name, view.Layout, view.Stats)

			out := cmd.OutOrStdout()
			switch format {
			case "text":
				return report.WriteText(out)
			case "yaml":
				data, err := report.YAML()
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
		},
	}

	cmd.Flags().Int64Var(&collectionID, "collection", 0, "Collection id")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, yaml or json")
	_ = cmd.MarkFlagRequired("collection")

	return cmd
}
