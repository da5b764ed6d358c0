package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/shelver/internal/dataset"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		collectionID int64
		format       string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a collection's items as CSV or Parquet",
		Example: `  shelver export --collection 1 > items.csv
  shelver export --collection 1 --format parquet --output items.parquet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := dataset.Format(format)
			if f != dataset.FormatCSV && f != dataset.FormatParquet {
				return fmt.Errorf("unsupported format: %s (supported: csv, parquet)", format)
			}

			service, closeStore, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeStore()

			if _, err := service.Collection(cmd.Context(), collectionID); err != nil {
				return err
			}
			items, err := service.Store().ListItems(cmd.Context(), collectionID)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return dataset.WriteItems(cmd.OutOrStdout(), f, items)
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			if err := dataset.WriteItems(file, f, items); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d items to %s\n", len(items), output)
			return nil
		},
	}

	cmd.Flags().Int64Var(&collectionID, "collection", 0, "Collection id")
	cmd.Flags().StringVar(&format, "format", "csv", "Export format: csv or parquet")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	_ = cmd.MarkFlagRequired("collection")

	return cmd
}
