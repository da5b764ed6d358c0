package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/shelver/internal/dataset"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var collectionID int64

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import items from CSV, JSONL or Parquet files",
		Long: `Reads package and serial columns from one or more files and adds the items
that are not yet in the collection. Serials already present are skipped.

Recognized headers: package_id / pallet_no / "Pallet No" and serial / serial_code / "Serial Code".`,
		Example: `  shelver import --collection 1 pallets-week1.csv pallets-week2.parquet`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := dataset.LoadAll(cmd.Context(), args)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return errors.New("no valid records found in the given files")
			}

			service, closeStore, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeStore()

			result, err := service.ImportBatch(cmd.Context(), collectionID, records)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
			return nil
		},
	}

	cmd.Flags().Int64Var(&collectionID, "collection", 0, "Collection id")
	_ = cmd.MarkFlagRequired("collection")

	return cmd
}
