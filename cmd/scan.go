package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/shelver/internal/inventory"
	"github.com/lehigh-university-libraries/shelver/internal/mapping"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var (
		collectionID int64
		section      string
		row, column  int
		records      []string
	)

	cmd := &cobra.Command{
		Use:   "scan [SERIAL]",
		Short: "Place an item at a section, row and optional column",
		Long: `Records the placement of one item. The item is identified either by its serial
or by tag records (--record TYPE=PAYLOAD) resolved with the collection's mapping rules.`,
		Example: `  # Place by serial
  shelver scan --collection 1 --section A --row 1 --column 3 S1

  # Place by tag payload
  shelver scan --collection 1 --section A --row 1 --record 'text={"serial":"S2"}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := inventory.ScanRequest{
				CollectionID: collectionID,
				Section:      section,
				Row:          row,
			}
			if cmd.Flags().Changed("column") {
				req.Column = &column
			}

			msg, err := parseRecords(records)
			if err != nil {
				return err
			}
			if len(args) == 0 && len(msg.Records) == 0 {
				return errors.New("either a serial or at least one --record is required")
			}

			service, closeStore, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeStore()

			var result *inventory.ScanResult
			if len(args) == 1 {
				req.Serial = args[0]
				result, err = service.Scan(cmd.Context(), req)
			} else {
				result, err = service.ScanTag(cmd.Context(), req, msg)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
			return nil
		},
	}

	cmd.Flags().Int64Var(&collectionID, "collection", 0, "Collection id")
	cmd.Flags().StringVar(&section, "section", "", "Section label")
	cmd.Flags().IntVar(&row, "row", 0, "Row index (1-based)")
	cmd.Flags().IntVar(&column, "column", 0, "Column index (1-based, optional)")
	cmd.Flags().StringArrayVar(&records, "record", nil, "Tag record as TYPE=PAYLOAD (repeatable)")
	_ = cmd.MarkFlagRequired("collection")
	_ = cmd.MarkFlagRequired("section")
	_ = cmd.MarkFlagRequired("row")

	return cmd
}

// parseRecords turns TYPE=PAYLOAD arguments into a tag message
func parseRecords(args []string) (mapping.Message, error) {
	msg := mapping.Message{Records: make([]mapping.TagRecord, 0, len(args))}
	for _, arg := range args {
		recordType, payload, ok := strings.Cut(arg, "=")
		if !ok || recordType == "" {
			return msg, fmt.Errorf("invalid --record %q, expected TYPE=PAYLOAD", arg)
		}
		msg.Records = append(msg.Records, mapping.TextRecord(recordType, payload))
	}
	return msg, nil
}
