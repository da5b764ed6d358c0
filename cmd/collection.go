package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/shelver/internal/models"
)

func newCollectionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"collections"},
		Short:   "Manage collections",
	}

	cmd.AddCommand(newCollectionCreateCmd(opts))
	cmd.AddCommand(newCollectionListCmd(opts))
	cmd.AddCommand(newCollectionDeleteCmd(opts))

	return cmd
}

func newCollectionCreateCmd(opts *rootOptions) *cobra.Command {
	var description, imageRef string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, closeStore, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeStore()

			c := &models.Collection{Name: args[0], Description: description, ImageRef: imageRef}
			if err := service.Store().CreateCollection(cmd.Context(), c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created collection %d (%s)\n", c.ID, c.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Collection description")
	cmd.Flags().StringVar(&imageRef, "image", "", "Reference to a site plan image")

	return cmd
}

func newCollectionListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections with their progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, closeStore, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeStore()

			collections, err := service.Store().ListCollections(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-6s %-30s %8s %8s %9s\n", "ID", "NAME", "ITEMS", "PLACED", "PROGRESS")
			fmt.Fprintln(out, strings.Repeat("-", 65))
			for _, c := range collections {
				st, err := service.Stats(cmd.Context(), c.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-6d %-30s %8d %8d %8.1f%%\n", c.ID, c.Name, st.Total, st.Placed, st.Completion)
			}
			return nil
		},
	}
}

func newCollectionDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a collection with all of its items, rules and share links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid collection id %q", args[0])
			}

			service, closeStore, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeStore()

			if _, err := service.Collection(cmd.Context(), id); err != nil {
				return err
			}
			if err := service.Store().DeleteCollection(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted collection %d\n", id)
			return nil
		},
	}
}
