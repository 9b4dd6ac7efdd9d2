package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the address books of the user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		addressBooks, err := findAddressBooks(ctx, c)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PATH\tNAME\tDESCRIPTION")
		for _, ab := range addressBooks {
			fmt.Fprintf(tw, "%v\t%v\t%v\n", ab.Path, ab.Name, ab.Description)
		}
		return tw.Flush()
	},
}
