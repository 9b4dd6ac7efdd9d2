package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/emersion/go-vcard"
	"github.com/spf13/cobra"

	"github.com/chucktrukk/carddavclient/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the cards of the local database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		path := cfg.Server.AddressBook
		if path == "" {
			c, err := newClient(ctx)
			if err != nil {
				return err
			}
			if path, err = resolveAddressBook(ctx, c); err != nil {
				return err
			}
		}

		s, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Init(ctx); err != nil {
			return err
		}

		cards, err := s.Cards(ctx, path)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "URI\tNAME\tEMAIL")
		for _, c := range cards {
			var name, email string
			if c.Card != nil {
				name = c.Card.PreferredValue(vcard.FieldFormattedName)
				email = c.Card.PreferredValue(vcard.FieldEmail)
			}
			fmt.Fprintf(tw, "%v\t%v\t%v\n", c.URI, name, email)
		}
		return tw.Flush()
	},
}
