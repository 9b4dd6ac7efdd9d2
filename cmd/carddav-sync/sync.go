package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chucktrukk/carddavclient/davsync"
	"github.com/chucktrukk/carddavclient/internal/logger"
	"github.com/chucktrukk/carddavclient/internal/store"
)

var syncProps []string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the address book into the local database",
	Long: `Synchronize the address book into the local database.

Deleted cards are removed, new and modified cards are downloaded. If the
server rejects the stored checkpoint, the local copy is dropped and a full
synchronization is run instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)

		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		path, err := resolveAddressBook(ctx, c)
		if err != nil {
			return err
		}
		ab := c.Collection(path)

		name := ab.Path()
		if info, err := ab.Info(ctx); err != nil {
			log.Warn().Err(err).Str("collection", ab.Path()).Msg("failed to fetch address book metadata")
		} else if info.Name != "" {
			name = fmt.Sprintf("%v (%v)", info.Name, ab.Path())
		}

		s, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Init(ctx); err != nil {
			return err
		}

		if len(syncProps) == 0 {
			syncProps = cfg.Sync.Props
		}
		syncer := davsync.New(c,
			davsync.WithLogger(log.Logger),
			davsync.WithFetchConcurrency(cfg.Sync.FetchConcurrency),
			davsync.WithMaxSyncRounds(cfg.Sync.MaxSyncRounds),
		)

		start := time.Now()
		if err := s.Synchronize(ctx, syncer, ab, syncProps); err != nil {
			return err
		}

		cards, err := s.Cards(ctx, ab.Path())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Synchronized %v in %v: %d cards\n", name, time.Since(start).Round(time.Millisecond), len(cards))
		return nil
	},
}

func init() {
	syncCmd.Flags().StringSliceVar(&syncProps, "props", nil, "vCard properties to fetch (defaults to all)")
}
