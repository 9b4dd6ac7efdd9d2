// Command carddav-sync mirrors a CardDAV address book into a local SQLite
// database.
//
// Configuration is read from CARDDAV_* environment variables and can be
// overridden with flags.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/chucktrukk/carddavclient/carddav"
	"github.com/chucktrukk/carddavclient/internal/config"
	"github.com/chucktrukk/carddavclient/internal/logger"
	"github.com/chucktrukk/carddavclient/webdav"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "carddav-sync",
	Short: "Synchronize a CardDAV address book into a local database",
	Long: `carddav-sync keeps a local SQLite copy of a CardDAV address book.

It uses the sync-collection REPORT when the server supports it, and falls
back to comparing ETags otherwise. The checkpoint is only stored after a
successful synchronization.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		level, err := logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		log := logger.NewLogger("carddav-sync", level)
		cmd.SetContext(log.WithContext(cmd.Context()))
		return nil
	},
}

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Server.URL, "url", cfg.Server.URL, "CardDAV server URL, or a domain to discover it from")
	flags.StringVarP(&cfg.Server.Username, "username", "u", cfg.Server.Username, "username")
	flags.StringVarP(&cfg.Server.Password, "password", "p", cfg.Server.Password, "password")
	flags.StringVar(&cfg.Server.AddressBook, "addressbook", cfg.Server.AddressBook, "address book path (defaults to the first one found)")
	flags.DurationVar(&cfg.Server.Timeout, "timeout", cfg.Server.Timeout, "HTTP request timeout")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path of the local SQLite database")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(discoverCmd, syncCmd, listCmd)
}

// newClient connects to the configured server. A bare domain is resolved
// with DNS service discovery first.
func newClient(ctx context.Context) (*carddav.Client, error) {
	endpoint := cfg.Server.URL
	if domain := cfg.Server.Domain(); domain != "" {
		u, err := carddav.DiscoverContextURL(ctx, domain)
		if err != nil {
			return nil, fmt.Errorf("discover CardDAV service of %v: %w", domain, err)
		}
		logger.FromContext(ctx).Debug().Str("domain", domain).Str("url", u).Msg("discovered CardDAV service")
		endpoint = u
	}

	var httpClient webdav.HTTPClient = &http.Client{Timeout: cfg.Server.Timeout}
	if cfg.Server.Username != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, cfg.Server.Username, cfg.Server.Password)
	}
	return carddav.NewClient(httpClient, endpoint)
}

// findAddressBooks walks from the current user principal to the address
// books of the user.
func findAddressBooks(ctx context.Context, c *carddav.Client) ([]carddav.AddressBook, error) {
	principal, err := c.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find current user principal: %w", err)
	}
	homeSet, err := c.FindAddressBookHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find address book home set: %w", err)
	}
	addressBooks, err := c.FindAddressBooks(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find address books: %w", err)
	}
	return addressBooks, nil
}

// resolveAddressBook returns the configured address book path, or the first
// address book of the user.
func resolveAddressBook(ctx context.Context, c *carddav.Client) (string, error) {
	if cfg.Server.AddressBook != "" {
		return cfg.Server.AddressBook, nil
	}
	addressBooks, err := findAddressBooks(ctx, c)
	if err != nil {
		return "", err
	}
	if len(addressBooks) == 0 {
		return "", fmt.Errorf("no address book found")
	}
	return addressBooks[0].Path, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
