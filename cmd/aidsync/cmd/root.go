// Package cmd implements the aidsync CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	// Database drivers the sqlstore runs on.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/openaid/aidsync/internal/config"
	"github.com/openaid/aidsync/pkg/store"
	"github.com/openaid/aidsync/pkg/store/memory"
	"github.com/openaid/aidsync/pkg/store/sqlstore"
)

var (
	configFile string
	cfg        *config.Config

	// Version is set by main at startup.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "aidsync",
	Short: "IATI activity import and reconciliation",
	Long: `Aidsync imports IATI-standard XML aid-activity documents into a
relational store. It previews a document's activities against what is
already stored, reconciles field values one by one, and applies a
confirmed selection under create, bulk-create, or update modes.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command with signal-aware context.
func Execute(version, commit string) {
	Version = version
	Commit = commit
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.aidsync.yaml)")
	rootCmd.PersistentFlags().String("store-driver", "", "store driver: sqlite, pgx, or memory")
	rootCmd.PersistentFlags().String("store-dsn", "", "store DSN, e.g. aidsync.db or postgres://...")
	rootCmd.PersistentFlags().String("lang", "", "preferred narrative language (BCP 47)")
	rootCmd.PersistentFlags().Int("workers", 0, "bulk import worker cap")

	cobra.CheckErr(viper.BindPFlag("store_driver", rootCmd.PersistentFlags().Lookup("store-driver")))
	cobra.CheckErr(viper.BindPFlag("store_dsn", rootCmd.PersistentFlags().Lookup("store-dsn")))
	cobra.CheckErr(viper.BindPFlag("language", rootCmd.PersistentFlags().Lookup("lang")))
	cobra.CheckErr(viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers")))
}

func setup(_ *cobra.Command, _ []string) error {
	if configFile != "" {
		viper.Set("config", configFile)
	}
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// openStore connects the configured store. SQLite gets its schema
// created on the spot; Postgres schema management is external.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		s, err := sqlstore.Open(ctx, "sqlite", cfg.StoreDSN)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "pgx", "postgres":
		return sqlstore.Open(ctx, "pgx", cfg.StoreDSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
