package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/shelver/internal/config"
	"github.com/lehigh-university-libraries/shelver/internal/inventory"
	"github.com/lehigh-university-libraries/shelver/internal/storage"
)

// rootOptions carries the global flags and the resolved config to subcommands
type rootOptions struct {
	configPath string
	dbPath     string
	logLevel   string

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "shelver",
		Short: "Inventory reconciliation and placement tracker",
		Long: `Shelver tracks serialized inventory from bulk registration to physical placement.

Items are imported in batches per collection, then scanned into a section/row/column
grid. Each location holds at most one item and each item is placed exactly once.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (env "+config.EnvDatabase+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (env "+config.EnvLogLevel+")")

	// Add subcommands
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newCollectionCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newScanCmd(opts))
	cmd.AddCommand(newLayoutCmd(opts))
	cmd.AddCommand(newExportCmd(opts))

	return cmd
}

// resolve applies flags over env, file and defaults and configures logging
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.DatabasePath = o.dbPath
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	o.cfg = cfg
	return nil
}

// openService opens the store and wraps it in the engine. The returned func closes the store.
func (o *rootOptions) openService() (*inventory.Service, func(), error) {
	store, err := storage.Open(o.cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %s: %w", o.cfg.DatabasePath, err)
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			slog.Error("Unable to close database", "err", err)
		}
	}
	return inventory.NewService(store), closeFn, nil
}
