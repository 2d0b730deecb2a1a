package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
	"github.com/kartikbazzad/bunbase/bunstore/internal/postgres"
	"github.com/kartikbazzad/bunbase/bunstore/pkg/config"
	"github.com/kartikbazzad/bunbase/bunstore/pkg/logger"
)

// Config is the subset of the server configuration the CLI needs.
type Config struct {
	DB  postgres.Config `mapstructure:"db"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

var defaults = map[string]any{
	"db.url":      "",
	"db.host":     "localhost",
	"db.port":     5432,
	"db.user":     "bunadmin",
	"db.password": "bunpassword",
	"db.name":     "bunstore",
	"db.sslmode":  "disable",
	"log.level":   "WARN",
}

var databaseURL string

// --- Cobra root and top-level commands ---

var rootCmd = &cobra.Command{
	Use:           "bunstore-cli",
	Short:         "Administer bunstore collections",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (overrides BUNSTORE_DB_* settings)")
	rootCmd.AddCommand(newCollectionsCmd(), newFieldsCmd(), newMigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := config.LoadWithDefaults("BUNSTORE_", &cfg, defaults); err != nil {
		return cfg, err
	}
	if databaseURL != "" {
		cfg.DB.URL = databaseURL
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Format: "text", Output: os.Stderr})
	return cfg, nil
}

// withRegistry opens the database, runs fn against a registry seeded from
// the catalog and closes the pool afterwards.
func withRegistry(ctx context.Context, fn func(*collection.Collections) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dsn := cfg.DB.DSN()
	if err := postgres.Migrate(dsn); err != nil {
		return err
	}
	pool, err := postgres.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	registry, err := collection.NewCollections(ctx, postgres.NewStore(pool))
	if err != nil {
		return err
	}
	return fn(registry)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply catalog migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := postgres.Migrate(cfg.DB.DSN()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

// printJSON writes v followed by a newline.
func printJSON(w io.Writer, v any) error {
	b, err := collection.Encode(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
