/*
main.go - Application entry point

PURPOSE:
  Starts the timesheet engine server and exposes a couple of operational
  subcommands around the same database.

COMMANDS:
  serve     Run the HTTP API (default when no command given)
  migrate   Apply pending schema migrations and print the version
  backfill  Normalize legacy entries missing a status

FLAGS:
  --config  Path to a TOML config file (optional)
  --port    HTTP server port (overrides config)
  --db      SQLite database path (overrides config)
            Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (configurable timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - config/config.go: File format and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/warp/timesheet-engine/api"
	"github.com/warp/timesheet-engine/config"
	"github.com/warp/timesheet-engine/store/sqlite"
)

var (
	flagConfig string
	flagPort   int
	flagDB     string
)

func main() {
	root := &cobra.Command{
		Use:   "timesheet-engine",
		Short: "Timesheet lifecycle and aggregation engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to TOML config file")
	root.PersistentFlags().IntVar(&flagPort, "port", 0, "HTTP server port (overrides config)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (overrides config)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe()
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending schema migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate()
			},
		},
		&cobra.Command{
			Use:   "backfill",
			Short: "Normalize legacy entries missing a status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runBackfill(cmd.Context())
			},
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig merges file config with flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	return cfg, cfg.Validate()
}

func openStore(cfg *config.Config) (*sqlite.Store, error) {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return store, nil
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	handler := api.NewHandler(store)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

func runMigrate() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// New applies pending migrations on open.
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	version, dirty, err := store.MigrationVersion()
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty; manual repair required", version)
	}
	log.Printf("Schema at version %d", version)
	return nil
}

func runBackfill(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.BackfillStatus(ctx)
	if err != nil {
		return err
	}
	log.Printf("Backfilled %d entries", count)
	return nil
}
