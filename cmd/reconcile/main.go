// Command reconcile is the operational companion to the reservation server.
// It runs the maintenance operations against the same database: purging
// past reservations, rebuilding the occupancy documents from the ledger,
// and generating the bcrypt hash for the staff password.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/naruebet/cafe-reservation/internal/catalog"
	"github.com/naruebet/cafe-reservation/internal/config"
	"github.com/naruebet/cafe-reservation/internal/database"
	"github.com/naruebet/cafe-reservation/internal/engine"
	"github.com/naruebet/cafe-reservation/internal/logger"
	"github.com/naruebet/cafe-reservation/internal/store"
	"github.com/naruebet/cafe-reservation/internal/utils"
)

func main() {
	root := &cobra.Command{
		Use:           "reconcile",
		Short:         "maintenance operations for the reservation store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(purgeCmd(), rebuildCmd(), hashPasswordCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newEngine wires a database-backed engine from the shared .env
// configuration.  The CLI refuses to run against the in-memory store:
// there is nothing to reconcile in a store that dies with the process.
func newEngine() (*engine.Engine, func(), error) {
	cfg := config.Load()
	if !cfg.UsesDatabase() {
		return nil, nil, fmt.Errorf("DB_HOST not set; reconcile needs the database-backed store")
	}

	log, err := logger.New(cfg.LogLevel, "console", "reconcile")
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	st := store.NewMySQLStore(db)
	if err := st.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("schema setup failed: %w", err)
	}

	cleanup := func() {
		db.Close()
		_ = log.Sync()
	}
	return engine.New(catalog.Default(), st, log), cleanup, nil
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "delete reservations dated before today",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cleanup, err := newEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			count, err := eng.PurgePastReservations(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("purged %d past reservations\n", count)
			return nil
		},
	}
}

func rebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "rebuild every occupancy document from the reservation ledger",
		Long: "Rebuild discards all occupancy documents and reconstructs them from the\n" +
			"confirmed reservations.  Run it after a purge, or whenever the occupancy\n" +
			"snapshots are suspected to have drifted from the ledger.",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cleanup, err := newEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			days, err := eng.RebuildOccupancy(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("rebuilt occupancy for %d days\n", days)
			return nil
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	cost := bcrypt.DefaultCost
	cmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "print the bcrypt hash to use as ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := utils.HashPassword(args[0], cost)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost factor")
	return cmd
}
