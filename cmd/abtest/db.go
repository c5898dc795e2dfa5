package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/moguls753/abtest/internal/container"
	"github.com/moguls753/abtest/internal/store"
)

func newDBCmd(a *app) *cobra.Command {
	var composeFile string
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the local PostgreSQL store",
	}
	dbCmd.PersistentFlags().StringVar(&composeFile, "compose-file", container.DefaultComposeFile, "docker compose file")

	var timeout time.Duration
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Start PostgreSQL with docker compose and create the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := store.DefaultPostgresDSN
			if a.cfg.Store.Backend == store.BackendPostgres && a.cfg.Store.DSN != "" {
				dsn = a.cfg.Store.DSN
			}

			ctx := cmd.Context()
			if err := container.Start(ctx, container.Postgres(composeFile, dsn, timeout), a.out(cmd)); err != nil {
				return err
			}

			db, err := store.OpenSQL(ctx, store.DriverPostgres, dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out(cmd), "Schema ready")
			return nil
		},
	}
	upCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for PostgreSQL")

	var volumes bool
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Stop the PostgreSQL container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return container.Stop(cmd.Context(), composeFile, volumes, a.out(cmd))
		},
	}
	downCmd.Flags().BoolVarP(&volumes, "volumes", "v", false, "also delete the stored sessions and tests")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables of the configured SQL store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Open migrates SQL backends
			if _, err := a.service(cmd.Context()); err != nil {
				return err
			}
			if err := a.store.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out(cmd), "Store %s is ready\n", a.cfg.Store.Backend)
			return nil
		},
	}

	dbCmd.AddCommand(upCmd, downCmd, migrateCmd)
	return dbCmd
}
