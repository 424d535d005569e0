package main

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundstack/soundstack/internal/app/storage/postgres"
	"github.com/soundstack/soundstack/internal/cli"
	"github.com/soundstack/soundstack/internal/platform/migrations"
)

var errNoDatabase = errors.New("database.dsn (DATABASE_URL) is required for migrations")

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	withDB := func(cmd *cobra.Command, what string, fn func(db *sql.DB) error) error {
		cfg, _, err := opts.load()
		if err != nil {
			return err
		}
		if cfg.Database.DSN == "" {
			return errNoDatabase
		}
		dbCfg := cfg.Database
		db, err := postgres.Open(cmd.Context(), dbCfg.DSN, dbCfg.MaxOpenConns, dbCfg.MaxIdleConns,
			time.Duration(dbCfg.ConnMaxLifetime)*time.Second)
		if err != nil {
			return err
		}
		defer db.Close()
		return cli.NewPrinter(cmd.OutOrStdout()).Timed(what, func() error { return fn(db) })
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd, "migrate up", func(db *sql.DB) error {
					return migrations.Up(cmd.Context(), db)
				})
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back the given number of migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil {
						return err
					}
					steps = n
				}
				return withDB(cmd, "migrate down", func(db *sql.DB) error {
					return migrations.Down(cmd.Context(), db, steps)
				})
			},
		},
		&cobra.Command{
			Use:   "apply",
			Short: "Run every up migration without version tracking",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd, "migrate apply", func(db *sql.DB) error {
					return migrations.Apply(cmd.Context(), db)
				})
			},
		},
	)
	return cmd
}
