package main

import (
	"context"
	"fmt"

	"cancioneiro/internal/platform/logger"
	"cancioneiro/internal/platform/store/migrate"
	"cancioneiro/internal/platform/store/pg"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or inspect the embedded postgres schema",
}

func init() {
	migrateCmd.PersistentFlags().String("dburl", "", "postgres url (default SERVICE_PGSQL_DBURL)")

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			RunE: withPool(func(ctx context.Context, cmd *cobra.Command, p *pgxpool.Pool) error {
				if err := migrate.Up(ctx, p); err != nil {
					return err
				}
				return printVersion(ctx, cmd, p)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: withPool(func(ctx context.Context, cmd *cobra.Command, p *pgxpool.Pool) error {
				if err := migrate.Down(ctx, p); err != nil {
					return err
				}
				return printVersion(ctx, cmd, p)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE:  withPool(printVersion),
		},
		&cobra.Command{
			Use:   "files",
			Short: "List the embedded migrations in apply order",
			RunE: func(cmd *cobra.Command, _ []string) error {
				files, err := migrate.Files()
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			},
		},
	)
	rootCmd.AddCommand(migrateCmd)
}

func withPool(fn func(context.Context, *cobra.Command, *pgxpool.Pool) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		url, _ := cmd.Flags().GetString("dburl")
		if url == "" {
			root, err := conf()
			if err != nil {
				return err
			}
			url = root.Prefix("SERVICE_PGSQL_").MayString("DBURL", "")
		}
		if url == "" {
			return fmt.Errorf("no postgres url: pass --dburl or set SERVICE_PGSQL_DBURL")
		}
		ctx := cmd.Context()
		p, err := pg.Open(ctx, pg.Config{URL: url, MaxConns: 2, AppName: "cancioneiroctl"}, *logger.Named("migrate"))
		if err != nil {
			return err
		}
		defer p.Close()
		return fn(ctx, cmd, p)
	}
}

func printVersion(ctx context.Context, cmd *cobra.Command, p *pgxpool.Pool) error {
	v, err := migrate.Version(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
	return nil
}
