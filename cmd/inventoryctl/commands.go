package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/pima/internal/admin"
	"github.com/JonMunkholm/pima/internal/config"
	"github.com/JonMunkholm/pima/internal/core"
	"github.com/JonMunkholm/pima/internal/database"
	"github.com/JonMunkholm/pima/internal/ingest"
	"github.com/JonMunkholm/pima/internal/logging"
)

type rootOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "inventoryctl",
		Short:        "Inventory spreadsheet and database tools",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newValidateCmd(opts),
		newMigrateCmd(opts),
		newResetCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), o.logLevel, "text")
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse a spreadsheet and print its records without storing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}

			n := ingest.NewNormalizer(root.logger(cmd))
			records, err := n.Parse(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				var ie *ingest.Error
				if errors.As(err, &ie) {
					return userError{err}
				}
				return err
			}

			if summary {
				return writeJSON(cmd.OutOrStdout(), core.Summarize(records, civil.DateOf(time.Now())))
			}
			return writeJSON(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print inventory totals instead of the records")
	return cmd
}

func newMigrateCmd(root *rootOptions) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd, func(ctx context.Context, pool *pgxpool.Pool) error {
				if !status {
					if err := database.Migrate(ctx, pool, root.logger(cmd)); err != nil {
						return err
					}
				}

				states, err := database.MigrationStatus(ctx, pool)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, s := range states {
					mark := "pending"
					if s.Applied {
						mark = "applied"
					}
					fmt.Fprintf(out, "%05d  %-8s %s\n", s.Version, mark, s.File)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "only list migrations and whether they are applied")
	return cmd
}

func newResetCmd(root *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored inventory record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset deletes all inventory; pass --yes to confirm")
			}
			return withPool(cmd, func(ctx context.Context, pool *pgxpool.Pool) error {
				n, err := admin.ResetInventory(ctx, database.New(pool), root.logger(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

// withPool loads configuration the way the server does and hands fn a
// connected pool.
func withPool(cmd *cobra.Command, fn func(context.Context, *pgxpool.Pool) error) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	return fn(ctx, pool)
}

// userError prints an ingestion failure the way the web UI shows it.
type userError struct{ err error }

func (e userError) Error() string { return core.FormatUserError(e.err) }
func (e userError) Unwrap() error { return e.err }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
