package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/storage"
)

var (
	sqlitePath  string
	databaseURL string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:           "ledger-migrate",
	Short:         "Ledger database maintenance",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy every movement from the SQLite file into PostgreSQL",
	Long: "Copies all movements from the embedded SQLite database into an empty\n" +
		"PostgreSQL database. Nothing is written when the destination already\n" +
		"holds movements.",
	RunE: runCopy,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the movements table on the configured database",
	RunE:  runSchema,
}

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	copyCmd.Flags().StringVar(&sqlitePath, "sqlite-path", cfg.SQLiteDBPath, "source SQLite database file")
	copyCmd.Flags().StringVar(&databaseURL, "database-url", cfg.DatabaseURL, "destination postgres:// URL")
	schemaCmd.Flags().StringVar(&sqlitePath, "sqlite-path", cfg.SQLiteDBPath, "SQLite database file")
	schemaCmd.Flags().StringVar(&databaseURL, "database-url", cfg.DatabaseURL, "postgres:// URL; empty selects SQLite")

	rootCmd.AddCommand(copyCmd, schemaCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCopy(cmd *cobra.Command, _ []string) error {
	logger := cli.SetupLogger(logLevel).WithComponent(log.ComponentMigrate)

	if !storage.IsNetworked(databaseURL) {
		return fmt.Errorf("--database-url must be a postgres:// or postgresql:// URL")
	}

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	src, err := storage.NewProvider(storage.ProviderConfig{SQLitePath: sqlitePath})
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dst, err := storage.NewProvider(storage.ProviderConfig{DatabaseURL: databaseURL})
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}
	defer dst.Close()

	info := storage.DescribeDSN(databaseURL)
	logger.Info("Copying movements",
		"sqlite_path", sqlitePath,
		"db_host", info.Host,
		"db_name", info.Database)

	report, err := storage.CopyMovements(ctx, src, dst, logger.Logger)
	if err != nil {
		return err
	}

	if report.Skipped != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "nothing copied: %s\n", report.Skipped)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "copied %d movements (source %d, destination now %d)\n",
		report.Copied, report.SourceCount, report.DestinationCount)
	return nil
}

func runSchema(cmd *cobra.Command, _ []string) error {
	logger := cli.SetupLogger(logLevel).WithComponent(log.ComponentMigrate)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	p, err := storage.NewProvider(storage.ProviderConfig{
		DatabaseURL: databaseURL,
		SQLitePath:  sqlitePath,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	if err := storage.EnsureSchema(ctx, p); err != nil {
		return err
	}
	logger.Info("Schema ready", log.FieldEngine, p.Engine())
	fmt.Fprintf(cmd.OutOrStdout(), "schema ready on %s\n", p.Engine())
	return nil
}
