package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/vvka-141/sparkload/internal/db"
	"github.com/vvka-141/sparkload/internal/logging"
	"github.com/vvka-141/sparkload/internal/store"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the star schema tables",
	Long: `Schema creates the songplays, songs, artists, users and time tables if they
do not exist yet. Existing tables are left untouched; this is a bootstrap,
not a migration.

Examples:
  # Create the tables in sparkifydb on localhost
  sparkload schema -U student

  # Print the DDL without connecting
  sparkload schema --print`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

type schemaFlagValues struct {
	conn    connectionFlags
	print   bool
	timeout time.Duration
}

var schemaFlags schemaFlagValues

func init() {
	rootCmd.AddCommand(schemaCmd)
	addConnectionFlags(schemaCmd, &schemaFlags.conn)

	schemaCmd.Flags().BoolVar(&schemaFlags.print, "print", false, "Print the DDL to stdout instead of applying it")
	schemaCmd.Flags().DurationVar(&schemaFlags.timeout, "timeout", time.Minute,
		"Abort after this long (examples: 30s, 5m)")

	registerCompletions(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	if schemaFlags.print {
		return printSchema(cmd.OutOrStdout())
	}

	verbose := getVerboseFlag(cmd)
	logger := logging.NewConsoleLogger(verbose)

	projectCfg, err := loadProjectConfig(".")
	if err != nil {
		return err
	}
	connConfig, err := resolveConnectionFromFlags(schemaFlags.conn, projectCfg)
	if err != nil {
		return err
	}
	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, schemaFlags.timeout)
	if err != nil {
		return err
	}
	logConnectionVerbose(logger, connConfig)

	ctx, cancel := withInterrupt(context.Background(), timeout)
	defer cancel()

	if err := applySchema(ctx, db.NewConnectorFactory(logger), connConfig); err != nil {
		return err
	}
	logger.Info("✓ Schema ready in database '%s'", connConfig.Database)
	return nil
}

func printSchema(w io.Writer) error {
	_, err := io.WriteString(w, store.SchemaSQL())
	return err
}

// applySchema connects through factory and applies the bootstrap DDL.
func applySchema(ctx context.Context, factory sparkload.ConnectorFactory, connConfig *sparkload.ConnectionConfig) error {
	connector, err := factory(connConfig)
	if err != nil {
		return fmt.Errorf("failed to create connector: %w", err)
	}
	if closer, ok := connector.(io.Closer); ok {
		defer closer.Close()
	}

	conn, err := connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: database %q: %w", sparkload.ErrConnectionFailed, connConfig.Database, err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	return store.EnsureSchema(ctx, conn)
}
