package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jar-ry/Snowflake-Data-Science/internal/config"
	"github.com/jar-ry/Snowflake-Data-Science/internal/observability"
	"github.com/jar-ry/Snowflake-Data-Science/internal/snowflake"
	"github.com/jar-ry/Snowflake-Data-Science/internal/ui"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/models"
)

var (
	rootFlags struct {
		connection    string
		logLevel      string
		logFormat     string
		timeout       time.Duration
		quiet         bool
		verbose       bool
		database      string
		schema        string
		role          string
		warehouse     string
		warehouseSize string
	}

	// settings is loaded by initConfig before any command runs.
	settings *models.Settings

	logger = observability.GetDefaultLogger()

	// sessionFactory opens the Snowflake session commands run against.
	sessionFactory = openSession

	rootCmd = &cobra.Command{
		Use:   "sfds",
		Short: "Snowflake data science helpers",
		Long: `sfds - Bootstraps Snowflake sessions for data science work, allocates model
and dataset version tags, provisions the model registry and feature store
schemas, and builds the customer feature pipelines as SQL.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		observability.Debugf("sfds %s failed: %+v", strings.Join(os.Args[1:], " "), err)
		ui.SetOutput(os.Stderr)
		ui.ShowError(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&rootFlags.connection, "connection", "c", "", "Connection file (default ./connection.json, then $SFDS_CONFIG/connection.json)")
	flags.StringVar(&rootFlags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&rootFlags.logFormat, "log-format", "", "Log format (text, json)")
	flags.DurationVar(&rootFlags.timeout, "timeout", 0, "Per statement timeout (default from settings.yaml)")
	flags.BoolVarP(&rootFlags.quiet, "quiet", "q", false, "Only print results")
	flags.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Print executed statements")
	flags.StringVar(&rootFlags.database, "database", "", "Database override")
	flags.StringVar(&rootFlags.schema, "schema", "", "Schema override")
	flags.StringVar(&rootFlags.role, "role", "", "Role override")
	flags.StringVar(&rootFlags.warehouse, "warehouse", "", "Warehouse override")
	flags.StringVar(&rootFlags.warehouseSize, "warehouse-size", "", "Warehouse size override")

	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", flags.Lookup("log-format"))
}

func initConfig() {
	viper.SetEnvPrefix("SFDS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	loaded, loadErr := config.LoadSettings()
	if loadErr != nil {
		defaults := models.DefaultSettings()
		loaded = &defaults
	}
	settings = loaded
	applyOverrides(settings)

	logger = observability.NewLogger(observability.LoggerConfig{
		Level:   observability.LogLevelFromString(settings.Logging.Level),
		Format:  settings.Logging.Format,
		Output:  os.Stderr,
		Service: "sfds",
		Version: Version,
	})
	observability.SetDefaultLogger(logger)
	if loadErr != nil {
		observability.Warnf("Using default settings: %v", loadErr)
	}
}

// applyOverrides layers flags and SFDS_* variables over settings.yaml.
func applyOverrides(s *models.Settings) {
	if level := viper.GetString("logging.level"); level != "" {
		s.Logging.Level = level
	}
	if format := viper.GetString("logging.format"); format != "" {
		s.Logging.Format = format
	}

	env := &s.Environment
	override(&env.Database, rootFlags.database)
	override(&env.Schema, rootFlags.schema)
	override(&env.Role, rootFlags.role)
	override(&env.Warehouse, rootFlags.warehouse)
	override(&env.WarehouseSize, strings.ToUpper(rootFlags.warehouseSize))
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func currentSettings() *models.Settings {
	if settings == nil {
		defaults := models.DefaultSettings()
		settings = &defaults
	}
	return settings
}

func statementTimeout() time.Duration {
	if rootFlags.timeout > 0 {
		return rootFlags.timeout
	}
	return config.StatementTimeout(currentSettings())
}

// openSession loads connection.json and connects.
func openSession(ctx context.Context) (*snowflake.Session, error) {
	conn, err := config.LoadConnection(config.ResolveConnectionFile(rootFlags.connection))
	if err != nil {
		return nil, err
	}
	return snowflake.Open(ctx, conn, snowflake.Options{
		Logger:  logger,
		Timeout: statementTimeout(),
	})
}

// connect opens a session and, when bootstrap is set, switches it into the
// configured environment.
func connect(cmd *cobra.Command, bootstrap bool) (*snowflake.Session, *snowflake.SessionInfo, error) {
	out := newUI(cmd)
	out.StartProgress("Connecting to Snowflake")

	session, err := sessionFactory(cmd.Context())
	if err != nil {
		out.StopProgress(false, "Connection failed")
		return nil, nil, err
	}

	if !bootstrap {
		out.StopProgress(true, "Connected")
		return session, nil, nil
	}

	info, err := session.Bootstrap(cmd.Context(), currentSettings().Environment)
	if err != nil {
		out.StopProgress(false, "Session bootstrap failed")
		session.Close()
		return nil, nil, err
	}
	out.StopProgress(true, fmt.Sprintf("Connected as %s using %s", info.User, snowflake.Qualify(info.Database, info.Schema)))
	return session, info, nil
}

func newUI(cmd *cobra.Command) *ui.UI {
	return ui.NewUI(cmd.OutOrStdout(), rootFlags.verbose, rootFlags.quiet)
}

func newPrinter(cmd *cobra.Command, maxRows int) *ui.ResultPrinter {
	return ui.NewResultPrinter(isTerminal(cmd.OutOrStdout()), maxRows)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && f == os.Stdout && ui.ColorEnabled()
}
