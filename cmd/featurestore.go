package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jar-ry/Snowflake-Data-Science/internal/snowflake"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

var featureStoreFlags struct {
	database  string
	schema    string
	warehouse string
}

var featureStoreCmd = &cobra.Command{
	Use:     "feature-store",
	Aliases: []string{"fs"},
	Short:   "Feature store schema",
}

var featureStoreCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open the feature store schema, creating it when missing",
	Args:  cobra.NoArgs,
	RunE:  runFeatureStoreCreate,
}

var featureStoreTablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables materialized in the feature store",
	Args:  cobra.NoArgs,
	RunE:  runFeatureStoreTables,
}

func init() {
	flags := featureStoreCmd.PersistentFlags()
	flags.StringVar(&featureStoreFlags.database, "fs-database", "", "Feature store database (default from settings, then the environment database)")
	flags.StringVar(&featureStoreFlags.schema, "fs-schema", "", "Feature store schema (default from settings)")
	flags.StringVar(&featureStoreFlags.warehouse, "fs-warehouse", "", "Feature store warehouse (default from settings, then the environment warehouse)")

	featureStoreCmd.AddCommand(featureStoreCreateCmd, featureStoreTablesCmd)
	rootCmd.AddCommand(featureStoreCmd)
}

// featureStoreLocation resolves database, schema and warehouse from flags,
// settings and the environment.
func featureStoreLocation() (string, string, string, error) {
	s := currentSettings()
	database := firstNonEmpty(featureStoreFlags.database, s.FeatureStore.Database, s.Environment.DatabaseName())
	schema := firstNonEmpty(featureStoreFlags.schema, s.FeatureStore.Schema)
	warehouse := firstNonEmpty(featureStoreFlags.warehouse, s.FeatureStore.Warehouse, s.Environment.WarehouseName())

	if schema == "" {
		return "", "", "", errors.ConfigError("feature store schema is required", "feature_store.schema").
			WithSuggestions("Pass --fs-schema or set feature_store.schema in settings.yaml")
	}
	return database, schema, warehouse, nil
}

func openFeatureStore(ctx context.Context, session *snowflake.Session) (*snowflake.FeatureStore, bool, error) {
	database, schema, warehouse, err := featureStoreLocation()
	if err != nil {
		return nil, false, err
	}
	return session.CreateFeatureStore(ctx, database, schema, warehouse)
}

func runFeatureStoreCreate(cmd *cobra.Command, args []string) error {
	if _, _, _, err := featureStoreLocation(); err != nil {
		return err
	}

	session, _, err := connect(cmd, true)
	if err != nil {
		return err
	}
	defer session.Close()

	fs, created, err := openFeatureStore(cmd.Context(), session)
	if err != nil {
		return err
	}

	out := newUI(cmd)
	if created {
		out.Success(fmt.Sprintf("Created feature store %s", fs.Name()))
	} else {
		out.Info(fmt.Sprintf("Feature store %s already exists", fs.Name()))
	}
	out.Print(fs.Name() + "\n")
	return nil
}

func runFeatureStoreTables(cmd *cobra.Command, args []string) error {
	if _, _, _, err := featureStoreLocation(); err != nil {
		return err
	}

	session, _, err := connect(cmd, true)
	if err != nil {
		return err
	}
	defer session.Close()

	fs, _, err := openFeatureStore(cmd.Context(), session)
	if err != nil {
		return err
	}
	tables, err := fs.Tables(cmd.Context())
	if err != nil {
		return err
	}

	res := &snowflake.Result{Columns: []string{"TABLE"}}
	for _, t := range tables {
		res.Rows = append(res.Rows, []interface{}{t})
	}
	newUI(cmd).Print(newPrinter(cmd, 0).Result(res))
	return nil
}
