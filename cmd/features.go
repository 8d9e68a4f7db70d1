package cmd

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/spf13/cobra"

	"github.com/jar-ry/Snowflake-Data-Science/internal/features"
	"github.com/jar-ry/Snowflake-Data-Science/internal/sqlformat"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

var featuresFlags struct {
	customerTable string
	behaviorTable string
	source        string
	entityKey     string
	timestamp     string
	materialize   string
	run           bool
	maxRows       int
	subqToCTE     bool
	raw           bool
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Customer feature pipelines",
	Long: `Build the customer feature pipelines as SQL. By default the query is printed;
--run executes it and prints the rows, --materialize writes it to a table in
the feature store.`,
}

var featuresLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Join customers with their purchase behavior",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, loadStage())
	},
}

var featuresPreProcessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Derive recency and frequency features from the customer data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, features.PreProcess(sourceStage(loadStage)))
	},
}

var featuresSpineCmd = &cobra.Command{
	Use:   "spine",
	Short: "One row per entity with its latest timestamp as ASOF_DATE",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		preprocessed := func() sq.SelectBuilder { return features.PreProcess(loadStage()) }
		return runPipeline(cmd, features.Spine(sourceStage(preprocessed), features.SpineOptions{
			EntityKey: featuresFlags.entityKey,
			Timestamp: featuresFlags.timestamp,
		}))
	},
}

func init() {
	flags := featuresCmd.PersistentFlags()
	flags.StringVar(&featuresFlags.customerTable, "customer-table", features.DefaultCustomerTable, "Customer table")
	flags.StringVar(&featuresFlags.behaviorTable, "behavior-table", features.DefaultBehaviorTable, "Purchase behavior table")
	flags.StringVar(&featuresFlags.source, "source", "", "Read from this table instead of the previous pipeline stage")
	flags.StringVar(&featuresFlags.materialize, "materialize", "", "Write the result to this table in the feature store")
	flags.BoolVar(&featuresFlags.run, "run", false, "Execute the query and print the rows")
	flags.IntVar(&featuresFlags.maxRows, "max-rows", 20, "Rows printed with --run (0 for all)")
	flags.BoolVar(&featuresFlags.subqToCTE, "subq-to-cte", true, "Print nested stages as common table expressions")
	flags.BoolVar(&featuresFlags.raw, "raw", false, "Print the query on one line")
	flags.StringVar(&featureStoreFlags.database, "fs-database", "", "Feature store database for --materialize")
	flags.StringVar(&featureStoreFlags.schema, "fs-schema", "", "Feature store schema for --materialize")
	flags.StringVar(&featureStoreFlags.warehouse, "fs-warehouse", "", "Feature store warehouse for --materialize")

	featuresSpineCmd.Flags().StringVar(&featuresFlags.entityKey, "entity-key", features.DefaultEntityKey, "Entity key column")
	featuresSpineCmd.Flags().StringVar(&featuresFlags.timestamp, "timestamp", features.DefaultTimestamp, "Timestamp column")

	featuresCmd.AddCommand(featuresLoadCmd, featuresPreProcessCmd, featuresSpineCmd)
	rootCmd.AddCommand(featuresCmd)
}

func loadStage() sq.SelectBuilder {
	return features.LoadCustomerData(featuresFlags.customerTable, featuresFlags.behaviorTable)
}

// sourceStage reads from --source when given, otherwise from the previous
// pipeline stage.
func sourceStage(previous func() sq.SelectBuilder) sq.SelectBuilder {
	if featuresFlags.source != "" {
		return features.Table(featuresFlags.source)
	}
	return previous()
}

func runPipeline(cmd *cobra.Command, stage sq.SelectBuilder) error {
	if featuresFlags.run && featuresFlags.materialize != "" {
		return errors.New(errors.ErrCodeInvalidInput, "Use either --run or --materialize")
	}

	query, err := features.SQL(stage)
	if err != nil {
		return err
	}

	out := newUI(cmd)
	if !featuresFlags.run && featuresFlags.materialize == "" {
		if featuresFlags.raw {
			out.Print(query + "\n")
			return nil
		}
		pretty, err := sqlformat.Format(query, sqlformat.Options{SubqueriesToCTEs: featuresFlags.subqToCTE})
		if err != nil {
			return err
		}
		out.Print(pretty)
		return nil
	}

	session, _, err := connect(cmd, true)
	if err != nil {
		return err
	}
	defer session.Close()

	if featuresFlags.run {
		res, err := session.RunSQL(cmd.Context(), query)
		if err != nil {
			return err
		}
		out.Print(newPrinter(cmd, featuresFlags.maxRows).Result(res))
		return nil
	}

	fs, _, err := openFeatureStore(cmd.Context(), session)
	if err != nil {
		return err
	}
	table, err := fs.Materialize(cmd.Context(), featuresFlags.materialize, query)
	if err != nil {
		return err
	}
	out.Success(fmt.Sprintf("Materialized %s", table))
	out.Print(table + "\n")
	return nil
}
