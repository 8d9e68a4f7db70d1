package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jar-ry/Snowflake-Data-Science/internal/sqlformat"
)

var formatFlags struct {
	file      string
	subqToCTE bool
}

var formatCmd = &cobra.Command{
	Use:   "format [statement]",
	Short: "Pretty print SQL",
	Long: `Pretty print Snowflake SQL: keywords upper cased, one clause per line and
select lists indented. With --subq-to-cte derived tables are lifted into a
leading WITH clause.`,
	Example: `  sfds format "select a, b from (select * from t) x where a = 1"
  sfds format -f pipeline.sql --subq-to-cte`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFormat,
}

func init() {
	formatCmd.Flags().StringVarP(&formatFlags.file, "file", "f", "", "Read SQL from a file (- for stdin)")
	formatCmd.Flags().BoolVar(&formatFlags.subqToCTE, "subq-to-cte", false, "Rewrite derived tables as common table expressions")

	rootCmd.AddCommand(formatCmd)
}

func runFormat(cmd *cobra.Command, args []string) error {
	script, err := readScript(cmd, args, formatFlags.file)
	if err != nil {
		return err
	}

	pretty, err := sqlformat.Format(script, sqlformat.Options{SubqueriesToCTEs: formatFlags.subqToCTE})
	if err != nil {
		return err
	}
	newUI(cmd).Print(pretty)
	return nil
}
