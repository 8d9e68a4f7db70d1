package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jar-ry/Snowflake-Data-Science/internal/common"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

var sqlFlags struct {
	file        string
	maxRows     int
	noBootstrap bool
}

var sqlCmd = &cobra.Command{
	Use:   "sql [statement]",
	Short: "Run SQL and print the results",
	Long: `Run one or more semicolon separated statements on a bootstrapped session
and print every result set. Statements come from the argument, from --file,
or from stdin when --file is "-".`,
	Example: `  sfds sql "SHOW MODELS IN SCHEMA MODEL_1"
  sfds sql -f queries/customers.sql --max-rows 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSQL,
}

func init() {
	sqlCmd.Flags().StringVarP(&sqlFlags.file, "file", "f", "", "Read statements from a file (- for stdin)")
	sqlCmd.Flags().IntVar(&sqlFlags.maxRows, "max-rows", 100, "Rows printed per result (0 for all)")
	sqlCmd.Flags().BoolVar(&sqlFlags.noBootstrap, "no-bootstrap", false, "Skip switching into the configured environment")

	rootCmd.AddCommand(sqlCmd)
}

func runSQL(cmd *cobra.Command, args []string) error {
	script, err := readScript(cmd, args, sqlFlags.file)
	if err != nil {
		return err
	}

	session, _, err := connect(cmd, !sqlFlags.noBootstrap)
	if err != nil {
		return err
	}
	defer session.Close()

	out := newUI(cmd)
	printer := newPrinter(cmd, sqlFlags.maxRows)

	results, err := session.ExecuteScript(cmd.Context(), script)
	for _, res := range results {
		out.VerbosePrintf("%s\n", res.Statement)
		out.Print(printer.Result(res))
	}
	return err
}

// readScript takes SQL from exactly one of the argument and file.
func readScript(cmd *cobra.Command, args []string, file string) (string, error) {
	if len(args) > 0 && file != "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "Pass a statement or --file, not both")
	}

	var script string
	switch {
	case len(args) > 0:
		script = args[0]
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to read stdin")
		}
		script = string(data)
	case file != "":
		cleaned, err := common.CleanPath(file)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid file path").
				WithContext("path", file)
		}
		data, err := os.ReadFile(cleaned) // #nosec G304 - path is validated
		if err != nil {
			if os.IsNotExist(err) {
				return "", errors.Wrap(err, errors.ErrCodeFileNotFound, fmt.Sprintf("File not found: %s", file))
			}
			return "", errors.Wrap(err, errors.ErrCodeFileOperation, fmt.Sprintf("Failed to read %s", file))
		}
		script = string(data)
	default:
		return "", errors.New(errors.ErrCodeRequiredField, "No SQL given").
			WithSuggestions("Pass a statement, or --file path.sql, or --file - to read stdin")
	}

	if strings.TrimSpace(script) == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "SQL is empty")
	}
	return script, nil
}
