package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jar-ry/Snowflake-Data-Science/internal/config"
	"github.com/jar-ry/Snowflake-Data-Science/internal/observability"
	"github.com/jar-ry/Snowflake-Data-Science/internal/snowflake"
	"github.com/jar-ry/Snowflake-Data-Science/internal/testutil"
	"github.com/jar-ry/Snowflake-Data-Science/internal/ui"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/models"
)

const (
	testDatabase  = "TPCXAI_SF0001_QUICKSTART_INC"
	testWarehouse = "TPCXAI_SF0001_QUICKSTART_WH"
)

// executeCommand runs the root command with fresh flags and an empty config
// directory, returning everything written to stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	testutil.ConfigDir(t, config.EnvConfigDir)
	resetFlags(rootCmd)

	b := bytes.NewBufferString("")
	rootCmd.SetOut(b)
	rootCmd.SetErr(b)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return b.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// stubSession makes every command run against a sqlmock connection.
func stubSession(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	db, mock := testutil.NewMockDB(t)
	prev := sessionFactory
	sessionFactory = func(ctx context.Context) (*snowflake.Session, error) {
		return snowflake.NewSession(db, snowflake.Options{Logger: testutil.DiscardLogger()}), nil
	}
	t.Cleanup(func() { sessionFactory = prev })
	return mock
}

var (
	q  = testutil.Q
	ok = testutil.OK
)

func expectBootstrap(mock sqlmock.Sqlmock) {
	testutil.ExpectBootstrap(mock, testutil.QuickstartBootstrap())
}

func TestRootCommand(t *testing.T) {
	output, err := executeCommand(t)
	assert.NoError(t, err)

	assert.Contains(t, output, "sfds")
	assert.Contains(t, output, "Snowflake sessions")
}

func TestRootCommandHelp(t *testing.T) {
	output, err := executeCommand(t, "--help")
	assert.NoError(t, err)

	assert.Contains(t, output, "Available Commands:")
	for _, name := range []string{"connect", "sql", "format", "registry", "dataset", "feature-store", "features", "init", "version"} {
		assert.Contains(t, output, name)
	}
}

func TestInvalidCommand(t *testing.T) {
	_, err := executeCommand(t, "invalid-command")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestVersionCommand(t *testing.T) {
	output, err := executeCommand(t, "version")
	require.NoError(t, err)

	assert.Contains(t, output, "sfds version dev")
	assert.Contains(t, output, "Snowflake driver: ")
}

func TestFormatCommand(t *testing.T) {
	t.Run("argument", func(t *testing.T) {
		output, err := executeCommand(t, "format", "select a from (select a from t)", "--subq-to-cte")
		require.NoError(t, err)
		assert.Equal(t, "WITH _q_0 AS (\n  SELECT\n    a\n  FROM t\n)\nSELECT\n  a\nFROM _q_0\n", output)
	})

	t.Run("file", func(t *testing.T) {
		path := testutil.WriteFile(t, t.TempDir(), "q.sql", "select 1; select 2;")

		output, err := executeCommand(t, "format", "-f", path)
		require.NoError(t, err)
		assert.Equal(t, "SELECT\n  1;\n\nSELECT\n  2;\n", output)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := executeCommand(t, "format", "select (a from t")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeSQLSyntax, errors.GetErrorCode(err))
	})

	t.Run("no input", func(t *testing.T) {
		_, err := executeCommand(t, "format")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeRequiredField, errors.GetErrorCode(err))
	})

	t.Run("argument and file", func(t *testing.T) {
		_, err := executeCommand(t, "format", "select 1", "-f", "x.sql")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetErrorCode(err))
	})
}

func TestConnectCommand(t *testing.T) {
	mock := stubSession(t)
	expectBootstrap(mock)
	mock.ExpectClose()

	output, err := executeCommand(t, "connect", "--schema", "DATA", "-q", "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, output, "ALICE")
	assert.Contains(t, output, testDatabase)
	assert.Contains(t, output, "sfds-")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectCommandRequiresSchema(t *testing.T) {
	mock := stubSession(t)
	mock.ExpectClose()

	_, err := executeCommand(t, "connect", "-q", "--log-level", "error")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.GetErrorCode(err))
}

func TestSQLCommand(t *testing.T) {
	mock := stubSession(t)
	expectBootstrap(mock)
	mock.ExpectQuery(q("SELECT COUNT(*) AS N FROM CUSTOMER")).
		WillReturnRows(sqlmock.NewRows([]string{"N"}).AddRow(int64(42)))
	mock.ExpectQuery(q("USE SCHEMA DATA")).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("Statement executed successfully."))
	mock.ExpectClose()

	output, err := executeCommand(t, "sql", "SELECT COUNT(*) AS N FROM CUSTOMER; USE SCHEMA DATA",
		"--schema", "DATA", "-q", "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, output, "42")
	assert.Contains(t, output, "1 row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryCommands(t *testing.T) {
	showModels := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"name", "versions"}).
			AddRow("CHURN", `["V_1","V_9","V_10"]`).
			AddRow("FRAUD", `[]`)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"next version", []string{"registry", "next-version", "CHURN"}, "V_11\n"},
		{"latest version", []string{"registry", "latest-version", "CHURN"}, "V_10\n"},
		{"new model", []string{"registry", "next-version", "UPSELL"}, "V_1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := stubSession(t)
			expectBootstrap(mock)
			mock.ExpectQuery(q("SHOW MODELS IN SCHEMA " + testDatabase + ".MODEL_1")).WillReturnRows(showModels())
			mock.ExpectClose()

			args := append(tt.args, "--schema", "DATA", "-q", "--log-level", "error")
			output, err := executeCommand(t, args...)
			require.NoError(t, err)

			assert.Equal(t, tt.want, output)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("list", func(t *testing.T) {
		mock := stubSession(t)
		expectBootstrap(mock)
		mock.ExpectQuery(q("SHOW MODELS IN SCHEMA ML_DB.MODELS")).WillReturnRows(showModels())
		mock.ExpectClose()

		output, err := executeCommand(t, "registry", "list", "--registry-database", "ML_DB", "--registry-schema", "MODELS",
			"--schema", "DATA", "-q", "--log-level", "error")
		require.NoError(t, err)

		assert.Contains(t, output, "CHURN")
		assert.Contains(t, output, "V_10")
		assert.Contains(t, output, "2 rows")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegistryCreateCommand(t *testing.T) {
	mock := stubSession(t)
	expectBootstrap(mock)
	mock.ExpectQuery(q("SELECT CURRENT_DATABASE(), CURRENT_SCHEMA()")).
		WillReturnRows(sqlmock.NewRows([]string{"D", "S"}).AddRow(testDatabase, "DATA"))
	mock.ExpectExec(q("CREATE SCHEMA " + testDatabase + ".MODEL_1")).WillReturnResult(ok())
	mock.ExpectExec(q("USE SCHEMA " + testDatabase + ".DATA")).WillReturnResult(ok())
	mock.ExpectClose()

	output, err := executeCommand(t, "registry", "create", "--schema", "DATA", "-q", "--log-level", "error")
	require.NoError(t, err)

	assert.Equal(t, testDatabase+".MODEL_1\n", output)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryLocationFallsBackToSessionDatabase(t *testing.T) {
	prevSettings, prevLogger := settings, observability.GetDefaultLogger()
	t.Cleanup(func() {
		settings = prevSettings
		registryFlags.database = ""
		observability.SetDefaultLogger(prevLogger)
	})
	defaults := models.DefaultSettings()
	settings = &defaults
	registryFlags.database, registryFlags.schema = "", ""

	var buf bytes.Buffer
	observability.SetDefaultLogger(observability.NewLogger(observability.LoggerConfig{
		Level:  observability.DebugLevel,
		Output: &buf,
	}))

	info := &snowflake.SessionInfo{Database: testDatabase}
	database, schema := registryLocation(info)
	assert.Equal(t, testDatabase, database)
	assert.Equal(t, "MODEL_1", schema)
	assert.Contains(t, buf.String(), "using current database "+testDatabase)

	buf.Reset()
	registryFlags.database = "ML_DB"
	database, _ = registryLocation(info)
	assert.Equal(t, "ML_DB", database)
	assert.Empty(t, buf.String())
}

func TestDatasetNextVersionCommand(t *testing.T) {
	mock := stubSession(t)
	expectBootstrap(mock)
	mock.ExpectQuery(q("SELECT CURRENT_DATABASE(), CURRENT_SCHEMA()")).
		WillReturnRows(sqlmock.NewRows([]string{"D", "S"}).AddRow(testDatabase, "DATA"))
	mock.ExpectQuery(q("SHOW VERSIONS IN DATASET " + testDatabase + ".DATA.CUSTOMER_FEATURES")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("V_1").AddRow("V_2"))
	mock.ExpectClose()

	output, err := executeCommand(t, "dataset", "next-version", "CUSTOMER_FEATURES",
		"--schema", "DATA", "-q", "--log-level", "error")
	require.NoError(t, err)

	assert.Equal(t, "V_3\n", output)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeatureStoreCreateRequiresSchema(t *testing.T) {
	stubSession(t)

	_, err := executeCommand(t, "feature-store", "create", "--schema", "DATA", "-q")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))
}

func TestFeaturesCommands(t *testing.T) {
	t.Run("spine sql", func(t *testing.T) {
		output, err := executeCommand(t, "features", "spine", "--raw", "--entity-key", "customerId")
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(output, "SELECT CUSTOMER_ID, MAX(LATEST_ORDER_DATE) AS ASOF_DATE, 'values1' AS COL_1 FROM (SELECT "))
		assert.True(t, strings.HasSuffix(output, ") AS feature_df GROUP BY CUSTOMER_ID\n"))
		assert.Contains(t, output, "LEFT JOIN PURCHASE_BEHAVIOR AS b")
	})

	t.Run("preprocess from source", func(t *testing.T) {
		output, err := executeCommand(t, "features", "preprocess", "--raw", "--source", "CUSTOMER_DATA")
		require.NoError(t, err)

		assert.True(t, strings.HasSuffix(output, "FROM (SELECT * FROM CUSTOMER_DATA) AS raw_data\n"))
	})

	t.Run("pretty by default", func(t *testing.T) {
		output, err := executeCommand(t, "features", "load", "--customer-table", "RAW.CUSTOMERS")
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(output, "SELECT\n  c.CUSTOMER_ID,\n"))
		assert.Contains(t, output, "\nFROM RAW.CUSTOMERS AS c\nLEFT JOIN PURCHASE_BEHAVIOR AS b ON c.CUSTOMER_ID = b.CUSTOMER_ID\n")
	})

	t.Run("run and materialize conflict", func(t *testing.T) {
		_, err := executeCommand(t, "features", "load", "--run", "--materialize", "T")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetErrorCode(err))
	})

	t.Run("materialize", func(t *testing.T) {
		mock := stubSession(t)
		expectBootstrap(mock)
		mock.ExpectQuery(q("SHOW WAREHOUSES LIKE '" + testWarehouse + "'")).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow(testWarehouse))
		mock.ExpectQuery(q("SHOW SCHEMAS LIKE 'FEATURE_STORE' IN DATABASE " + testDatabase)).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("FEATURE_STORE"))
		mock.ExpectExec(q("CREATE OR REPLACE TABLE " + testDatabase + ".FEATURE_STORE.CUSTOMER_SPINE AS\nSELECT O_CUSTOMER_SK")).
			WillReturnResult(ok())
		mock.ExpectClose()

		output, err := executeCommand(t, "features", "spine", "--materialize", "CUSTOMER_SPINE",
			"--fs-schema", "FEATURE_STORE", "--schema", "DATA", "-q", "--log-level", "error")
		require.NoError(t, err)

		assert.Equal(t, testDatabase+".FEATURE_STORE.CUSTOMER_SPINE\n", output)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

type interruptAsker struct{}

func (interruptAsker) Ask([]*survey.Question, interface{}, ...survey.AskOpt) error {
	return terminal.InterruptErr
}

func (interruptAsker) AskOne(survey.Prompt, interface{}, ...survey.AskOpt) error {
	return terminal.InterruptErr
}

func TestInitCommandCancelled(t *testing.T) {
	prevWizard := newWizard
	newWizard = func() *ui.ConfigWizard { return ui.NewConfigWizardWithAsker(interruptAsker{}) }
	t.Cleanup(func() { newWizard = prevWizard })

	prevOut := ui.SetOutput(io.Discard)
	t.Cleanup(func() { ui.SetOutput(prevOut) })

	connPath := filepath.Join(t.TempDir(), "connection.json")
	_, err := executeCommand(t, "init", "--force", "--connection", connPath)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUserInput, errors.GetErrorCode(err))

	_, statErr := os.Stat(connPath)
	assert.True(t, os.IsNotExist(statErr))
	assert.False(t, config.SettingsExist())
}
