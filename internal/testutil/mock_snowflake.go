package testutil

import (
	"database/sql"
	"database/sql/driver"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jar-ry/Snowflake-Data-Science/internal/observability"
)

// NewMockDB opens a sqlmock connection that is closed when the test ends.
func NewMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open sqlmock connection: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// DiscardLogger returns a logger that writes nowhere.
func DiscardLogger() *observability.Logger {
	return observability.NewLogger(observability.LoggerConfig{Output: io.Discard})
}

// Q quotes a statement for sqlmock's regexp matcher.
func Q(sql string) string {
	return regexp.QuoteMeta(sql)
}

// OK is the result of a statement that affects no rows.
func OK() driver.Result {
	return sqlmock.NewResult(0, 0)
}

// Bootstrap describes the session a mocked bootstrap should report.
type Bootstrap struct {
	User          string
	ServerVersion string
	Database      string
	Schema        string
	Role          string
	Warehouse     string
	WarehouseSize string
}

// QuickstartBootstrap matches the default SF0001 quickstart environment
// with schema DATA.
func QuickstartBootstrap() Bootstrap {
	return Bootstrap{
		User:          "ALICE",
		ServerVersion: "8.40.1",
		Database:      "TPCXAI_SF0001_QUICKSTART_INC",
		Schema:        "DATA",
		Role:          "FS_QS_ROLE",
		Warehouse:     "TPCXAI_SF0001_QUICKSTART_WH",
		WarehouseSize: "MEDIUM",
	}
}

// ExpectBootstrap queues the statements a session bootstrap issues, in order.
// An empty Role skips USE ROLE.
func ExpectBootstrap(mock sqlmock.Sqlmock, b Bootstrap) {
	mock.ExpectQuery(Q("SELECT CURRENT_USER(), CURRENT_VERSION()")).
		WillReturnRows(sqlmock.NewRows([]string{"CURRENT_USER()", "CURRENT_VERSION()"}).
			AddRow(b.User, b.ServerVersion))

	mock.ExpectExec(Q("USE DATABASE " + b.Database)).WillReturnResult(OK())
	mock.ExpectExec(Q("USE SCHEMA " + b.Schema)).WillReturnResult(OK())
	if b.Role != "" {
		mock.ExpectExec(Q("USE ROLE " + b.Role)).WillReturnResult(OK())
	}
	mock.ExpectExec(Q("USE WAREHOUSE " + b.Warehouse)).WillReturnResult(OK())
	mock.ExpectExec(Q("ALTER WAREHOUSE " + b.Warehouse + " SET WAREHOUSE_SIZE = " + strings.ToUpper(b.WarehouseSize))).
		WillReturnResult(OK())
	mock.ExpectExec(`ALTER SESSION SET QUERY_TAG = 'sfds-[0-9a-f-]{36}'`).WillReturnResult(OK())

	mock.ExpectQuery(Q("SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_SCHEMA(), CURRENT_WAREHOUSE()")).
		WillReturnRows(sqlmock.NewRows([]string{"R", "D", "S", "W"}).
			AddRow(b.Role, b.Database, b.Schema, b.Warehouse))
}
