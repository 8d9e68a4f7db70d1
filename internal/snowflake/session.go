package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/snowflakedb/gosnowflake"

	"github.com/jar-ry/Snowflake-Data-Science/internal/observability"
	"github.com/jar-ry/Snowflake-Data-Science/internal/sqlformat"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/models"
)

// Session runs statements against one Snowflake connection. USE and ALTER
// SESSION statements are connection state, so the pool is capped at a single
// connection that is never recycled.
type Session struct {
	db      *sql.DB
	logger  *observability.Logger
	timeout time.Duration
	tag     string
}

// Options tunes a Session.
type Options struct {
	Logger  *observability.Logger
	Timeout time.Duration // per statement; zero means 5 minutes
}

// Open connects to Snowflake with the given credentials and verifies the
// connection with a ping.
func Open(ctx context.Context, conn *models.Connection, opts Options) (*Session, error) {
	dsn, err := DSN(conn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, errors.ConnectionError("Failed to open Snowflake connection", err).
			WithContext("account", conn.Account)
	}

	s := NewSession(db, opts)

	pingCtx, cancel := s.statementContext(ctx)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()

		lower := strings.ToLower(err.Error())
		if strings.Contains(lower, "incorrect username or password") || strings.Contains(lower, "authentication") {
			return nil, errors.Wrap(err, errors.ErrCodeAuthenticationFailed, "Authentication failed").
				WithContext("user", conn.User).
				WithSuggestions(
					"Verify the user and password in connection.json",
					"Check whether the user is locked or requires MFA",
				)
		}

		return nil, errors.ConnectionError("Failed to connect to Snowflake", err).
			WithContext("account", conn.Account)
	}

	s.logger.WithFields(map[string]interface{}{
		"account": conn.Account,
		"user":    conn.User,
	}).Debug("connected to Snowflake")

	return s, nil
}

// NewSession wraps an already opened database handle.
func NewSession(db *sql.DB, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = observability.GetDefaultLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &Session{
		db:      db,
		logger:  opts.Logger,
		timeout: opts.Timeout,
	}
}

// Close releases the connection.
func (s *Session) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// QueryTag returns the tag set by Bootstrap, if any.
func (s *Session) QueryTag() string {
	return s.tag
}

// Result is the collected output of one statement.
type Result struct {
	Statement string
	Columns   []string
	Rows      [][]interface{}
}

// Len returns the number of rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// ColumnIndex finds a column case-insensitively, returning -1 when absent.
func (r *Result) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// Value returns the value of column in row i.
func (r *Result) Value(i int, column string) (interface{}, bool) {
	idx := r.ColumnIndex(column)
	if idx < 0 || i < 0 || i >= len(r.Rows) {
		return nil, false
	}
	return r.Rows[i][idx], true
}

// String returns the value of column in row i rendered as text.
func (r *Result) String(i int, column string) string {
	v, ok := r.Value(i, column)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Strings returns column rendered as text for every row.
func (r *Result) Strings(column string) []string {
	out := make([]string, 0, len(r.Rows))
	for i := range r.Rows {
		out = append(out, r.String(i, column))
	}
	return out
}

// RunSQL executes a statement and collects every row it returns.
func (s *Session) RunSQL(ctx context.Context, statement string) (*Result, error) {
	ctx, cancel := s.statementContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, classify(errors.SQLError("Failed to execute statement", statement, err), err)
	}
	defer rows.Close()

	result, err := collect(statement, rows)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeResultParsing, "Failed to read result set").
			WithContext("query", statement)
	}

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"statement": statement,
		"rows":      result.Len(),
		"duration":  time.Since(start).String(),
	}).Debug("statement executed")

	return result, nil
}

// Exec runs a statement whose result set is not needed.
func (s *Session) Exec(ctx context.Context, statement string) error {
	ctx, cancel := s.statementContext(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, statement); err != nil {
		return classify(errors.SQLError("Failed to execute statement", statement, err), err)
	}

	s.logger.WithContext(ctx).WithField("statement", statement).Debug("statement executed")
	return nil
}

// ExecuteScript runs each statement of script in order, stopping at the
// first failure.
func (s *Session) ExecuteScript(ctx context.Context, script string) ([]*Result, error) {
	statements, err := sqlformat.Split(script)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(statements))
	for i, stmt := range statements {
		result, err := s.RunSQL(ctx, stmt)
		if err != nil {
			var appErr *errors.AppError
			if errors.As(err, &appErr) {
				appErr.WithContext("statement_index", i+1).
					WithContext("total_statements", len(statements))
			}
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// CurrentUser returns CURRENT_USER() for the session.
func (s *Session) CurrentUser(ctx context.Context) (string, error) {
	return s.scalar(ctx, "SELECT CURRENT_USER()")
}

// ServerVersion returns CURRENT_VERSION() for the session.
func (s *Session) ServerVersion(ctx context.Context) (string, error) {
	return s.scalar(ctx, "SELECT CURRENT_VERSION()")
}

// CurrentDatabase returns CURRENT_DATABASE() for the session.
func (s *Session) CurrentDatabase(ctx context.Context) (string, error) {
	return s.scalar(ctx, "SELECT CURRENT_DATABASE()")
}

// CurrentSchema returns CURRENT_SCHEMA() for the session.
func (s *Session) CurrentSchema(ctx context.Context) (string, error) {
	return s.scalar(ctx, "SELECT CURRENT_SCHEMA()")
}

// CurrentRole returns CURRENT_ROLE() for the session.
func (s *Session) CurrentRole(ctx context.Context) (string, error) {
	return s.scalar(ctx, "SELECT CURRENT_ROLE()")
}

// CurrentWarehouse returns CURRENT_WAREHOUSE() for the session.
func (s *Session) CurrentWarehouse(ctx context.Context) (string, error) {
	return s.scalar(ctx, "SELECT CURRENT_WAREHOUSE()")
}

func (s *Session) scalar(ctx context.Context, query string) (string, error) {
	result, err := s.RunSQL(ctx, query)
	if err != nil {
		return "", err
	}
	if result.Len() == 0 || len(result.Columns) == 0 {
		return "", errors.New(errors.ErrCodeResultParsing, "Query returned no rows").
			WithContext("query", query)
	}
	return result.String(0, result.Columns[0]), nil
}

func (s *Session) statementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.tag != "" && observability.SessionID(ctx) == "" {
		ctx = observability.ContextWithSessionID(ctx, s.tag)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func collect(statement string, rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Result{Statement: statement, Columns: cols}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		valuePtrs := make([]interface{}, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}

	return result, rows.Err()
}
