package snowflake

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/snowflakedb/gosnowflake"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/models"
)

// MinFeatureStoreVersion is the oldest server release with feature store
// support.
const MinFeatureStoreVersion = "8.0.0"

var warehouseSizes = []string{
	"XSMALL", "SMALL", "MEDIUM", "LARGE", "XLARGE",
	"XXLARGE", "XXXLARGE", "X4LARGE", "X5LARGE", "X6LARGE",
}

// SessionInfo describes the context a session ended up in after Bootstrap.
type SessionInfo struct {
	User          string
	Role          string
	Database      string
	Schema        string
	Warehouse     string
	WarehouseSize string
	ServerVersion string
	DriverVersion string
	QueryTag      string

	// FeatureStoreSupported is false when the server predates
	// MinFeatureStoreVersion or reports a version that cannot be parsed.
	FeatureStoreSupported bool
}

// Bootstrap switches the session into env: database, schema, role and
// warehouse, resizes the warehouse and tags every later query. Any failing
// statement aborts the bootstrap and its error is returned as is.
func (s *Session) Bootstrap(ctx context.Context, env models.Environment) (*SessionInfo, error) {
	if env.Schema == "" {
		return nil, errors.ValidationError("schema", env.Schema, "schema is required")
	}
	size := strings.ToUpper(env.WarehouseSize)
	if size == "" {
		size = "MEDIUM"
	}
	if !validWarehouseSize(size) {
		return nil, errors.ValidationError("warehouse_size", env.WarehouseSize,
			fmt.Sprintf("must be one of %s", strings.Join(warehouseSizes, ", ")))
	}

	database := env.DatabaseName()
	warehouse := env.WarehouseName()

	probe, err := s.RunSQL(ctx, "SELECT CURRENT_USER(), CURRENT_VERSION()")
	if err != nil {
		return nil, err
	}
	if probe.Len() == 0 || len(probe.Columns) < 2 {
		return nil, errors.New(errors.ErrCodeResultParsing, "Session probe returned no rows")
	}

	info := &SessionInfo{
		User:          probe.String(0, probe.Columns[0]),
		ServerVersion: probe.String(0, probe.Columns[1]),
		DriverVersion: gosnowflake.SnowflakeGoDriverVersion,
		WarehouseSize: size,
	}

	tag := "sfds-" + uuid.NewString()
	statements := []string{
		"USE DATABASE " + Ident(database),
		"USE SCHEMA " + Ident(env.Schema),
	}
	if env.Role != "" {
		statements = append(statements, "USE ROLE "+Ident(env.Role))
	}
	statements = append(statements,
		"USE WAREHOUSE "+Ident(warehouse),
		fmt.Sprintf("ALTER WAREHOUSE %s SET WAREHOUSE_SIZE = %s", Ident(warehouse), size),
		"ALTER SESSION SET QUERY_TAG = "+Literal(tag),
	)

	for _, stmt := range statements {
		if err := s.Exec(ctx, stmt); err != nil {
			return nil, err
		}
	}
	s.tag = tag
	info.QueryTag = tag

	current, err := s.RunSQL(ctx, "SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_SCHEMA(), CURRENT_WAREHOUSE()")
	if err != nil {
		return nil, err
	}
	if current.Len() > 0 && len(current.Columns) >= 4 {
		info.Role = current.String(0, current.Columns[0])
		info.Database = current.String(0, current.Columns[1])
		info.Schema = current.String(0, current.Columns[2])
		info.Warehouse = current.String(0, current.Columns[3])
	}

	info.FeatureStoreSupported = supportsFeatureStore(info.ServerVersion)
	if !info.FeatureStoreSupported {
		s.logger.WithField("server_version", info.ServerVersion).
			Warn("server version does not support the feature store")
	}

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"role":      info.Role,
		"database":  info.Database,
		"schema":    info.Schema,
		"warehouse": info.Warehouse,
	}).Info("session bootstrapped")

	return info, nil
}

// WarehouseSizes lists the accepted warehouse sizes, smallest first.
func WarehouseSizes() []string {
	return append([]string(nil), warehouseSizes...)
}

func validWarehouseSize(size string) bool {
	for _, s := range warehouseSizes {
		if s == size {
			return true
		}
	}
	return false
}

func supportsFeatureStore(version string) bool {
	v, err := semver.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return false
	}
	return !v.LessThan(semver.MustParse(MinFeatureStoreVersion))
}
