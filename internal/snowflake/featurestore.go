package snowflake

import (
	"context"
	"fmt"
	"strings"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

// FeatureStore is a schema where feature tables are materialized.
type FeatureStore struct {
	session   *Session
	Database  string
	Schema    string
	Warehouse string
}

// CreateFeatureStore opens the feature store schema, creating it when it
// does not exist yet. The warehouse must already exist.
func (s *Session) CreateFeatureStore(ctx context.Context, database, schema, warehouse string) (*FeatureStore, bool, error) {
	if database == "" || schema == "" || warehouse == "" {
		return nil, false, errors.New(errors.ErrCodeRequiredField, "Feature store needs a database, schema and warehouse")
	}

	ok, err := s.warehouseExists(ctx, warehouse)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, errors.New(errors.ErrCodeProvisioningFailed,
			fmt.Sprintf("Warehouse %s does not exist", warehouse)).
			WithContext("warehouse", warehouse)
	}

	fs := &FeatureStore{session: s, Database: database, Schema: schema, Warehouse: warehouse}

	exists, err := s.schemaExists(ctx, database, schema)
	if err != nil {
		return nil, false, err
	}
	if exists {
		s.logger.WithField("schema", fs.Name()).Debug("feature store already exists")
		return fs, false, nil
	}

	prevDatabase, prevSchema, err := s.location(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := s.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+fs.Name()); err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeProvisioningFailed,
			fmt.Sprintf("Failed to create feature store %s", fs.Name())).
			WithContext("database", database).
			WithContext("schema", schema)
	}
	if err := s.restoreLocation(ctx, prevDatabase, prevSchema); err != nil {
		return nil, true, err
	}

	s.logger.WithField("schema", fs.Name()).Info("feature store created")
	return fs, true, nil
}

// Name returns the qualified schema name.
func (f *FeatureStore) Name() string {
	return Qualify(f.Database, f.Schema)
}

// Materialize replaces table in the feature store with the rows of query.
func (f *FeatureStore) Materialize(ctx context.Context, table, query string) (string, error) {
	query = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if table == "" || query == "" {
		return "", errors.New(errors.ErrCodeRequiredField, "Materialize needs a table name and a query")
	}

	target := Qualify(f.Database, f.Schema, table)
	if err := f.session.Exec(ctx, fmt.Sprintf("CREATE OR REPLACE TABLE %s AS\n%s", target, query)); err != nil {
		return "", err
	}

	f.session.logger.WithField("table", target).Info("feature table materialized")
	return target, nil
}

// Tables lists the tables currently in the feature store.
func (f *FeatureStore) Tables(ctx context.Context) ([]string, error) {
	result, err := f.session.RunSQL(ctx, "SHOW TABLES IN SCHEMA "+f.Name())
	if err != nil {
		return nil, err
	}
	return result.Strings("name"), nil
}

func (s *Session) warehouseExists(ctx context.Context, warehouse string) (bool, error) {
	result, err := s.RunSQL(ctx, "SHOW WAREHOUSES LIKE "+Literal(warehouse))
	if err != nil {
		return false, err
	}
	for _, name := range result.Strings("name") {
		if strings.EqualFold(name, warehouse) {
			return true, nil
		}
	}
	return false, nil
}
