package snowflake

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/versioning"
)

// ModelRegistry is a schema holding Snowflake MODEL objects.
type ModelRegistry struct {
	session  *Session
	Database string
	Schema   string
}

// CreateModelRegistry creates the registry schema, or opens it when creation
// fails because it is already there. CREATE SCHEMA moves the session into
// the new schema, so the previous database and schema are restored after a
// successful creation.
func (s *Session) CreateModelRegistry(ctx context.Context, database, schema string) (*ModelRegistry, bool, error) {
	if database == "" {
		current, err := s.CurrentDatabase(ctx)
		if err != nil {
			return nil, false, err
		}
		database = current
	}

	prevDatabase, prevSchema, err := s.location(ctx)
	if err != nil {
		return nil, false, err
	}

	reg := &ModelRegistry{session: s, Database: database, Schema: schema}

	createErr := s.Exec(ctx, "CREATE SCHEMA "+Qualify(database, schema))
	if createErr != nil {
		exists := isAlreadyExists(createErr)
		if !exists {
			var err error
			if exists, err = s.schemaExists(ctx, database, schema); err != nil {
				return nil, false, err
			}
		}
		if !exists {
			return nil, false, errors.Wrap(createErr, errors.ErrCodeProvisioningFailed,
				fmt.Sprintf("Failed to create model registry %s.%s", database, schema)).
				WithContext("database", database).
				WithContext("schema", schema)
		}
		s.logger.WithField("schema", Qualify(database, schema)).Info("model registry already exists")
		return reg, false, nil
	}

	if err := s.restoreLocation(ctx, prevDatabase, prevSchema); err != nil {
		return nil, true, err
	}

	s.logger.WithField("schema", Qualify(database, schema)).Info("model registry created")
	return reg, true, nil
}

// OpenModelRegistry returns a registry over an existing schema without
// touching the server.
func (s *Session) OpenModelRegistry(database, schema string) *ModelRegistry {
	return &ModelRegistry{session: s, Database: database, Schema: schema}
}

// Name returns the qualified schema name.
func (r *ModelRegistry) Name() string {
	return Qualify(r.Database, r.Schema)
}

// Snapshot lists every model with its versions in one SHOW MODELS call.
func (r *ModelRegistry) Snapshot(ctx context.Context) (*versioning.Catalog, error) {
	result, err := r.session.RunSQL(ctx, "SHOW MODELS IN SCHEMA "+r.Name())
	if err != nil {
		if isNotExist(err) {
			return nil, notFound(err, r.Name())
		}
		return nil, err
	}

	catalog := versioning.NewCatalog()
	for i := range result.Rows {
		name := result.String(i, "name")
		versions, err := parseVersionList(result.String(i, "versions"))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeResultParsing, "Failed to parse model versions").
				WithContext("model", name)
		}
		catalog.Add(name, versions...)
	}
	return catalog, nil
}

// ListEntities returns the model names in the registry.
func (r *ModelRegistry) ListEntities(ctx context.Context) ([]string, error) {
	catalog, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.ListEntities(ctx)
}

// LookupVersions returns the version names of one model.
func (r *ModelRegistry) LookupVersions(ctx context.Context, name string) ([]string, error) {
	stmt := fmt.Sprintf("SHOW MODELS LIKE %s IN SCHEMA %s", Literal(name), r.Name())
	result, err := r.session.RunSQL(ctx, stmt)
	if err != nil {
		if isNotExist(err) {
			return nil, notFound(err, name)
		}
		return nil, err
	}

	for i := range result.Rows {
		if result.String(i, "name") != name {
			continue
		}
		return parseVersionList(result.String(i, "versions"))
	}
	return nil, notFound(nil, name)
}

// NextVersion returns the tag for the next version of model.
func (r *ModelRegistry) NextVersion(ctx context.Context, model string) (versioning.Tag, error) {
	catalog, err := r.snapshotOrEmpty(ctx)
	if err != nil {
		return versioning.Tag{}, err
	}
	return versioning.NewAllocator(catalog).Next(ctx, model)
}

// LatestVersion returns the highest existing tag of model.
func (r *ModelRegistry) LatestVersion(ctx context.Context, model string) (versioning.Tag, error) {
	catalog, err := r.snapshotOrEmpty(ctx)
	if err != nil {
		return versioning.Tag{}, err
	}
	return versioning.NewAllocator(catalog).Latest(ctx, model)
}

func (r *ModelRegistry) snapshotOrEmpty(ctx context.Context) (*versioning.Catalog, error) {
	catalog, err := r.Snapshot(ctx)
	if errors.Is(err, versioning.ErrEntityNotFound) {
		return versioning.NewCatalog(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRegistryLookup, "Model registry lookup failed").
			WithContext("registry", r.Name())
	}
	return catalog, nil
}

// parseVersionList reads the JSON array held in the versions column of
// SHOW MODELS.
func parseVersionList(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("versions column is not valid JSON: %q", raw)
	}

	parsed := gjson.Parse(raw)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("versions column is not a JSON array: %q", raw)
	}

	var versions []string
	for _, v := range parsed.Array() {
		versions = append(versions, v.String())
	}
	return versions, nil
}

func (s *Session) location(ctx context.Context) (string, string, error) {
	result, err := s.RunSQL(ctx, "SELECT CURRENT_DATABASE(), CURRENT_SCHEMA()")
	if err != nil {
		return "", "", err
	}
	if result.Len() == 0 || len(result.Columns) < 2 {
		return "", "", nil
	}
	return result.String(0, result.Columns[0]), result.String(0, result.Columns[1]), nil
}

func (s *Session) restoreLocation(ctx context.Context, database, schema string) error {
	if database == "" || schema == "" {
		return nil
	}
	return s.Exec(ctx, "USE SCHEMA "+Qualify(database, schema))
}

func (s *Session) schemaExists(ctx context.Context, database, schema string) (bool, error) {
	stmt := fmt.Sprintf("SHOW SCHEMAS LIKE %s IN DATABASE %s", Literal(schema), Ident(database))
	result, err := s.RunSQL(ctx, stmt)
	if err != nil {
		return false, err
	}
	for _, name := range result.Strings("name") {
		if strings.EqualFold(name, schema) {
			return true, nil
		}
	}
	return false, nil
}
