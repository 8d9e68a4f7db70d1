package snowflake

import (
	"context"
	"fmt"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/versioning"
)

// DatasetRegistry resolves versions of Snowflake DATASET objects in one schema.
type DatasetRegistry struct {
	session  *Session
	Database string
	Schema   string
}

// DatasetRegistry returns a registry over the session's current database
// and schema.
func (s *Session) DatasetRegistry(ctx context.Context) (*DatasetRegistry, error) {
	database, schema, err := s.location(ctx)
	if err != nil {
		return nil, err
	}
	if database == "" || schema == "" {
		return nil, errors.New(errors.ErrCodeConfigMissing, "No current database or schema").
			WithSuggestions("Run with a bootstrapped session or pass --database and --schema")
	}
	return s.OpenDatasetRegistry(database, schema), nil
}

// OpenDatasetRegistry returns a registry over database.schema.
func (s *Session) OpenDatasetRegistry(database, schema string) *DatasetRegistry {
	return &DatasetRegistry{session: s, Database: database, Schema: schema}
}

// ListEntities returns the dataset names in the schema.
func (r *DatasetRegistry) ListEntities(ctx context.Context) ([]string, error) {
	result, err := r.session.RunSQL(ctx, "SHOW DATASETS IN SCHEMA "+Qualify(r.Database, r.Schema))
	if err != nil {
		if isNotExist(err) {
			return nil, notFound(err, Qualify(r.Database, r.Schema))
		}
		return nil, err
	}
	return result.Strings("name"), nil
}

// LookupVersions returns the version names of one dataset.
func (r *DatasetRegistry) LookupVersions(ctx context.Context, name string) ([]string, error) {
	full := Qualify(r.Database, r.Schema, versioning.EntityName(name))
	result, err := r.session.RunSQL(ctx, "SHOW VERSIONS IN DATASET "+full)
	if err != nil {
		if isNotExist(err) {
			return nil, notFound(err, full)
		}
		return nil, err
	}
	return result.Strings("name"), nil
}

// NextVersion returns the tag for the next version of dataset. It reads the
// dataset's versions directly, so a missing dataset costs one round trip.
func (r *DatasetRegistry) NextVersion(ctx context.Context, dataset string) (versioning.Tag, error) {
	versions, err := r.LookupVersions(ctx, dataset)
	if errors.Is(err, versioning.ErrEntityNotFound) {
		return versioning.FirstTag, nil
	}
	if err != nil {
		return versioning.Tag{}, errors.Wrap(err, errors.ErrCodeRegistryLookup,
			fmt.Sprintf("Dataset lookup failed for %s", dataset)).
			WithContext("entity", dataset)
	}

	tag, err := versioning.NextAfter(versions)
	if err != nil {
		return versioning.Tag{}, errors.Wrap(err, errors.ErrCodeMalformedVersionTag,
			fmt.Sprintf("Cannot allocate a version for %s", dataset)).
			WithContext("entity", dataset)
	}
	return tag, nil
}

// LatestVersion returns the highest existing tag of dataset.
func (r *DatasetRegistry) LatestVersion(ctx context.Context, dataset string) (versioning.Tag, error) {
	return versioning.NewAllocator(r).Latest(ctx, dataset)
}
