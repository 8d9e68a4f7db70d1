package versioning

import (
	"context"
	"fmt"
	"strings"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

// Registry is the catalog that owns entities and their version tags.
type Registry interface {
	// ListEntities returns the names of every entity the registry knows about.
	ListEntities(ctx context.Context) ([]string, error)

	// LookupVersions returns the version tags of one entity, or an error
	// matching ErrEntityNotFound when the entity does not exist.
	LookupVersions(ctx context.Context, name string) ([]string, error)
}

// Allocator computes version tags against a Registry.
type Allocator struct {
	registry Registry
}

// NewAllocator creates an allocator backed by registry.
func NewAllocator(registry Registry) *Allocator {
	return &Allocator{registry: registry}
}

// Next returns the tag to assign to the next version of target.
func (a *Allocator) Next(ctx context.Context, target string) (Tag, error) {
	latest, ok, err := a.resolve(ctx, target)
	if err != nil {
		return Tag{}, err
	}
	if !ok {
		return FirstTag, nil
	}
	return latest.Next(), nil
}

// Latest returns the highest existing tag of target, or FirstTag when the
// target has no versions.
func (a *Allocator) Latest(ctx context.Context, target string) (Tag, error) {
	latest, ok, err := a.resolve(ctx, target)
	if err != nil {
		return Tag{}, err
	}
	if !ok {
		return FirstTag, nil
	}
	return latest, nil
}

// resolve reports the current maximum tag of target. ok is false when the
// registry is empty, the target is unknown, or it owns no versions.
func (a *Allocator) resolve(ctx context.Context, target string) (Tag, bool, error) {
	name := EntityName(target)

	entities, err := a.registry.ListEntities(ctx)
	if errors.Is(err, ErrEntityNotFound) {
		return Tag{}, false, nil
	}
	if err != nil {
		return Tag{}, false, lookupError(err, name)
	}
	if !contains(entities, name) {
		return Tag{}, false, nil
	}

	versions, err := a.registry.LookupVersions(ctx, name)
	if errors.Is(err, ErrEntityNotFound) {
		return Tag{}, false, nil
	}
	if err != nil {
		return Tag{}, false, lookupError(err, name)
	}

	latest, ok, err := Max(versions)
	if err != nil {
		return Tag{}, false, errors.Wrap(err, errors.ErrCodeMalformedVersionTag,
			fmt.Sprintf("Cannot allocate a version for %s", name)).
			WithContext("entity", name)
	}
	return latest, ok, nil
}

// EntityName strips any database/schema qualification from a dotted name.
func EntityName(target string) string {
	if i := strings.LastIndex(target, "."); i >= 0 {
		return target[i+1:]
	}
	return target
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func lookupError(err error, name string) error {
	return errors.Wrap(err, errors.ErrCodeRegistryLookup, fmt.Sprintf("Registry lookup failed for %s", name)).
		WithContext("entity", name)
}
