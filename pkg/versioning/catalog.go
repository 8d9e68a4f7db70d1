package versioning

import (
	"context"
	"fmt"
	"sort"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

// Catalog is an in-memory Registry, typically a snapshot taken from a single
// SHOW listing so that allocation needs only one round trip.
type Catalog struct {
	entities map[string][]string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entities: make(map[string][]string)}
}

// Add records name with its version tags. Adding the same name again
// appends to its versions.
func (c *Catalog) Add(name string, versions ...string) {
	c.entities[name] = append(c.entities[name], versions...)
}

// Len returns the number of entities.
func (c *Catalog) Len() int {
	return len(c.entities)
}

// ListEntities returns entity names in sorted order.
func (c *Catalog) ListEntities(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(c.entities))
	for name := range c.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// LookupVersions returns a copy of the versions recorded for name.
func (c *Catalog) LookupVersions(ctx context.Context, name string) ([]string, error) {
	versions, ok := c.entities[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeEntityNotFound, fmt.Sprintf("%s does not exist", name)).
			WithContext("entity", name)
	}
	return append([]string(nil), versions...), nil
}

// NextAfter returns the tag following the greatest of versions, or FirstTag
// when there are none.
func NextAfter(versions []string) (Tag, error) {
	latest, ok, err := Max(versions)
	if err != nil {
		return Tag{}, err
	}
	if !ok {
		return FirstTag, nil
	}
	return latest.Next(), nil
}
