// Package versioning allocates "<prefix>_<n>" version tags for models and
// datasets kept in a Snowflake registry.
package versioning

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

// DefaultPrefix is used for the first version of a new entity.
const DefaultPrefix = "V"

// FirstTag is the tag handed out when an entity has no versions yet.
var FirstTag = Tag{Prefix: DefaultPrefix, Number: 1}

var (
	// ErrEntityNotFound is returned by a Registry when the named entity does not exist.
	ErrEntityNotFound = errors.Sentinel(errors.ErrCodeEntityNotFound, "entity not found")

	// ErrMalformedVersionTag matches any tag that is not <prefix>_<integer>.
	ErrMalformedVersionTag = errors.Sentinel(errors.ErrCodeMalformedVersionTag, "malformed version tag")
)

// Tag is a parsed version tag such as V_3 or RUN_12.
type Tag struct {
	Prefix string
	Number int
}

// ParseTag splits s on its last underscore. The prefix must be non-empty and
// the suffix a non-negative integer with no sign or leading zeros.
func ParseTag(s string) (Tag, error) {
	idx := strings.LastIndex(s, "_")
	if idx <= 0 || idx == len(s)-1 {
		return Tag{}, malformed(s, "expected <prefix>_<number>")
	}

	prefix, digits := s[:idx], s[idx+1:]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Tag{}, malformed(s, fmt.Sprintf("suffix %q is not an integer", digits))
		}
	}
	if len(digits) > 1 && digits[0] == '0' {
		return Tag{}, malformed(s, fmt.Sprintf("suffix %q has leading zeros", digits))
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return Tag{}, errors.Wrap(err, errors.ErrCodeMalformedVersionTag, fmt.Sprintf("Malformed version tag %q", s)).
			WithContext("tag", s)
	}

	return Tag{Prefix: prefix, Number: n}, nil
}

// MustParseTag is like ParseTag but panics on malformed input.
func MustParseTag(s string) Tag {
	t, err := ParseTag(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Next returns the tag that follows t.
func (t Tag) Next() Tag {
	return Tag{Prefix: t.Prefix, Number: t.Number + 1}
}

func (t Tag) String() string {
	return t.Prefix + "_" + strconv.Itoa(t.Number)
}

// Max parses every tag and returns the one with the greatest number.
// Equal numbers under different prefixes resolve to the lexicographically
// greatest text so the answer does not depend on input order.
func Max(tags []string) (Tag, bool, error) {
	var (
		best    Tag
		bestRaw string
		found   bool
	)

	for _, raw := range tags {
		t, err := ParseTag(raw)
		if err != nil {
			return Tag{}, false, err
		}
		if !found || t.Number > best.Number || (t.Number == best.Number && raw > bestRaw) {
			best, bestRaw, found = t, raw, true
		}
	}

	return best, found, nil
}

func malformed(tag, reason string) *errors.AppError {
	return errors.New(errors.ErrCodeMalformedVersionTag, fmt.Sprintf("Malformed version tag %q: %s", tag, reason)).
		WithContext("tag", tag).
		WithSuggestions("Version tags must look like V_1, V_2, RUN_10")
}
