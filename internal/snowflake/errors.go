package snowflake

import (
	"strings"

	"github.com/snowflakedb/gosnowflake"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

// Snowflake error numbers.
const (
	errNumAlreadyExists  = 2002
	errNumDoesNotExist   = 2003
	errNumUnsupportedObj = 2140
)

// classify refines the code of appErr from the driver error behind it.
func classify(appErr *errors.AppError, cause error) *errors.AppError {
	switch {
	case isNotExist(cause):
		appErr.Code = errors.ErrCodeSQLObjectNotFound
		appErr.WithSuggestions(
			"Verify the object exists in the target database/schema",
			"Check that the current role can see it",
		)
	case isUnsupported(cause):
		appErr.Code = errors.ErrCodeUnsupportedByAccount
		appErr.WithSuggestions("This statement needs a Snowflake edition or region that supports it")
	}
	return appErr
}

func snowflakeNumber(err error) (int, bool) {
	var sfErr *gosnowflake.SnowflakeError
	if errors.As(err, &sfErr) {
		return sfErr.Number, true
	}
	return 0, false
}

func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	if n, ok := snowflakeNumber(err); ok && n == errNumDoesNotExist {
		return true
	}
	if errors.GetErrorCode(err) == errors.ErrCodeSQLObjectNotFound {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "does not exist")
}

func isAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	if n, ok := snowflakeNumber(err); ok && n == errNumAlreadyExists {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func isUnsupported(err error) bool {
	if n, ok := snowflakeNumber(err); ok && n == errNumUnsupportedObj {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unsupported feature") || strings.Contains(lower, "not supported")
}

// notFound reports name as missing in a form that matches
// versioning.ErrEntityNotFound.
func notFound(err error, name string) error {
	if err == nil {
		return errors.New(errors.ErrCodeEntityNotFound, name+" does not exist").
			WithContext("entity", name)
	}
	return errors.Wrap(err, errors.ErrCodeEntityNotFound, name+" does not exist").
		WithContext("entity", name)
}
