package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"

	"github.com/jar-ry/Snowflake-Data-Science/internal/common"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/models"
)

const (
	// DefaultConnectionFile is looked up in the working directory first.
	DefaultConnectionFile = "connection.json"

	// KeyringService is the OS keyring service passwords are stored under.
	KeyringService = "sfds"

	envPrefix = "SNOWFLAKE"
)

var connectionKeys = []string{
	"account", "user", "password", "authenticator", "private_key_file",
	"private_key_file_pwd", "host", "role", "warehouse", "database", "schema",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ResolveConnectionFile picks the connection file: an explicit path, then
// ./connection.json, then connection.json in the config directory.
func ResolveConnectionFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultConnectionFile); err == nil {
		return DefaultConnectionFile
	}
	return filepath.Join(GetConfigPath(), DefaultConnectionFile)
}

// LoadConnection reads connection credentials from a JSON file, applies
// SNOWFLAKE_* environment overrides, falls back to the OS keyring for the
// password and validates the result.
func LoadConnection(path string) (*models.Connection, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	for _, key := range connectionKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to bind environment").
				WithContext("key", key)
		}
	}

	cleaned, err := common.CleanPath(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Invalid connection file path").
			WithContext("path", path)
	}

	if _, statErr := os.Stat(cleaned); statErr == nil {
		v.SetConfigFile(cleaned)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to parse connection file").
				WithContext("path", cleaned).
				WithSuggestions("connection.json must be a JSON object of connection parameters")
		}
	} else if !os.IsNotExist(statErr) {
		return nil, errors.Wrap(statErr, errors.ErrCodeFilePermission, "Cannot access connection file").
			WithContext("path", cleaned)
	}

	var conn models.Connection
	if err := v.Unmarshal(&conn); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to decode connection parameters")
	}
	conn.Authenticator = strings.ToLower(conn.Authenticator)

	if conn.Password == "" && NeedsPassword(&conn) && conn.Account != "" && conn.User != "" {
		if pw, err := keyring.Get(KeyringService, keyringUser(&conn)); err == nil {
			conn.Password = pw
		} else if !errors.Is(err, keyring.ErrNotFound) {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to read password from keyring")
		}
	}

	if err := ValidateConnection(&conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// SaveConnection writes conn as indented JSON readable only by the owner.
// The password is moved into the OS keyring when storeInKeyring is set.
func SaveConnection(path string, conn *models.Connection, storeInKeyring bool) error {
	out := *conn
	if storeInKeyring && out.Password != "" {
		if err := keyring.Set(KeyringService, keyringUser(&out), out.Password); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to store password in keyring")
		}
		out.Password = ""
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, common.DirPermissionSecure); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, common.FilePermissionSecure); err != nil {
		return fmt.Errorf("failed to write connection file: %w", err)
	}
	return nil
}

// NeedsPassword reports whether the authenticator uses a password.
func NeedsPassword(conn *models.Connection) bool {
	return conn.Authenticator == "" || conn.Authenticator == "snowflake"
}

// ValidateConnection checks required fields and authenticator rules.
func ValidateConnection(conn *models.Connection) error {
	if err := validate.Struct(conn); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return errors.Wrap(err, errors.ErrCodeValidationFailed, "Invalid connection parameters")
	}

	if NeedsPassword(conn) && conn.Password == "" {
		return errors.ConfigError("password is required", "password").
			WithSuggestions(fmt.Sprintf("Store it with 'sfds init --keyring' or set %s_PASSWORD", envPrefix))
	}
	return nil
}

func fieldError(fe validator.FieldError) *errors.AppError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return errors.ConfigError(fmt.Sprintf("%s is required", field), field)
	case "required_if":
		return errors.ConfigError(fmt.Sprintf("%s is required when authenticator is %s", field, lastWord(fe.Param())), field)
	case "oneof":
		return errors.ConfigError(fmt.Sprintf("%s must be one of [%s]", field, fe.Param()), field).
			WithContext("value", fe.Value())
	default:
		return errors.ConfigError(fmt.Sprintf("%s failed %s validation", field, fe.Tag()), field)
	}
}

func keyringUser(conn *models.Connection) string {
	return conn.Account + "/" + conn.User
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[len(fields)-1]
}
