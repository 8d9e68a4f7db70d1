package snowflake

import (
	"fmt"
	"strings"

	"github.com/snowflakedb/gosnowflake"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/models"
)

const applicationName = "sfds"

// DSN renders conn as a gosnowflake data source name.
func DSN(conn *models.Connection) (string, error) {
	cfg, err := Config(conn)
	if err != nil {
		return "", err
	}

	dsn, err := gosnowflake.DSN(cfg)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to build connection string").
			WithContext("account", conn.Account)
	}
	return dsn, nil
}

// Config maps a connection file onto a driver config.
func Config(conn *models.Connection) (*gosnowflake.Config, error) {
	if conn == nil {
		return nil, errors.New(errors.ErrCodeConfigMissing, "No connection configured")
	}

	cfg := &gosnowflake.Config{
		Account:     conn.Account,
		User:        conn.User,
		Host:        conn.Host,
		Role:        conn.Role,
		Warehouse:   conn.Warehouse,
		Database:    conn.Database,
		Schema:      conn.Schema,
		Application: applicationName,
	}

	switch strings.ToLower(conn.Authenticator) {
	case "", "snowflake":
		cfg.Authenticator = gosnowflake.AuthTypeSnowflake
		cfg.Password = conn.Password
	case "snowflake_jwt":
		key, err := loadPrivateKey(conn.PrivateKeyFile, conn.PrivateKeyFilePwd)
		if err != nil {
			return nil, err
		}
		cfg.Authenticator = gosnowflake.AuthTypeJwt
		cfg.PrivateKey = key
	case "externalbrowser":
		cfg.Authenticator = gosnowflake.AuthTypeExternalBrowser
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported authenticator %q", conn.Authenticator), "authenticator").
			WithSuggestions("Use one of: snowflake, snowflake_jwt, externalbrowser")
	}

	return cfg, nil
}
