package models

import "fmt"

// Connection mirrors the connection.json file handed to the session builder.
// Authenticator is compared in lower case. PrivateKeyFilePwd decrypts an
// encrypted key file.
type Connection struct {
	Account           string `json:"account" mapstructure:"account" validate:"required"`
	User              string `json:"user" mapstructure:"user" validate:"required"`
	Password          string `json:"password,omitempty" mapstructure:"password"`
	Authenticator     string `json:"authenticator,omitempty" mapstructure:"authenticator" validate:"omitempty,oneof=snowflake snowflake_jwt externalbrowser"`
	PrivateKeyFile    string `json:"private_key_file,omitempty" mapstructure:"private_key_file" validate:"required_if=Authenticator snowflake_jwt"`
	PrivateKeyFilePwd string `json:"private_key_file_pwd,omitempty" mapstructure:"private_key_file_pwd"`
	Host              string `json:"host,omitempty" mapstructure:"host"`
	Role              string `json:"role,omitempty" mapstructure:"role"`
	Warehouse         string `json:"warehouse,omitempty" mapstructure:"warehouse"`
	Database          string `json:"database,omitempty" mapstructure:"database"`
	Schema            string `json:"schema,omitempty" mapstructure:"schema"`
}

// Settings holds the workspace defaults kept in settings.yaml.
type Settings struct {
	Environment   Environment   `yaml:"environment"`
	ModelRegistry ModelRegistry `yaml:"model_registry"`
	FeatureStore  FeatureStore  `yaml:"feature_store"`
	Logging       Logging       `yaml:"logging"`
	Timeout       string        `yaml:"timeout"` // per-statement, e.g. "2m"
}

// Environment describes the database context a session is bootstrapped into.
type Environment struct {
	ScaleFactor   string `yaml:"scale_factor"`   // e.g. SF0001
	Database      string `yaml:"database"`       // empty derives TPCXAI_<sf>_QUICKSTART_INC
	Schema        string `yaml:"schema"`         // required at bootstrap time
	Role          string `yaml:"role"`           // e.g. FS_QS_ROLE
	Warehouse     string `yaml:"warehouse"`      // empty derives TPCXAI_<sf>_QUICKSTART_WH
	WarehouseSize string `yaml:"warehouse_size"` // XSMALL … X6LARGE
}

// ModelRegistry names the schema backing the model registry.
type ModelRegistry struct {
	Database string `yaml:"database"`
	Schema   string `yaml:"schema"`
}

// FeatureStore names the schema and warehouse backing the feature store.
type FeatureStore struct {
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
}

// Logging configures the logrus backed logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// DefaultSettings returns the quickstart defaults.
func DefaultSettings() Settings {
	return Settings{
		Environment: Environment{
			ScaleFactor:   "SF0001",
			Role:          "FS_QS_ROLE",
			WarehouseSize: "MEDIUM",
		},
		ModelRegistry: ModelRegistry{
			Schema: "MODEL_1",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Timeout: "5m",
	}
}

// DatabaseName returns the configured database or the quickstart default.
func (e Environment) DatabaseName() string {
	if e.Database != "" {
		return e.Database
	}
	return fmt.Sprintf("TPCXAI_%s_QUICKSTART_INC", e.ScaleFactor)
}

// WarehouseName returns the configured warehouse or the quickstart default.
func (e Environment) WarehouseName() string {
	if e.Warehouse != "" {
		return e.Warehouse
	}
	return fmt.Sprintf("TPCXAI_%s_QUICKSTART_WH", e.ScaleFactor)
}
