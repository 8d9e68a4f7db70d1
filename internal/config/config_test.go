package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/models"
)

func TestGetConfigPath(t *testing.T) {
	t.Setenv(EnvConfigDir, "")
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".sfds"), GetConfigPath())

	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	assert.Equal(t, dir, GetConfigPath())
	assert.Equal(t, filepath.Join(dir, "settings.yaml"), GetSettingsFile())
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())

	settings, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), *settings)
	assert.False(t, SettingsExist())
}

func TestSaveAndLoadSettings(t *testing.T) {
	t.Setenv(EnvConfigDir, filepath.Join(t.TempDir(), "nested"))

	settings := models.DefaultSettings()
	settings.Environment.Schema = "RETAIL"
	settings.FeatureStore.Schema = "FS_1"
	settings.Timeout = "90s"

	require.NoError(t, SaveSettings(&settings))
	assert.True(t, SettingsExist())

	info, err := os.Stat(GetSettingsFile())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, settings, *loaded)
	assert.Equal(t, 90*time.Second, StatementTimeout(loaded))
}

func TestLoadSettingsPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte("environment:\n  schema: RETAIL\n"), 0600))

	settings, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "RETAIL", settings.Environment.Schema)
	assert.Equal(t, "MODEL_1", settings.ModelRegistry.Schema)
}

func TestLoadSettingsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte("environment: [oops"), 0600))

	_, err := LoadSettings()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal settings")
}

func TestStatementTimeout(t *testing.T) {
	assert.Equal(t, 5*time.Minute, StatementTimeout(nil))
	assert.Equal(t, 5*time.Minute, StatementTimeout(&models.Settings{Timeout: "soon"}))
	assert.Equal(t, 30*time.Second, StatementTimeout(&models.Settings{Timeout: "30s"}))
}

func writeConnection(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "connection.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func clearSnowflakeEnv(t *testing.T) {
	t.Helper()
	for _, key := range connectionKeys {
		name := "SNOWFLAKE_" + strings.ToUpper(key)
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadConnection(t *testing.T) {
	keyring.MockInit()
	clearSnowflakeEnv(t)

	path := writeConnection(t, `{
		"account": "xy12345.us-east-1",
		"user": "DATA_SCIENTIST",
		"password": "secret",
		"role": "FS_QS_ROLE",
		"warehouse": "COMPUTE_WH",
		"database": "TPCXAI_SF0001_QUICKSTART_INC"
	}`)

	conn, err := LoadConnection(path)
	require.NoError(t, err)
	assert.Equal(t, "xy12345.us-east-1", conn.Account)
	assert.Equal(t, "DATA_SCIENTIST", conn.User)
	assert.Equal(t, "secret", conn.Password)
	assert.Equal(t, "FS_QS_ROLE", conn.Role)
	assert.Equal(t, "TPCXAI_SF0001_QUICKSTART_INC", conn.Database)
}

func TestLoadConnectionEnvOverride(t *testing.T) {
	keyring.MockInit()
	clearSnowflakeEnv(t)
	t.Setenv("SNOWFLAKE_ROLE", "SYSADMIN")

	path := writeConnection(t, `{"account": "acct", "user": "me", "password": "pw", "role": "FS_QS_ROLE"}`)

	conn, err := LoadConnection(path)
	require.NoError(t, err)
	assert.Equal(t, "SYSADMIN", conn.Role)
}

func TestLoadConnectionKeyPassphrase(t *testing.T) {
	keyring.MockInit()
	clearSnowflakeEnv(t)

	path := writeConnection(t, `{
		"account": "acct",
		"user": "me",
		"authenticator": "snowflake_jwt",
		"private_key_file": "rsa_key.p8",
		"private_key_file_pwd": "from-file"
	}`)

	conn, err := LoadConnection(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", conn.PrivateKeyFilePwd)

	t.Setenv("SNOWFLAKE_PRIVATE_KEY_FILE_PWD", "from-env")
	conn, err = LoadConnection(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", conn.PrivateKeyFilePwd)
}

func TestLoadConnectionFromEnvOnly(t *testing.T) {
	keyring.MockInit()
	clearSnowflakeEnv(t)
	t.Setenv("SNOWFLAKE_ACCOUNT", "acct")
	t.Setenv("SNOWFLAKE_USER", "me")
	t.Setenv("SNOWFLAKE_PASSWORD", "pw")

	conn, err := LoadConnection(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "acct", conn.Account)
}

func TestLoadConnectionKeyringFallback(t *testing.T) {
	keyring.MockInit()
	clearSnowflakeEnv(t)
	require.NoError(t, keyring.Set(KeyringService, "acct/me", "from-keyring"))

	path := writeConnection(t, `{"account": "acct", "user": "me"}`)

	conn, err := LoadConnection(path)
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", conn.Password)
}

func TestLoadConnectionValidation(t *testing.T) {
	keyring.MockInit()
	clearSnowflakeEnv(t)

	tests := []struct {
		name     string
		content  string
		errorMsg string
	}{
		{
			name:     "missing account",
			content:  `{"user": "me", "password": "pw"}`,
			errorMsg: "account is required",
		},
		{
			name:     "missing user",
			content:  `{"account": "acct", "password": "pw"}`,
			errorMsg: "user is required",
		},
		{
			name:     "missing password",
			content:  `{"account": "acct", "user": "nobody"}`,
			errorMsg: "password is required",
		},
		{
			name:     "unknown authenticator",
			content:  `{"account": "acct", "user": "me", "authenticator": "okta"}`,
			errorMsg: "authenticator must be one of",
		},
		{
			name:     "jwt without key",
			content:  `{"account": "acct", "user": "me", "authenticator": "SNOWFLAKE_JWT"}`,
			errorMsg: "private_key_file is required when authenticator is snowflake_jwt",
		},
		{
			name:     "not json",
			content:  `account = acct`,
			errorMsg: "Failed to parse connection file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConnection(writeConnection(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestValidateConnectionExternalBrowser(t *testing.T) {
	conn := &models.Connection{Account: "acct", User: "me", Authenticator: "externalbrowser"}
	assert.NoError(t, ValidateConnection(conn))
	assert.False(t, NeedsPassword(conn))
}

func TestValidateConnectionErrorCode(t *testing.T) {
	err := ValidateConnection(&models.Connection{User: "me", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))
}

func TestSaveConnection(t *testing.T) {
	keyring.MockInit()
	clearSnowflakeEnv(t)
	path := filepath.Join(t.TempDir(), "conn", "connection.json")

	conn := &models.Connection{Account: "acct", User: "me", Password: "pw", Role: "FS_QS_ROLE"}
	require.NoError(t, SaveConnection(path, conn, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"password"`)
	assert.Equal(t, "pw", conn.Password)

	loaded, err := LoadConnection(path)
	require.NoError(t, err)
	assert.Equal(t, "pw", loaded.Password)
	assert.Equal(t, "FS_QS_ROLE", loaded.Role)
}

func TestResolveConnectionFile(t *testing.T) {
	assert.Equal(t, "/explicit/connection.json", ResolveConnectionFile("/explicit/connection.json"))

	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(wd)

	assert.Equal(t, filepath.Join(dir, DefaultConnectionFile), ResolveConnectionFile(""))
}
