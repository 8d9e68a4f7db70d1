package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSettingsYAML(t *testing.T) {
	settings := DefaultSettings()
	settings.Environment.Schema = "RETAIL"
	settings.FeatureStore = FeatureStore{Schema: "FS_1", Warehouse: "FS_WH"}

	data, err := yaml.Marshal(&settings)
	require.NoError(t, err)
	assert.Contains(t, string(data), "warehouse_size: MEDIUM")
	assert.Contains(t, string(data), "model_registry:")

	var decoded Settings
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, settings, decoded)
}

func TestConnectionJSON(t *testing.T) {
	raw := `{
		"account": "xy12345.us-east-1",
		"user": "DATA_SCIENTIST",
		"password": "secret",
		"role": "FS_QS_ROLE",
		"warehouse": "COMPUTE_WH"
	}`

	var conn Connection
	require.NoError(t, json.Unmarshal([]byte(raw), &conn))
	assert.Equal(t, "xy12345.us-east-1", conn.Account)
	assert.Equal(t, "DATA_SCIENTIST", conn.User)
	assert.Empty(t, conn.Database)
}

func TestEnvironmentDerivedNames(t *testing.T) {
	env := DefaultSettings().Environment

	assert.Equal(t, "TPCXAI_SF0001_QUICKSTART_INC", env.DatabaseName())
	assert.Equal(t, "TPCXAI_SF0001_QUICKSTART_WH", env.WarehouseName())

	env.Database = "ANALYTICS"
	env.Warehouse = "ML_WH"
	assert.Equal(t, "ANALYTICS", env.DatabaseName())
	assert.Equal(t, "ML_WH", env.WarehouseName())
}

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	assert.Equal(t, "FS_QS_ROLE", settings.Environment.Role)
	assert.Equal(t, "MODEL_1", settings.ModelRegistry.Schema)
	assert.Equal(t, "5m", settings.Timeout)
}
