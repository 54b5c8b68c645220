package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultPGHost, cfg.Postgres.Host)
	assert.Equal(t, DefaultPGPort, cfg.Postgres.Port)
	assert.Equal(t, DefaultAssistantURL, cfg.Assistant.BaseURL)
	assert.Equal(t, DefaultResetCommand, cfg.Messaging.ResetCommand)
	assert.NotEmpty(t, cfg.Messaging.ResetConfirmation)
	assert.Empty(t, cfg.Auth.APIKey)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[log]
level = "debug"
format = "json"

[server]
addr = ":9090"

[auth]
jwt_secret = "secret"
api_key = "s3cret"

[postgres]
host = "db.internal"
database = "associa_test"

[messaging]
reset_command = "recomeçar"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "s3cret", cfg.Auth.APIKey)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "associa_test", cfg.Postgres.Database)
	assert.Equal(t, "recomeçar", cfg.Messaging.ResetCommand)

	// Sections absent from the file keep their defaults.
	assert.Equal(t, DefaultPGPort, cfg.Postgres.Port)
	assert.Equal(t, DefaultJWTExpiresIn, cfg.Auth.JWTExpiresIn)
}
