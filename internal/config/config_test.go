package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"APP_PORT", "FMCG_SOURCE", "FMCG_STRICT", "FMCG_CHUNK_SIZE", "AWS_REGION", "AWS_PROFILE", "LOG_LEVEL"} {
		// Setenv registers the restore; godotenv only fills unset keys
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "FMCG_2022_2024.csv", cfg.Dataset.Source)
	assert.False(t, cfg.Dataset.Strict)
	assert.Equal(t, 8192, cfg.Dataset.ChunkSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "APP_PORT=9090\nFMCG_SOURCE=s3://bucket/fmcg.csv\nFMCG_STRICT=true\nAWS_REGION=eu-central-1\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "s3://bucket/fmcg.csv", cfg.Dataset.Source)
	assert.True(t, cfg.Dataset.Strict)
	assert.Equal(t, "eu-central-1", cfg.AWS.Region)
}

func TestLoadInvalidChunkSize(t *testing.T) {
	clearEnv(t)
	t.Setenv("FMCG_CHUNK_SIZE", "lots")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "nil", cfg: nil, wantErr: true},
		{name: "no port", cfg: &Config{Dataset: DatasetConfig{Source: "a.csv", ChunkSize: 1}}, wantErr: true},
		{name: "no source", cfg: &Config{Server: ServerConfig{Port: "80"}, Dataset: DatasetConfig{ChunkSize: 1}}, wantErr: true},
		{name: "ok", cfg: &Config{Server: ServerConfig{Port: "80"}, Dataset: DatasetConfig{Source: "a.csv", ChunkSize: 1}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
