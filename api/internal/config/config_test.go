package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearKeys(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOOGLE_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY_STAGING", "GOOGLE_API_KEY_FILE", "APP_MODE", "GEMINI_REST_BASE_URL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearKeys(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ModeDevelopment, cfg.Mode)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models", cfg.GeminiRESTBaseURL)
	assert.Empty(t, cfg.APIKey())
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestAPIKeyPrecedence(t *testing.T) {
	clearKeys(t)
	t.Setenv("GOOGLE_API_KEY_STAGING", "staging")
	t.Setenv("GEMINI_API_KEY", "gemini")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.APIKey())

	t.Setenv("GOOGLE_API_KEY", "  google  ")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "google", cfg.APIKey())
}

func TestAPIKeyFromSecretFile(t *testing.T) {
	clearKeys(t)
	path := filepath.Join(t.TempDir(), "google_api_key")
	require.NoError(t, os.WriteFile(path, []byte("from-secret\n"), 0o600))
	t.Setenv("GOOGLE_API_KEY_FILE", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-secret", cfg.APIKey())
}

func TestLoadEnvFile(t *testing.T) {
	clearKeys(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GOOGLE_API_KEY=dotenv-key\nAPP_MODE=Production\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.APIKey())
	assert.True(t, cfg.Production())
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	clearKeys(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestUnknownModeFallsBackToDevelopment(t *testing.T) {
	clearKeys(t)
	t.Setenv("APP_MODE", "staging")
	t.Setenv("GEMINI_REST_BASE_URL", "http://localhost:9999/models/")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeDevelopment, cfg.Mode)
	assert.Equal(t, "http://localhost:9999/models", cfg.GeminiRESTBaseURL)
}
