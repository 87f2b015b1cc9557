package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// withTestDirs points the XDG directories at a temp dir so Load never
// touches the real user configuration.
func withTestDirs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("CHAT_INTRAY_CONFIG_PATH", "")
	return dir
}

func TestLoadDefaults(t *testing.T) {
	withTestDirs(t)
	Load()

	require.Equal(t, "1000", Get("subscription_delay_ms", ""))
	require.Equal(t, "5000", Get("dedup_window_ms", ""))
	require.Equal(t, 10, GetInt("http_timeout_seconds", 0))
	require.True(t, GetBool("sound_enabled", false))
	require.Equal(t, "livechat", Get("subscription_package", ""))
	require.Equal(t, "channelmessages", Get("subscription_page", ""))
	require.Equal(t, "Me,Moi", Get("self_labels", ""))
}

func TestLoadFromTOMLFile(t *testing.T) {
	dir := withTestDirs(t)
	configPath := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"server_url = \"wss://example.org/socket\"\nsubscription_delay_ms = 250\nsound_enabled = false\n",
	), 0644))
	t.Setenv("CHAT_INTRAY_CONFIG_PATH", configPath)

	Load()

	require.Equal(t, "wss://example.org/socket", Get("server_url", ""))
	require.Equal(t, 250, GetInt("subscription_delay_ms", 0))
	require.False(t, GetBool("sound_enabled", true))
}

func TestEnvOverridesFile(t *testing.T) {
	dir := withTestDirs(t)
	configPath := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"subscription_delay_ms = 250\n",
	), 0644))
	t.Setenv("CHAT_INTRAY_CONFIG_PATH", configPath)
	t.Setenv("CHAT_INTRAY_SUBSCRIPTION_DELAY_MS", "750")

	Load()

	require.Equal(t, 750, GetInt("subscription_delay_ms", 0))
}

func TestInvalidPositiveIntFallsBackToDefault(t *testing.T) {
	withTestDirs(t)
	t.Setenv("CHAT_INTRAY_DEDUP_WINDOW_MS", "-3")

	Load()

	require.Equal(t, 5000, GetInt("dedup_window_ms", 0))
}

func TestInvalidURLSchemeFallsBackToDefault(t *testing.T) {
	withTestDirs(t)
	t.Setenv("CHAT_INTRAY_SERVER_URL", "ftp://example.org")

	Load()

	require.Equal(t, "wss://chat.example.com/ws", Get("server_url", ""))
}

func TestBoolNormalization(t *testing.T) {
	withTestDirs(t)
	t.Setenv("CHAT_INTRAY_SOUND_ENABLED", "ON")

	Load()

	require.Equal(t, "true", Get("sound_enabled", ""))
}

func TestInvalidEnumFallsBackToDefault(t *testing.T) {
	withTestDirs(t)
	t.Setenv("CHAT_INTRAY_LOGGING_LEVEL", "verbose")

	Load()

	require.Equal(t, "info", Get("logging_level", ""))
}

func TestSampleConfigCreated(t *testing.T) {
	dir := withTestDirs(t)

	Load()

	samplePath := filepath.Join(dir, "config", "chat-intray", "config.toml")
	data, err := os.ReadFile(samplePath)
	require.NoError(t, err)
	require.Contains(t, string(data), "chat-intray configuration")
}

func TestSetOverridesAtRuntime(t *testing.T) {
	withTestDirs(t)
	Load()

	Set("sound_enabled", "false")
	require.False(t, GetBool("sound_enabled", true))
}

func TestGetMissingKeyReturnsDefault(t *testing.T) {
	withTestDirs(t)
	Load()

	require.Equal(t, "fallback", Get("no_such_key", "fallback"))
	require.Equal(t, 7, GetInt("no_such_key", 7))
	require.True(t, GetBool("no_such_key", true))
}

func TestRegisterValidatorDuplicatePanics(t *testing.T) {
	require.Panics(t, func() {
		RegisterValidator("server_url", URLValidator("wss"))
	})
}
