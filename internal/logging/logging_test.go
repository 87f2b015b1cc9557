package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/stretchr/testify/require"
)

func TestRedactorSensitiveKeys(t *testing.T) {
	r := newRedactor()

	cases := []struct {
		key       string
		sensitive bool
	}{
		{"access_token", true},
		{"refreshToken", false}, // camelCase is one segment, not "token"
		{"refresh_token", true},
		{"api_key", true},
		{"apikey", true},
		{"sentby", true},
		{"credentials", true},
		{"channel", false},
		{"message", false},
		{"monkey", false}, // contains "key" but not as a segment
	}
	for _, tc := range cases {
		require.Equal(t, tc.sensitive, r.isSensitive(tc.key), "key: %s", tc.key)
	}
}

func TestRedactReplacesValues(t *testing.T) {
	r := newRedactor()

	pairs := []any{"access_token", "abc123", "channel", "42"}
	out := r.redact(pairs)

	require.Equal(t, []any{"access_token", "[REDACTED]", "channel", "42"}, out)
	// Original untouched.
	require.Equal(t, "abc123", pairs[1])
}

func TestRotateKeepsNewestFiles(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, fmt.Sprintf("chat-intray_2026010%d.log", i))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
		mod := time.Now().Add(time.Duration(i-5) * time.Hour)
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
	// A non-matching file must survive rotation.
	other := filepath.Join(dir, "unrelated.log")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0600))

	require.NoError(t, rotate(dir, 2))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Len(t, names, 3)
	require.Contains(t, names, "unrelated.log")
	require.Contains(t, names, "chat-intray_20260103.log")
	require.Contains(t, names, "chat-intray_20260104.log")
}

func TestInitDisabledReturnsNoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	l, err := Init(cfg)
	require.NoError(t, err)
	require.IsType(t, noopLogger{}, l)
	require.NoError(t, l.Shutdown())
}

func TestInitWritesRedactedJSON(t *testing.T) {
	stateDir := t.TempDir()
	config.Set("state_dir", stateDir)
	t.Cleanup(func() { config.Set("state_dir", "") })

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Level = "debug"

	l, err := Init(cfg)
	require.NoError(t, err)

	l.Info("credentials stored", "login", "alice", "access_token", "abc123")
	impl, ok := l.(*loggerImpl)
	require.True(t, ok)
	require.NoError(t, l.Shutdown())

	data, err := os.ReadFile(impl.filePath())
	require.NoError(t, err)
	require.Contains(t, string(data), "credentials stored")
	require.Contains(t, string(data), "alice")
	require.Contains(t, string(data), "[REDACTED]")
	require.NotContains(t, string(data), "abc123")
}

func TestWithAddsBaseFields(t *testing.T) {
	stateDir := t.TempDir()
	config.Set("state_dir", stateDir)
	t.Cleanup(func() { config.Set("state_dir", "") })

	cfg := DefaultConfig()
	cfg.Enabled = true

	l, err := Init(cfg)
	require.NoError(t, err)

	child := l.With("component", "conn")
	child.Info("connected")
	impl := l.(*loggerImpl)
	require.NoError(t, l.Shutdown())

	data, err := os.ReadFile(impl.filePath())
	require.NoError(t, err)
	require.Contains(t, string(data), "conn")
	require.Contains(t, string(data), "connected")
}

func TestLogDirPrefersStateDir(t *testing.T) {
	stateDir := t.TempDir()
	config.Set("state_dir", stateDir)
	t.Cleanup(func() { config.Set("state_dir", "") })

	dir, err := LogDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(stateDir, "logs"), dir)
}

func TestFromGlobalConfig(t *testing.T) {
	config.Set("logging_enabled", "true")
	config.Set("logging_level", "warn")
	config.Set("logging_max_files", "3")
	t.Cleanup(func() {
		config.Set("logging_enabled", "false")
		config.Set("logging_level", "info")
		config.Set("logging_max_files", "10")
	})

	cfg := FromGlobalConfig()
	require.True(t, cfg.Enabled)
	require.Equal(t, "warn", cfg.Level)
	require.Equal(t, 3, cfg.MaxFiles)
}
