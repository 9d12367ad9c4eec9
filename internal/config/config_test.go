package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "NOTES_CONFIG_FILE", "SERVER_ADDRESS", "STORE_BACKEND", "SQLITE_PATH",
		"TABLE_NAME", "NOTES_CALL_TIMEOUT", "LOG_LEVEL", "SUMMARIES_PER_MINUTE", "ENABLE_SUMMARIES",
		"ENABLE_EVENTS", "EVENT_BUS_NAME", "ENABLE_TRACING", "OTLP_ENDPOINT", "IS_LAMBDA",
		"SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 10*time.Second, cfg.Store.CallTimeout)
	assert.Equal(t, "info", cfg.Dynamic.LogLevel)
	assert.Equal(t, []string{"defaults", "environment"}, cfg.LoadedFrom)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	// Arrange
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "notes.yaml")
	writeFile(t, path, `
store:
  backend: sqlite
  sqlite_path: /tmp/from-file.db
  call_timeout: 3s
dynamic:
  log_level: debug
  summaries_per_minute: 5
`)
	t.Setenv("NOTES_CONFIG_FILE", path)
	t.Setenv("SQLITE_PATH", "/tmp/from-env.db")
	t.Setenv("ENVIRONMENT", "production")

	// Act
	cfg, err := Load()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Production, cfg.Environment)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/from-env.db", cfg.Store.SQLitePath)
	assert.Equal(t, 3*time.Second, cfg.Store.CallTimeout)
	assert.Equal(t, "debug", cfg.Dynamic.LogLevel)
	assert.Equal(t, 5, cfg.Dynamic.SummariesPerMinute)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_InvalidFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "notes.yaml")
	writeFile(t, path, "store: [not, a, map")
	t.Setenv("NOTES_CONFIG_FILE", path)

	_, err := Load()

	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Store.Backend = "postgres" },
			wantErr: `unknown store backend "postgres"`,
		},
		{
			name:    "dynamodb needs a table",
			mutate:  func(c *Config) { c.Store.Backend = BackendDynamoDB },
			wantErr: "TABLE_NAME",
		},
		{
			name:    "supabase needs credentials",
			mutate:  func(c *Config) { c.Store.Backend = BackendSupabase },
			wantErr: "SUPABASE_URL",
		},
		{
			name:    "events need a bus",
			mutate:  func(c *Config) { c.Events.Enabled = true },
			wantErr: "EVENT_BUS_NAME",
		},
		{
			name:    "tracing needs an endpoint",
			mutate:  func(c *Config) { c.Observability.EnableTracing = true },
			wantErr: "OTLP_ENDPOINT",
		},
		{
			name:    "negative summary rate",
			mutate:  func(c *Config) { c.Dynamic.SummariesPerMinute = -1 },
			wantErr: "SUMMARIES_PER_MINUTE",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Dynamic.LogLevel = "loud" },
			wantErr: "LOG_LEVEL",
		},
		{
			name:    "zero call timeout",
			mutate:  func(c *Config) { c.Store.CallTimeout = 0 },
			wantErr: "NOTES_CALL_TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults(Development)
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWatcher_ReloadsDynamicSettings(t *testing.T) {
	// Arrange
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "notes.yaml")
	writeFile(t, path, "dynamic:\n  log_level: info\n  summaries_per_minute: 10\n  summaries_enabled: true\n")
	t.Setenv("NOTES_CONFIG_FILE", path)
	cfg, err := Load()
	require.NoError(t, err)

	w, err := newWatcher(cfg, zap.NewNop(), 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, w)
	defer w.Stop()

	changed := make(chan Dynamic, 1)
	w.OnChange(func(d Dynamic) {
		select {
		case changed <- d:
		default:
		}
	})

	// Act
	writeFile(t, path, "dynamic:\n  log_level: debug\n  summaries_per_minute: 2\n  summaries_enabled: false\n")

	// Assert
	select {
	case d := <-changed:
		assert.Equal(t, Dynamic{LogLevel: "debug", SummariesPerMinute: 2, SummariesEnabled: false}, d)
		assert.Equal(t, d, w.Current())
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}

func TestWatcher_InvalidReloadKeepsSettings(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "notes.yaml")
	writeFile(t, path, "dynamic:\n  log_level: info\n")
	t.Setenv("NOTES_CONFIG_FILE", path)
	cfg, err := Load()
	require.NoError(t, err)
	w, err := NewWatcher(cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	writeFile(t, path, "dynamic:\n  log_level: loud\n")
	w.reload()

	assert.Equal(t, "info", w.Current().LogLevel)
}

func TestNewWatcher_NoFile(t *testing.T) {
	w, err := NewWatcher(Defaults(Development), zap.NewNop())

	require.NoError(t, err)
	assert.Nil(t, w)
}
