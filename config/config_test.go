package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// unsetenv clears k for the rest of the test and restores it afterwards.
func unsetenv(t *testing.T, k string) {
	t.Helper()
	t.Setenv(k, "")
	require.NoError(t, os.Unsetenv(k))
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"STORAGE_DRIVER", "DATA_DIR", "SQLITE_PATH",
		"LOG_LEVEL", "LOG_FORMAT", "OPERATOR", "OPERATOR_PASSWORD"} {
		unsetenv(t, "LIBRARY_"+k)
		unsetenv(t, k)
	}
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, "library.db", cfg.Storage.SQLitePath)
	assert.Equal(t, zapcore.WarnLevel, cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "admin", cfg.Operator.Username)
	assert.Empty(t, cfg.Operator.Password)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LIBRARY_STORAGE_DRIVER", "sqlite")
	t.Setenv("LIBRARY_SQLITE_PATH", "/tmp/lib.db")
	t.Setenv("LIBRARY_LOG_LEVEL", "debug")
	t.Setenv("LIBRARY_LOG_FORMAT", "json")
	t.Setenv("LIBRARY_OPERATOR", "librarian")
	t.Setenv("LIBRARY_OPERATOR_PASSWORD", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/lib.db", cfg.Storage.SQLitePath)
	assert.Equal(t, zapcore.DebugLevel, cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "librarian", cfg.Operator.Username)
	assert.Equal(t, "s3cret", cfg.Operator.Password)
}

func TestLoadOptionsOverrideEnvironment(t *testing.T) {
	t.Setenv("LIBRARY_DATA_DIR", "/var/lib/library")
	t.Setenv("LIBRARY_STORAGE_DRIVER", "file")

	cfg, err := Load(WithDataDir("./fixtures"), WithDriver(DriverSQLite))
	require.NoError(t, err)
	assert.Equal(t, "./fixtures", cfg.Storage.DataDir)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("LIBRARY_STORAGE_DRIVER", "postgres")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	t.Setenv("LIBRARY_LOG_LEVEL", "loud")
	_, err := Load()
	assert.Error(t, err)
}
