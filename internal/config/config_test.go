package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":17171", cfg.Server.GRPC.Address)
	assert.Equal(t, ":17172", cfg.Server.WebSocket.Address)
	assert.Equal(t, 2*time.Minute, cfg.Table.DecisionTimeout)
	assert.Equal(t, 20, cfg.Table.StartingLife)
	assert.Equal(t, "", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: "file:mage.db"
table:
  decision_timeout: 45s
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:mage.db", cfg.Database.DSN)
	assert.Equal(t, 45*time.Second, cfg.Table.DecisionTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 7, cfg.Table.OpeningHand, "unset keys keep their defaults")
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: warn\n")
	t.Setenv("MAGE_LOGGING_LEVEL", "error")
	t.Setenv("MAGE_SERVER_GRPC_ADDRESS", "127.0.0.1:9000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.GRPC.Address)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown driver", body: "database:\n  driver: oracle\n  dsn: x\n"},
		{name: "driver without dsn", body: "database:\n  driver: postgres\n"},
		{name: "zero timeout", body: "table:\n  decision_timeout: 0s\n"},
		{name: "zero burst", body: "chat:\n  burst: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed\n"))
	assert.Error(t, err)
}
