// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile_FullConfig(t *testing.T) {
	path := writeConfigFile(t, `
app:
  name: collab-client
  environment: test
server:
  base_url: https://platform.example.test
  request_timeout: 5000
auth:
  static_token: dev-token
realtime:
  backoff_base: 500
  backoff_cap: 10000
  send_ping_on_open: true
chat:
  history_page_limit: 25
metrics:
  enabled: true
  address: ":9200"
logging:
  level: debug
  format: console
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "collab-client", cfg.App.Name)
	assert.Equal(t, "https://platform.example.test", cfg.Server.BaseURL)
	assert.Equal(t, 5000, cfg.Server.RequestTimeout)
	assert.Equal(t, "dev-token", cfg.Auth.StaticToken)
	assert.Equal(t, 500*time.Millisecond, cfg.Realtime.BackoffBaseDuration())
	assert.Equal(t, 10*time.Second, cfg.Realtime.BackoffCapDuration())
	assert.True(t, cfg.Realtime.SendPingOnOpen)
	assert.Equal(t, 25, cfg.Chat.HistoryPageLimit)
	assert.Equal(t, ":9200", cfg.Metrics.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  base_url: https://platform.example.test
auth:
  static_token: dev-token
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 15000, cfg.Server.RequestTimeout)
	assert.Equal(t, 1000, cfg.Realtime.BackoffBase)
	assert.Equal(t, 30000, cfg.Realtime.BackoffCap)
	assert.Equal(t, 50, cfg.Chat.HistoryPageLimit)
	assert.Equal(t, ":9108", cfg.Metrics.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing base url",
			yaml:    "auth:\n  static_token: x\n",
			wantErr: "base_url",
		},
		{
			name:    "missing token url without static token",
			yaml:    "server:\n  base_url: https://x.test\n",
			wantErr: "token_url",
		},
		{
			name: "missing client id",
			yaml: `
server:
  base_url: https://x.test
auth:
  token_url: https://x.test/token
`,
			wantErr: "client_id",
		},
		{
			name: "backoff base above cap",
			yaml: `
server:
  base_url: https://x.test
auth:
  static_token: x
realtime:
  backoff_base: 60000
  backoff_cap: 30000
`,
			wantErr: "backoff_base",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.yaml)
			_, err := LoadFromFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServerConfig_WebSocketURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{base: "https://platform.example.test", want: "wss://platform.example.test"},
		{base: "http://localhost:8080/", want: "ws://localhost:8080"},
	}

	for _, tt := range tests {
		cfg := ServerConfig{BaseURL: tt.base}
		assert.Equal(t, tt.want, cfg.WebSocketURL())
	}
}
