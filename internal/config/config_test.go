package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/okx_trade_hook/internal/config"
)

func TestLoadValidConfig(t *testing.T) {
	yaml := `
server:
  host: 127.0.0.1
  port: 9000
  ip_white_list: ["52.89.214.238"]
monitor:
  interval_ms: 500
storage:
  path: /tmp/records.db
logging:
  level: debug
accounts:
  - name: main
    api_key: key-1
    api_secret: secret-1
    passphrase: pass-1
    simulated: true
  - name: second
    api_key: key-2
    api_secret: secret-2
    passphrase: pass-2
`
	cfg, err := config.LoadFromBytes([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"52.89.214.238"}, cfg.Server.IPWhiteList)
	assert.Equal(t, 500, cfg.Monitor.IntervalMs)
	assert.Equal(t, "/tmp/records.db", cfg.Storage.Path)
	require.Len(t, cfg.Accounts, 2)
	assert.True(t, cfg.Accounts[0].Simulated)
	assert.False(t, cfg.Accounts[1].Simulated)
}

func TestLoadAppliesDefaults(t *testing.T) {
	yaml := `
accounts:
  - name: main
    api_key: key-1
    api_secret: secret-1
    passphrase: pass-1
`
	cfg, err := config.LoadFromBytes([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Monitor.IntervalMs)
	assert.Equal(t, "symbol_info.db", cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadRejectsNoAccounts(t *testing.T) {
	_, err := config.LoadFromBytes([]byte(`server: {port: 8080}`))
	assert.Error(t, err)
}

func TestLoadRejectsDuplicateAPIKeys(t *testing.T) {
	yaml := `
accounts:
  - {name: a, api_key: same, api_secret: s1, passphrase: p1}
  - {name: b, api_key: same, api_secret: s2, passphrase: p2}
`
	_, err := config.LoadFromBytes([]byte(yaml))
	assert.ErrorContains(t, err, "duplicate api_key")
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_OKX_SECRET", "from-env")
	yaml := `
accounts:
  - name: main
    api_key: key-1
    api_secret: ${TEST_OKX_SECRET}
    passphrase: pass-1
`
	cfg, err := config.LoadFromBytes([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Accounts[0].APISecret)
}
