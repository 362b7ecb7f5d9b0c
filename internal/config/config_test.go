package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
http_listen: 127.0.0.1:6000
chat:
  turing:
    user_id: u1
    api_key: k1
dst_servers:
  - name: alpha
    ip: 10.0.0.1
  - name: alphabeta
    ip: 10.0.0.2
    port: 5900
    rcon:
      address: 10.0.0.2:25575
      password: secret
database:
  driver: sqlite
  dsn: data/audit.db
log:
  file: logs/dstbot.log
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6000", cfg.HttpListen)
	assert.Equal(t, "http://127.0.0.1:5700", cfg.HttpRemote)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, ProviderTuring, cfg.Chat.Provider)
	assert.Equal(t, DefaultTuringURL, cfg.Chat.Turing.URL)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NotNil(t, cfg.Log.Console)
	assert.True(t, *cfg.Log.Console)

	require.Len(t, cfg.DstServers, 2)
	assert.Equal(t, "alpha", cfg.DstServers[0].Name)
	assert.Equal(t, DefaultControlPort, cfg.DstServers[0].Port)
	assert.Equal(t, "alphabeta", cfg.DstServers[1].Name)
	assert.Equal(t, 5900, cfg.DstServers[1].Port)
	require.NotNil(t, cfg.DstServers[1].Rcon)
	assert.Equal(t, "secret", cfg.DstServers[1].Rcon.Password)
}

func TestParseRequestTimeout(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig + "request_timeout: 3s\n"))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing turing credentials", "dst_servers: []\n"},
		{"duplicate server", `
chat: {turing: {user_id: u, api_key: k}}
dst_servers:
  - {name: a, ip: 1.1.1.1}
  - {name: a, ip: 1.1.1.2}
`},
		{"empty ip", `
chat: {turing: {user_id: u, api_key: k}}
dst_servers:
  - {name: a}
`},
		{"bad rcon address", `
chat: {turing: {user_id: u, api_key: k}}
dst_servers:
  - {name: a, ip: 1.1.1.1, rcon: {address: nope, password: x}}
`},
		{"unknown provider", "chat: {provider: eliza}\n"},
		{"openai without model", "chat: {provider: openai, openai: {base_url: http://x}}\n"},
		{"postgres without dsn", `
chat: {turing: {user_id: u, api_key: k}}
database: {driver: postgres}
`},
		{"unknown driver", `
chat: {turing: {user_id: u, api_key: k}}
database: {driver: mongo}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("dst_servers: [\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestRequiredDirs(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, []string{"logs", "data"}, cfg.RequiredDirs())

	cfg.Log.File = "data/dstbot.log"
	assert.Equal(t, []string{"data"}, cfg.RequiredDirs())

	cfg.Database.DSN = ":memory:"
	cfg.Log.File = ""
	assert.Empty(t, cfg.RequiredDirs())
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	cfg.Log.File = filepath.Join(root, "logs", "bot.log")
	cfg.Database.DSN = filepath.Join(root, "data", "audit.db")

	require.NoError(t, cfg.EnsureDirs())
	for _, dir := range []string{"logs", "data"} {
		st, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err)
		assert.True(t, st.IsDir())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
