package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/pubsub-relay/pkg/relay"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Precedence(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
gateway:
  listen_addr: ":9000"
logging:
  level: warn
node:
  enabled: false
  data_dir: `+dataDir+`
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg, used, err := loadConfig([]string{"-config", path}, envMap(nil))
		require.NoError(t, err)
		assert.Equal(t, path, used)
		assert.Equal(t, ":9000", cfg.Gateway.ListenAddr)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Node.Enabled)
		assert.Equal(t, 1000, cfg.Relay.Limits.MaxQueueLength)
	})

	t.Run("env over file", func(t *testing.T) {
		cfg, _, err := loadConfig([]string{"-config", path}, envMap(map[string]string{
			"RELAY_GATEWAY_ADDR": ":9100",
			"RELAY_LOG_LEVEL":    "debug",
		}))
		require.NoError(t, err)
		assert.Equal(t, ":9100", cfg.Gateway.ListenAddr)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("flag over env", func(t *testing.T) {
		cfg, _, err := loadConfig([]string{"-config", path, "-addr", ":9200"}, envMap(map[string]string{
			"RELAY_GATEWAY_ADDR": ":9100",
		}))
		require.NoError(t, err)
		assert.Equal(t, ":9200", cfg.Gateway.ListenAddr)
	})

	t.Run("config path from env", func(t *testing.T) {
		cfg, used, err := loadConfig(nil, envMap(map[string]string{"RELAY_CONFIG": path}))
		require.NoError(t, err)
		assert.Equal(t, path, used)
		assert.Equal(t, ":9000", cfg.Gateway.ListenAddr)
	})
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("explicit file missing", func(t *testing.T) {
		_, _, err := loadConfig([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}, envMap(nil))
		assert.Error(t, err)
	})

	t.Run("unknown yaml key", func(t *testing.T) {
		path := writeConfig(t, "bogus: 1\n")
		_, _, err := loadConfig([]string{"-config", path}, envMap(nil))
		assert.Error(t, err)
	})

	t.Run("bad boolean", func(t *testing.T) {
		path := writeConfig(t, "node:\n  enabled: false\n")
		_, _, err := loadConfig([]string{"-config", path}, envMap(map[string]string{"RELAY_NODE_ENABLED": "maybe"}))
		assert.ErrorContains(t, err, "RELAY_NODE_ENABLED")
	})

	t.Run("validation failure", func(t *testing.T) {
		path := writeConfig(t, "node:\n  enabled: false\n")
		_, _, err := loadConfig([]string{"-config", path, "-log-level", "loud"}, envMap(nil))
		assert.ErrorContains(t, err, "invalid configuration")
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, _, err := loadConfig([]string{"-nope"}, envMap(nil))
		assert.Error(t, err)
	})
}

func TestLoadConfig_Lists(t *testing.T) {
	path := writeConfig(t, "node:\n  enabled: false\n")
	cfg, _, err := loadConfig([]string{"-config", path, "-olric-servers", " a:3320, ,b:3320 "}, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"a:3320", "b:3320"}, cfg.Filter.OlricServers)
}

func TestRelayOptions(t *testing.T) {
	path := writeConfig(t, "node:\n  enabled: false\n")
	cfg, _, err := loadConfig([]string{"-config", path}, envMap(nil))
	require.NoError(t, err)

	opts, err := relayOptions(cfg.Relay)
	require.NoError(t, err)
	assert.Equal(t, []relay.QueuePolicy{relay.PolicyDropOld, relay.PolicyDropNew}, opts.Limits.AllowedQueuePolicies)
	assert.Equal(t, relay.PolicyDropOld, opts.Defaults.QueuePolicy)
	assert.Equal(t, 3600, opts.Defaults.TimeoutSeconds)

	svc, err := relay.NewService(opts)
	require.NoError(t, err)
	svc.Close()

	cfg.Relay.Defaults.QueuePolicy = "fifo"
	_, err = relayOptions(cfg.Relay)
	assert.Error(t, err)
}

func TestNewHintStore_Memory(t *testing.T) {
	path := writeConfig(t, "node:\n  enabled: false\n")
	cfg, _, err := loadConfig([]string{"-config", path}, envMap(nil))
	require.NoError(t, err)

	store, err := newHintStore(cfg.Filter, nil)
	require.NoError(t, err)
	assert.NotNil(t, store)
}
