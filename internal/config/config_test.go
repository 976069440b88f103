package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigPath(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		envValue string
		want     string
	}{
		{"flag takes precedence", "/path/from/flag", "/path/from/env", "/path/from/flag"},
		{"env when no flag", "", "/path/from/env", "/path/from/env"},
		{"empty when neither", "", "", ""},
		{"whitespace flag", "  ", "/path/from/env", "/path/from/env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORTAL_CONFIG", tt.envValue)
			got := ResolveConfigPath(tt.flag)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadDefaultRejectsMissingRPCAndAggregatorURLs(t *testing.T) {
	// A deployment with no configured rpc_urls or aggregator_urls cannot
	// serve anything; defaults alone must not silently pass validation.
	_, err := Load("")
	assert.Error(t, err)
}

const minimalValidConfig = `
chain:
  network: testnet
  rpc_urls:
    - url: "https://rpc.testnet.example/v1"
      retries: 2
aggregator:
  urls:
    - "https://aggregator.example"
domain:
  portal_domain: "wal.app"
`

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test-config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalValidConfig), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8443, cfg.Server.Port)
	assert.Equal(t, "testnet", cfg.Chain.Network)
	require.Len(t, cfg.Chain.RPCURLs, 1)
	assert.Equal(t, "https://rpc.testnet.example/v1", cfg.Chain.RPCURLs[0].URL)
	assert.Equal(t, 2, cfg.Chain.RPCURLs[0].Retries)
	assert.Equal(t, 7000, cfg.Chain.RequestTimeoutMS)
	assert.Equal(t, 3, cfg.Aggregator.Attempts)
	assert.Equal(t, 1000, cfg.Aggregator.RetryDelayMS)
	assert.Equal(t, "24h", cfg.Cache.TTL)
	assert.True(t, cfg.Domain.B36DomainResolution)
	assert.Equal(t, "wal.app", cfg.Domain.PortalDomain)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path/to/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: [invalid"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestNormalizeInvalidPort(t *testing.T) {
	content := minimalValidConfig + "\nserver:\n  port: 0\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestNormalizeRejectsUnknownNetwork(t *testing.T) {
	content := `
chain:
  network: devnet
  rpc_urls:
    - url: "https://rpc.example"
aggregator:
  urls:
    - "https://aggregator.example"
domain:
  portal_domain: "wal.app"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestNormalizeRequiresPortalDomainUnlessBringYourOwn(t *testing.T) {
	content := `
chain:
  network: mainnet
  rpc_urls:
    - url: "https://rpc.example"
aggregator:
  urls:
    - "https://aggregator.example"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	assert.Error(t, err)

	content += "\ndomain:\n  bring_your_own_domain: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	_, err = Load(path)
	assert.NoError(t, err)
}

func TestNormalizeRejectsUnknownListBackend(t *testing.T) {
	content := minimalValidConfig + "\nblocklist:\n  enabled: true\n  backend: carrier-pigeon\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORTAL_SERVER_HOST", "192.168.1.1")
	t.Setenv("PORTAL_SERVER_PORT", "9443")
	t.Setenv("PORTAL_CHAIN_NETWORK", "testnet")
	t.Setenv("PORTAL_CHAIN_RPC_URLS", "https://a.example, https://b.example")
	t.Setenv("PORTAL_AGGREGATOR_URLS", "https://agg.example")
	t.Setenv("PORTAL_DOMAIN_PORTAL_DOMAIN", "wal.app")
	t.Setenv("PORTAL_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.1", cfg.Server.Host)
	assert.Equal(t, 9443, cfg.Server.Port)
	assert.Equal(t, "testnet", cfg.Chain.Network)
	require.Len(t, cfg.Chain.RPCURLs, 2)
	assert.Equal(t, "https://a.example", cfg.Chain.RPCURLs[0].URL)
	assert.Equal(t, []string{"https://agg.example"}, cfg.Aggregator.URLs)
	assert.Equal(t, "wal.app", cfg.Domain.PortalDomain)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}
