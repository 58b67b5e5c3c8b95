package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.RPCList)
	assert.Equal(t, DefaultProgramID, cfg.ProgramID)
	assert.Equal(t, DefaultAMMProgramID, cfg.AMMProgramID)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultConfirmTimeout, cfg.ConfirmTimeout)
	assert.Equal(t, uint32(DefaultComputeUnits), cfg.ComputeUnits)
	assert.Equal(t, uint64(DefaultComputePrice), cfg.ComputePrice)
	assert.Equal(t, "confirmed", string(cfg.CommitmentType()))
	assert.Equal(t, DefaultProgramID, cfg.Program().String())
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
rpc_list:
  - https://rpc-a.example.com
  - " https://rpc-b.example.com "
program_id: "TokenkegQfeYyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
commitment: finalized
poll_interval: 250ms
confirm_timeout: 30s
skip_preflight: true
swap_presets:
  sol-usdc:
    serum_market: 9wFFyRfZBsuAha4YcuxcXLKwMxJR43S7fPfQLusDBzvT
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://rpc-a.example.com", "https://rpc-b.example.com"}, cfg.RPCList)
	assert.Equal(t, "TokenkegQfeYyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", cfg.ProgramID)
	assert.Equal(t, "finalized", cfg.Commitment)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.ConfirmTimeout)
	assert.True(t, cfg.SkipPreflight)
	assert.Equal(t, "9wFFyRfZBsuAha4YcuxcXLKwMxJR43S7fPfQLusDBzvT", cfg.SwapPresets["sol-usdc"]["serum_market"])
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("MIDDLEWARE_RPC_LIST", "https://one.example.com, https://two.example.com")
	t.Setenv("MIDDLEWARE_CONFIRM_TIMEOUT", "5s")
	t.Setenv("MIDDLEWARE_KEYPAIR", "/tmp/id.json")
	t.Setenv("MIDDLEWARE_SKIP_PREFLIGHT", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://one.example.com", "https://two.example.com"}, cfg.RPCList)
	assert.Equal(t, 5*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, "/tmp/id.json", cfg.Keypair)
	assert.True(t, cfg.SkipPreflight)
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		return &Config{
			RPCList:        []string{"https://rpc.example.com"},
			ProgramID:      DefaultProgramID,
			Commitment:     DefaultCommitment,
			PollInterval:   time.Second,
			ConfirmTimeout: time.Minute,
		}
	}
	require.NoError(t, validateConfig(base()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty rpc list", func(c *Config) { c.RPCList = nil }},
		{"ws rpc", func(c *Config) { c.RPCList = []string{"wss://rpc.example.com"} }},
		{"bad program", func(c *Config) { c.ProgramID = "not-a-key" }},
		{"bad amm", func(c *Config) { c.AMMProgramID = "0" }},
		{"bad commitment", func(c *Config) { c.Commitment = "max" }},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }},
		{"timeout below poll", func(c *Config) { c.ConfirmTimeout = time.Millisecond }},
		{"units over max", func(c *Config) { c.ComputeUnits = 1_400_001 }},
		{"mysql dsn", func(c *Config) { c.PostgresURL = "mysql://db" }},
		{"empty preset", func(c *Config) { c.SwapPresets = map[string]map[string]string{"x": {}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}
