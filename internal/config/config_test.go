package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultTreasury, cfg.Treasury)
	assert.Equal(t, uint64(DefaultListingFeeLamports), cfg.ListingFeeLamports)
	assert.Equal(t, uint64(DefaultMarketFeeBps), cfg.MarketFeeBps)
	assert.Equal(t, DefaultEventBufferSize, cfg.EventBufferSize)
	assert.False(t, cfg.TreasuryKey().IsZero())
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{
		"listen_addr": ":9090",
		"listing_fee_lamports": 20000000,
		"market_fee_bps": 250,
		"debug_logging": true
	}`))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, uint64(20_000_000), cfg.ListingFeeLamports)
	assert.Equal(t, uint64(250), cfg.MarketFeeBps)
	assert.True(t, cfg.DebugLogging)
}

func TestLoadConfigRejectsBadTreasury(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{"treasury": "not-a-key"}`))
	assert.ErrorContains(t, err, "treasury")
}

func TestLoadConfigRejectsExcessiveFee(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{"market_fee_bps": 10001}`))
	assert.ErrorContains(t, err, "market_fee_bps")
}

func TestLoadConfigRejectsBadBufferSize(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `{"event_buffer_size": 0}`))
	assert.ErrorContains(t, err, "event_buffer_size")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestEnvironmentOverridesTreasury(t *testing.T) {
	override := "Sysvar1111111111111111111111111111111111111"
	t.Setenv("LAUNCHPAD_TREASURY", override)

	cfg, err := LoadConfig(writeConfig(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, override, cfg.Treasury)
}
