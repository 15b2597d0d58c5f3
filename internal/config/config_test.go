package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/dealbase.db", cfg.Store.DatabasePath)
	assert.Equal(t, 10, cfg.Parser.HeaderScanRows)
	assert.InDelta(t, 0.055, cfg.Valuation.DefaultCapRate, 0.0001)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"empty database path", func(c *Config) { c.Store.DatabasePath = "" }},
		{"zero retries", func(c *Config) { c.Store.MaxRetries = 0 }},
		{"zero header scan rows", func(c *Config) { c.Parser.HeaderScanRows = 0 }},
		{"keyword ratio at 1", func(c *Config) { c.Parser.HeaderKeywordRatio = 1 }},
		{"negative cap rate", func(c *Config) { c.Valuation.DefaultCapRate = -0.01 }},
		{"zero hold period", func(c *Config) { c.Valuation.DefaultHoldPeriodYears = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestMergeEnvWins(t *testing.T) {
	fileCfg := Default()
	fileCfg.Server.Port = 9090
	fileCfg.Store.DatabasePath = "file.db"

	envCfg := Default()
	envCfg.Server.Port = 8081
	envCfg.Store.DatabasePath = ""

	merged := merge(*fileCfg, *envCfg)
	assert.Equal(t, 8081, merged.Server.Port)
	assert.Equal(t, "file.db", merged.Store.DatabasePath)
}
