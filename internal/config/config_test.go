package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "RPC_URL", "PREDICTION_MARKET_ADDRESS", "WINDOW_DAYS",
		"BLOCK_INTERVAL", "TOKEN_DECIMALS", "CACHE_TTL", "HEAD_TTL", "FETCH_TIMEOUT"} {
		t.Setenv(k, "")
	}

	c := Load()
	if c.Port != "8080" {
		t.Errorf("expected port 8080, got %s", c.Port)
	}
	if c.WindowDays != 30 || c.BlockInterval != 2*time.Second {
		t.Errorf("unexpected window %d days / %s", c.WindowDays, c.BlockInterval)
	}
	if c.Window() != 30*24*time.Hour {
		t.Errorf("unexpected horizon %s", c.Window())
	}
	if c.TokenDecimals != 6 {
		t.Errorf("expected 6 decimals, got %d", c.TokenDecimals)
	}
	if c.ContractAddress != "" {
		t.Errorf("expected empty contract, got %s", c.ContractAddress)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PREDICTION_MARKET_ADDRESS", "0x1111111111111111111111111111111111111111")
	t.Setenv("WINDOW_DAYS", "7")
	t.Setenv("BLOCK_INTERVAL", "12s")
	t.Setenv("TOKEN_DECIMALS", "18")

	c := Load()
	if c.Port != "9090" || c.WindowDays != 7 || c.BlockInterval != 12*time.Second || c.TokenDecimals != 18 {
		t.Errorf("overrides not applied: %+v", c)
	}
	if c.ContractAddress != "0x1111111111111111111111111111111111111111" {
		t.Errorf("unexpected contract %s", c.ContractAddress)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("WINDOW_DAYS", "thirty")
	t.Setenv("BLOCK_INTERVAL", "-2s")
	t.Setenv("FETCH_TIMEOUT", "soon")

	c := Load()
	if c.WindowDays != 30 {
		t.Errorf("expected fallback 30, got %d", c.WindowDays)
	}
	if c.BlockInterval != 2*time.Second {
		t.Errorf("expected fallback 2s, got %s", c.BlockInterval)
	}
	if c.FetchTimeout != 20*time.Second {
		t.Errorf("expected fallback 20s, got %s", c.FetchTimeout)
	}
}
