package config

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	authorityAddr = "0x00000000000000000000000000000000000000ad"
	accountAddr   = "0x00000000000000000000000000000000000000aa"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Ledger.Authority = authorityAddr
	cfg.Ledger.Account = accountAddr
	return cfg
}

func TestValidateDefaultsWithAddresses(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsBadAddresses(t *testing.T) {
	cfg := validConfig()
	cfg.Ledger.Authority = "not-an-address"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "authority") {
		t.Errorf("expected authority error, got %v", err)
	}

	cfg = validConfig()
	cfg.Ledger.Account = cfg.Ledger.Authority
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "distinct") {
		t.Errorf("expected distinct-address error, got %v", err)
	}
}

func TestValidatePerMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "archive"
	cfg.S3.Bucket = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "bucket") {
		t.Errorf("expected bucket error, got %v", err)
	}

	// Archive mode does not need postgres.
	cfg = validConfig()
	cfg.Mode = "archive"
	cfg.Postgres.Host = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("archive mode should not validate postgres: %v", err)
	}

	cfg = validConfig()
	cfg.Mode = "index"
	cfg.Redis.Addr = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "redis") {
		t.Errorf("expected redis error, got %v", err)
	}

	cfg = validConfig()
	cfg.Mode = "turbo"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "mode") {
		t.Errorf("expected mode error, got %v", err)
	}
}

func TestListingFee(t *testing.T) {
	cfg := validConfig()
	fee, err := cfg.ListingFee()
	if err != nil {
		t.Fatalf("ListingFee: %v", err)
	}
	want, _ := new(big.Int).SetString("25000000000000000", 10)
	if fee.Cmp(want) != 0 {
		t.Errorf("default fee %s, want %s", fee, want)
	}

	for _, bad := range []string{"", "abc", "-1", "0.5"} {
		cfg.Ledger.ListingFeeWei = bad
		if _, err := cfg.ListingFee(); err == nil {
			t.Errorf("fee %q: expected error", bad)
		}
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "full"
log_level = "debug"

[ledger]
authority = "` + authorityAddr + `"
account = "` + accountAddr + `"
listing_fee_wei = "1000"

[indexer]
poll_interval = "500ms"

[archiver]
prefix = "segments"
interval = "1m"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MARKETD_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("MARKETD_MODE", "index")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "index" {
		t.Errorf("env override lost: mode %q", cfg.Mode)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("env override lost: redis addr %q", cfg.Redis.Addr)
	}
	if cfg.Ledger.ListingFeeWei != "1000" {
		t.Errorf("file value lost: fee %q", cfg.Ledger.ListingFeeWei)
	}
	if cfg.Indexer.PollInterval.Duration != 500*time.Millisecond {
		t.Errorf("poll interval %s", cfg.Indexer.PollInterval.Duration)
	}
	if cfg.Archiver.Prefix != "segments" {
		t.Errorf("archiver prefix %q", cfg.Archiver.Prefix)
	}
	// Untouched sections keep their defaults.
	if cfg.Postgres.Port != 5432 {
		t.Errorf("default lost: postgres port %d", cfg.Postgres.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
