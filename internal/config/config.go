// Package config defines the top-level configuration for the marketplace
// ledger daemon and provides validation helpers.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MARKETD_* environment
// variables.
type Config struct {
	Ledger   LedgerConfig   `toml:"ledger"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Indexer  IndexerConfig  `toml:"indexer"`
	Archiver ArchiverConfig `toml:"archiver"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// LedgerConfig holds the ledger's genesis parameters.
type LedgerConfig struct {
	// Authority is the deploying authority's address: the only account that
	// may change the listing fee, and the recipient of disbursed fees.
	Authority string `toml:"authority"`

	// Account is the ledger's own custody address, the holder of escrowed
	// items.
	Account string `toml:"account"`

	// ListingFeeWei is the initial listing fee as a base-10 integer string.
	ListingFeeWei string `toml:"listing_fee_wei"`
}

// PostgresConfig holds PostgreSQL connection parameters for the index stores.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the URI cache.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for journal
// archives.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// IndexerConfig controls the journal-to-postgres mirror.
type IndexerConfig struct {
	PollInterval duration `toml:"poll_interval"`
}

// ArchiverConfig controls journal archival to object storage.
type ArchiverConfig struct {
	Prefix   string   `toml:"prefix"`
	Interval duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in default configuration.
func Defaults() Config {
	return Config{
		Ledger: LedgerConfig{
			ListingFeeWei: "25000000000000000", // 0.025 ether
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "marketd",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "marketd-journal",
			ForcePathStyle: true,
		},
		Indexer: IndexerConfig{
			PollInterval: duration{2 * time.Second},
		},
		Archiver: ArchiverConfig{
			Prefix:   "journal",
			Interval: duration{15 * time.Minute},
		},
		Mode:     "index",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"index":   true,
	"archive": true,
	"full":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ListingFee parses the configured listing fee.
func (c *Config) ListingFee() (*big.Int, error) {
	fee, ok := new(big.Int).SetString(c.Ledger.ListingFeeWei, 10)
	if !ok || fee.Sign() < 0 {
		return nil, fmt.Errorf("config: ledger.listing_fee_wei %q is not a non-negative integer", c.Ledger.ListingFeeWei)
	}
	return fee, nil
}

// Validate checks the configuration for the selected mode and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: index, archive, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if !common.IsHexAddress(c.Ledger.Authority) {
		errs = append(errs, fmt.Sprintf("ledger: authority %q is not a valid address", c.Ledger.Authority))
	}
	if !common.IsHexAddress(c.Ledger.Account) {
		errs = append(errs, fmt.Sprintf("ledger: account %q is not a valid address", c.Ledger.Account))
	}
	if common.IsHexAddress(c.Ledger.Authority) && common.IsHexAddress(c.Ledger.Account) &&
		common.HexToAddress(c.Ledger.Authority) == common.HexToAddress(c.Ledger.Account) {
		errs = append(errs, "ledger: authority and account must be distinct addresses")
	}
	if _, err := c.ListingFee(); err != nil {
		errs = append(errs, err.Error())
	}

	mode := strings.ToLower(c.Mode)

	if mode == "index" || mode == "full" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port %d is out of range", c.Postgres.Port))
			}
		}
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Indexer.PollInterval.Duration <= 0 {
			errs = append(errs, "indexer: poll_interval must be positive")
		}
	}

	if mode == "archive" || mode == "full" {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if c.Archiver.Interval.Duration <= 0 {
			errs = append(errs, "archiver: interval must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Authority returns the parsed deploying-authority address. Call Validate
// first.
func (c *Config) Authority() common.Address {
	return common.HexToAddress(c.Ledger.Authority)
}

// Account returns the parsed ledger custody address. Call Validate first.
func (c *Config) Account() common.Address {
	return common.HexToAddress(c.Ledger.Account)
}
