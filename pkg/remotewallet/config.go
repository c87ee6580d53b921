package remotewallet

import (
	"encoding/json"
	"fmt"

	"github.com/cuemby/walletstore/pkg/security"
)

// Config is the remote backend's JSON configuration (spec §6). Endpoint
// is the base URL every derived path in client.go is composed from.
// FreshnessSeconds, when positive, bounds how old a fetched record's
// server-reported creation time may be before Get reports it as absent
// (spec §4.5 "get_not_expired").
type Config struct {
	Endpoint         string               `json:"endpoint"`
	FreshnessSeconds int64                `json:"freshness_time"`
	TimeoutSeconds   int                  `json:"timeout_seconds"`
	TLS              *security.ClientTLSConfig `json:"tls,omitempty"`
}

func (c Config) withDefaults() Config {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	return c
}

// Credentials is the remote backend's JSON credential payload. VirtualWallet
// selects which subject-specific virtual wallet a call addresses; when
// empty the root wallet (the wallet id itself) is used (spec §4.5).
type Credentials struct {
	AuthToken     string `json:"auth_token"`
	VirtualWallet string `json:"virtual_wallet,omitempty"`
}

func parseConfig(raw []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("malformed remote config: %w", err)
	}
	if cfg.Endpoint == "" {
		return Config{}, fmt.Errorf("remote config requires a non-empty endpoint")
	}
	return cfg.withDefaults(), nil
}

func parseCredentials(raw []byte) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("malformed remote credentials: %w", err)
	}
	if creds.AuthToken == "" {
		return Credentials{}, fmt.Errorf("remote credentials require a non-empty auth_token")
	}
	return creds, nil
}
