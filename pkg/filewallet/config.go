package filewallet

import (
	"encoding/json"
	"fmt"
)

// Config is the local file backend's JSON configuration (spec §6).
type Config struct {
	// DataDir is the directory each wallet's <id>.walletdb file lives in.
	DataDir string `json:"data_dir"`
}

func parseConfig(raw []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("malformed file config: %w", err)
	}
	if cfg.DataDir == "" {
		return Config{}, fmt.Errorf("file config requires a non-empty data_dir")
	}
	return cfg, nil
}

// Credentials is the local file backend's JSON credential payload: the
// AES-256 key sealing every blob at rest (spec §4.7). Key derivation
// from a passphrase is outside this package's scope.
type Credentials struct {
	Key []byte `json:"key"`
}

func parseCredentials(raw []byte) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("malformed file credentials: %w", err)
	}
	if len(creds.Key) != 32 {
		return Credentials{}, fmt.Errorf("file credentials require a 32-byte key, got %d", len(creds.Key))
	}
	return creds, nil
}
