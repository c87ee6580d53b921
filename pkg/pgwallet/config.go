package pgwallet

import (
	"encoding/json"
	"fmt"
)

// Config is the relational backend's JSON configuration (spec §6).
type Config struct {
	URL                   string `json:"url"`
	MaxConnections        int32  `json:"max_connections"`
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds"`
}

func (c Config) withDefaults() Config {
	if c.MaxConnections <= 0 {
		c.MaxConnections = 10
	}
	if c.ConnectTimeoutSeconds <= 0 {
		c.ConnectTimeoutSeconds = 10
	}
	return c
}

// Credentials is the relational backend's JSON credential payload. A
// non-admin account is used at open; admin credentials bootstrap
// create_storage/delete_storage, which issue CREATE DATABASE/DROP
// DATABASE against the server's maintenance database (spec §4.4, §6).
type Credentials struct {
	Account       string `json:"account"`
	Password      string `json:"password"`
	AdminAccount  string `json:"admin_account"`
	AdminPassword string `json:"admin_password"`
}

func parseConfig(raw []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("malformed relational config: %w", err)
	}
	if cfg.URL == "" {
		return Config{}, fmt.Errorf("relational config requires a non-empty url")
	}
	return cfg.withDefaults(), nil
}

func parseCredentials(raw []byte) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("malformed relational credentials: %w", err)
	}
	return creds, nil
}
