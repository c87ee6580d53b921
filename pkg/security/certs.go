package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ClientTLSConfig holds the file paths the remote backend's optional mTLS
// transport hardening loads from (spec §6 remote "tls" config block).
type ClientTLSConfig struct {
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
	CAFile   string `json:"ca_file"`
}

// LoadClientTLSConfig builds a *tls.Config for an outbound HTTP client
// from a client certificate/key pair and an optional CA bundle used to
// verify the server. CertFile/KeyFile are required; CAFile is optional
// and, if empty, the system root pool is used instead.
func LoadClientTLSConfig(cfg ClientTLSConfig) (*tls.Config, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("cert_file and key_file are both required")
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
	}

	if cfg.CAFile != "" {
		caPEM, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read ca_file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no certificates found in ca_file %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}
