package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSelfSignedPair(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "wallet-client-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("CreateCertificate() error = %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey() error = %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	certFile = filepath.Join(dir, "client.crt")
	keyFile = filepath.Join(dir, "client.key")
	if err := os.WriteFile(certFile, certPEM, 0600); err != nil {
		t.Fatalf("WriteFile(cert) error = %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0600); err != nil {
		t.Fatalf("WriteFile(key) error = %v", err)
	}
	return certFile, keyFile
}

func TestLoadClientTLSConfig(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSignedPair(t, dir)

	tlsConfig, err := LoadClientTLSConfig(ClientTLSConfig{CertFile: certFile, KeyFile: keyFile})
	if err != nil {
		t.Fatalf("LoadClientTLSConfig() error = %v", err)
	}
	if len(tlsConfig.Certificates) != 1 {
		t.Fatalf("expected one certificate, got %d", len(tlsConfig.Certificates))
	}
	if tlsConfig.RootCAs != nil {
		t.Error("RootCAs should be nil without a ca_file")
	}
}

func TestLoadClientTLSConfigWithCA(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSignedPair(t, dir)
	caPEM, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	caFile := filepath.Join(dir, "ca.crt")
	if err := os.WriteFile(caFile, caPEM, 0600); err != nil {
		t.Fatalf("WriteFile(ca) error = %v", err)
	}

	tlsConfig, err := LoadClientTLSConfig(ClientTLSConfig{CertFile: certFile, KeyFile: keyFile, CAFile: caFile})
	if err != nil {
		t.Fatalf("LoadClientTLSConfig() error = %v", err)
	}
	if tlsConfig.RootCAs == nil {
		t.Error("expected RootCAs to be populated")
	}
}

func TestLoadClientTLSConfigMissingFields(t *testing.T) {
	if _, err := LoadClientTLSConfig(ClientTLSConfig{}); err == nil {
		t.Error("expected error for missing cert_file/key_file")
	}
}

func TestLoadClientTLSConfigBadCAFile(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSignedPair(t, dir)
	caFile := filepath.Join(dir, "ca.crt")
	if err := os.WriteFile(caFile, []byte("not a cert"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := LoadClientTLSConfig(ClientTLSConfig{CertFile: certFile, KeyFile: keyFile, CAFile: caFile}); err == nil {
		t.Error("expected error for malformed ca_file")
	}
}
