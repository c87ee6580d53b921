/*
Package security provides the cryptographic building blocks the wallet
backends layer on top of: AES-256-GCM sealing for at-rest record values,
and client TLS configuration for the remote backend's optional mTLS
transport hardening.

# Architecture

	┌───────────────────────── security ─────────────────────────┐
	│                                                              │
	│  ┌────────────────────┐        ┌───────────────────────┐   │
	│  │   SecretsManager    │        │  LoadClientTLSConfig   │   │
	│  │  - AES-256-GCM      │        │  - client cert/key     │   │
	│  │  - Seal / Open      │        │  - optional CA pool    │   │
	│  └──────────┬─────────┘        └───────────┬───────────┘   │
	│             │ used by                       │ used by        │
	│             ▼                               ▼                │
	│      pkg/filewallet                   pkg/remotewallet       │
	└──────────────────────────────────────────────────────────────┘

# Secrets

SecretsManager encrypts and decrypts byte blobs with AES-256-GCM given a
caller-supplied 32-byte key. The key travels in from the wallet's
Credentials at open time; this package never derives or stores a key on
its own. The nonce is generated per call and prepended to the returned
ciphertext, so Open needs only the key and the sealed blob.

# Client TLS

LoadClientTLSConfig builds a *tls.Config from a client certificate/key
pair and an optional CA bundle, for the remote backend's outbound HTTP
client. It performs no certificate issuance, rotation, or lifecycle
management; those concerns belong to whatever operates the wallet
server, not the client library.
*/
package security
