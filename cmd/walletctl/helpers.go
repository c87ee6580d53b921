package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/cuemby/walletstore/pkg/record"
	"github.com/cuemby/walletstore/pkg/storage"
	"github.com/spf13/cobra"
)

func storageBackends() []string {
	return storage.Backends()
}

// rootFlags pulls the persistent --backend/--wallet-id/--config/--creds
// flags shared by every subcommand that touches a wallet.
func rootFlags(cmd *cobra.Command) (backend, walletID string, configRaw, credsRaw []byte, err error) {
	backend, _ = cmd.Flags().GetString("backend")
	walletID, _ = cmd.Flags().GetString("wallet-id")
	if walletID == "" {
		return "", "", nil, nil, fmt.Errorf("--wallet-id is required")
	}
	configPath, _ := cmd.Flags().GetString("config")
	credsPath, _ := cmd.Flags().GetString("creds")

	if configPath != "" {
		configRaw, err = os.ReadFile(configPath)
		if err != nil {
			return "", "", nil, nil, fmt.Errorf("reading --config: %w", err)
		}
	}
	if credsPath != "" {
		credsRaw, err = os.ReadFile(credsPath)
		if err != nil {
			return "", "", nil, nil, fmt.Errorf("reading --creds: %w", err)
		}
	}
	return backend, walletID, configRaw, credsRaw, nil
}

// openStore opens the wallet named by the command's persistent flags.
func openStore(ctx context.Context, cmd *cobra.Command) (storage.Store, error) {
	backend, walletID, configRaw, credsRaw, err := rootFlags(cmd)
	if err != nil {
		return nil, err
	}
	return storage.OpenStorage(ctx, backend, walletID, configRaw, credsRaw)
}

// parseTagFlags turns repeated --tag NAME=VALUE flags into record.Tag
// values. A name prefixed with "~" builds a plaintext tag (queryable with
// string operators); anything else builds an encrypted tag, with value
// taken as raw bytes of the flag's right-hand side.
func parseTagFlags(raw []string) ([]record.Tag, error) {
	tags := make([]record.Tag, 0, len(raw))
	for _, kv := range raw {
		idx := strings.Index(kv, "=")
		if idx < 0 {
			return nil, fmt.Errorf("malformed --tag %q, want NAME=VALUE", kv)
		}
		name, value := kv[:idx], kv[idx+1:]
		if strings.HasPrefix(name, "~") {
			tags = append(tags, record.PlaintextTag([]byte(name[1:]), value))
		} else {
			tags = append(tags, record.EncryptedTag([]byte(name), []byte(value)))
		}
	}
	return tags, nil
}

// parseTagNameFlags turns repeated --tag-name [~]NAME flags into the
// record.TagName values DeleteTags expects.
func parseTagNameFlags(raw []string) []record.TagName {
	names := make([]record.TagName, 0, len(raw))
	for _, name := range raw {
		if strings.HasPrefix(name, "~") {
			names = append(names, record.TagName{Kind: record.TagPlaintext, Name: []byte(name[1:])})
		} else {
			names = append(names, record.TagName{Kind: record.TagEncrypted, Name: []byte(name)})
		}
	}
	return names
}

func printTags(tags []record.Tag) {
	for _, t := range tags {
		switch t.Kind {
		case record.TagPlaintext:
			fmt.Printf("  ~%s = %s\n", t.Name, t.PlainValue)
		default:
			fmt.Printf("  %s = %s (encrypted)\n", t.Name, base64.StdEncoding.EncodeToString(t.Value))
		}
	}
}

func printRecord(r *record.Record) {
	fmt.Printf("Type: %s\n", r.Type)
	fmt.Printf("ID:   %s\n", r.ID)
	if r.Value != nil {
		fmt.Printf("Value: %s\n", base64.StdEncoding.EncodeToString(r.Value.ToBytes()))
	}
	if len(r.Tags) > 0 {
		fmt.Println("Tags:")
		printTags(r.Tags)
	}
}
