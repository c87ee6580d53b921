// Command walletctl is a CLI front end over the pkg/storage backend
// registry: wallet lifecycle (create/open/delete), record CRUD, tag
// mutation, metadata, and tag-query search, against whichever backend
// (relational, file, remote) the caller names.
package main

import (
	"fmt"
	"os"

	_ "github.com/cuemby/walletstore/pkg/filewallet"
	"github.com/cuemby/walletstore/pkg/log"
	_ "github.com/cuemby/walletstore/pkg/pgwallet"
	_ "github.com/cuemby/walletstore/pkg/remotewallet"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "walletctl",
	Short: "walletctl manages wallets across the relational, file and remote storage backends",
	Long: `walletctl is the operator CLI for the wallet store: it creates,
opens and deletes wallets, adds and queries encrypted records and their
tags, and manages the per-wallet metadata slot, against any backend
registered in pkg/storage.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"walletctl version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("backend", "file", "Storage backend: "+"relational, file, or remote")
	rootCmd.PersistentFlags().String("wallet-id", "", "Wallet identifier (required)")
	rootCmd.PersistentFlags().String("config", "", "Path to the backend's JSON config file")
	rootCmd.PersistentFlags().String("creds", "", "Path to the backend's JSON credentials file")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(backendsCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List registered storage backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range storageBackends() {
			fmt.Println(name)
		}
		return nil
	},
}
