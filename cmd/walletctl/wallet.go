package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cuemby/walletstore/pkg/storage"
	"github.com/spf13/cobra"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Create, open-check and delete wallets",
}

var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, walletID, configRaw, credsRaw, err := rootFlags(cmd)
		if err != nil {
			return err
		}
		metadataPath, _ := cmd.Flags().GetString("metadata")
		var metadataRaw []byte
		if metadataPath != "" {
			metadataRaw, err = os.ReadFile(metadataPath)
			if err != nil {
				return fmt.Errorf("reading --metadata: %w", err)
			}
		}

		if err := storage.CreateStorage(context.Background(), backend, walletID, configRaw, credsRaw, metadataRaw); err != nil {
			return fmt.Errorf("create wallet: %w", err)
		}
		fmt.Printf("✓ Wallet created: %s (%s)\n", walletID, backend)
		return nil
	},
}

var walletOpenCmd = &cobra.Command{
	Use:   "open-check",
	Short: "Open a wallet and report success, then close it",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(context.Background(), cmd)
		if err != nil {
			return fmt.Errorf("open wallet: %w", err)
		}
		defer store.Close()
		fmt.Println("✓ Wallet opened successfully")
		return nil
	},
}

var walletDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, walletID, configRaw, credsRaw, err := rootFlags(cmd)
		if err != nil {
			return err
		}
		if err := storage.DeleteStorage(context.Background(), backend, walletID, configRaw, credsRaw); err != nil {
			return fmt.Errorf("delete wallet: %w", err)
		}
		fmt.Printf("✓ Wallet deleted: %s\n", walletID)
		return nil
	},
}

func init() {
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletOpenCmd)
	walletCmd.AddCommand(walletDeleteCmd)

	walletCreateCmd.Flags().String("metadata", "", "Path to a file whose bytes seed the wallet's metadata slot")
}
