package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Get and set a wallet's metadata slot",
}

var metadataGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the wallet's metadata slot to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		data, err := store.GetStorageMetadata(cmd.Context())
		if err != nil {
			return fmt.Errorf("get metadata: %w", err)
		}
		os.Stdout.Write(data)
		return nil
	},
}

var metadataSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the wallet's metadata slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		path, _ := cmd.Flags().GetString("from-file")
		if path == "" {
			return fmt.Errorf("--from-file is required")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading --from-file: %w", err)
		}
		if err := store.SetStorageMetadata(cmd.Context(), data); err != nil {
			return fmt.Errorf("set metadata: %w", err)
		}
		fmt.Println("✓ Metadata updated")
		return nil
	},
}

func init() {
	metadataCmd.AddCommand(metadataGetCmd)
	metadataCmd.AddCommand(metadataSetCmd)

	metadataSetCmd.Flags().String("from-file", "", "Path to the new metadata bytes (required)")
}
