package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/cuemby/walletstore/pkg/record"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Add, fetch, update and delete records",
}

func readValueFlag(cmd *cobra.Command) (record.EncryptedValue, error) {
	valuePath, _ := cmd.Flags().GetString("value-file")
	keyB64, _ := cmd.Flags().GetString("value-key")
	if valuePath == "" || keyB64 == "" {
		return record.EncryptedValue{}, fmt.Errorf("--value-file and --value-key are required")
	}
	data, err := os.ReadFile(valuePath)
	if err != nil {
		return record.EncryptedValue{}, fmt.Errorf("reading --value-file: %w", err)
	}
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return record.EncryptedValue{}, fmt.Errorf("decoding --value-key: %w", err)
	}
	return record.EncryptedValue{Key: key, Data: data}, nil
}

var recordAddCmd = &cobra.Command{
	Use:   "add TYPE ID",
	Short: "Add a new record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		value, err := readValueFlag(cmd)
		if err != nil {
			return err
		}
		tagFlags, _ := cmd.Flags().GetStringSlice("tag")
		tags, err := parseTagFlags(tagFlags)
		if err != nil {
			return err
		}

		if err := store.Add(cmd.Context(), []byte(args[0]), []byte(args[1]), value, tags); err != nil {
			return fmt.Errorf("add record: %w", err)
		}
		fmt.Printf("✓ Record added: %s/%s\n", args[0], args[1])
		return nil
	},
}

var recordUpdateCmd = &cobra.Command{
	Use:   "update TYPE ID",
	Short: "Replace an existing record's value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		value, err := readValueFlag(cmd)
		if err != nil {
			return err
		}
		if err := store.Update(cmd.Context(), []byte(args[0]), []byte(args[1]), value); err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		fmt.Printf("✓ Record updated: %s/%s\n", args[0], args[1])
		return nil
	},
}

var recordGetCmd = &cobra.Command{
	Use:   "get TYPE ID",
	Short: "Fetch a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		noValue, _ := cmd.Flags().GetBool("no-value")
		withTags, _ := cmd.Flags().GetBool("tags")
		withType, _ := cmd.Flags().GetBool("type")
		options := record.FetchOptions{
			RetrieveValue: !noValue,
			RetrieveTags:  withTags,
			RetrieveType:  withType,
		}

		r, err := store.Get(cmd.Context(), []byte(args[0]), []byte(args[1]), options)
		if err != nil {
			return fmt.Errorf("get record: %w", err)
		}
		printRecord(r)
		return nil
	},
}

var recordDeleteCmd = &cobra.Command{
	Use:   "delete TYPE ID",
	Short: "Delete a record and its tags",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), []byte(args[0]), []byte(args[1])); err != nil {
			return fmt.Errorf("delete record: %w", err)
		}
		fmt.Printf("✓ Record deleted: %s/%s\n", args[0], args[1])
		return nil
	},
}

var recordListAllCmd = &cobra.Command{
	Use:   "list-all",
	Short: "List every record in the wallet, regardless of type",
	Long: `list-all calls Store.GetAll rather than Store.Search: it spans
every record type in the wallet. The remote backend has no endpoint for
this and returns InvalidStructure (see DESIGN.md).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		withTags, _ := cmd.Flags().GetBool("tags")
		it, err := store.GetAll(cmd.Context(), record.FetchOptions{RetrieveValue: true, RetrieveTags: withTags, RetrieveType: true})
		if err != nil {
			return fmt.Errorf("list-all: %w", err)
		}
		defer it.Close()

		n := 0
		for it.Next(cmd.Context()) {
			fmt.Printf("--- record %d ---\n", n+1)
			printRecord(it.Record())
			n++
		}
		if err := it.Err(); err != nil {
			return fmt.Errorf("list-all: %w", err)
		}
		fmt.Printf("\n%d records\n", n)
		return nil
	},
}

func init() {
	recordCmd.AddCommand(recordAddCmd)
	recordCmd.AddCommand(recordUpdateCmd)
	recordCmd.AddCommand(recordGetCmd)
	recordCmd.AddCommand(recordDeleteCmd)
	recordCmd.AddCommand(recordListAllCmd)
	recordListAllCmd.Flags().Bool("tags", false, "Also retrieve each record's tags")

	for _, cmd := range []*cobra.Command{recordAddCmd, recordUpdateCmd} {
		cmd.Flags().String("value-file", "", "Path to the record's ciphertext data (required)")
		cmd.Flags().String("value-key", "", "Base64-encoded encryption key paired with the ciphertext (required)")
	}
	recordAddCmd.Flags().StringSlice("tag", nil, "Tag in NAME=VALUE form; prefix NAME with ~ for a plaintext tag")

	recordGetCmd.Flags().Bool("no-value", false, "Skip retrieving the record's value")
	recordGetCmd.Flags().Bool("tags", false, "Also retrieve the record's tags")
	recordGetCmd.Flags().Bool("type", false, "Also retrieve the record's type")
}
