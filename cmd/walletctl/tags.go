package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Add, replace and delete a record's tags",
}

var tagsAddCmd = &cobra.Command{
	Use:   "add TYPE ID",
	Short: "Merge tags into a record's existing tag set",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		tagFlags, _ := cmd.Flags().GetStringSlice("tag")
		tags, err := parseTagFlags(tagFlags)
		if err != nil {
			return err
		}
		if err := store.AddTags(cmd.Context(), []byte(args[0]), []byte(args[1]), tags); err != nil {
			return fmt.Errorf("add tags: %w", err)
		}
		fmt.Println("✓ Tags merged")
		return nil
	},
}

var tagsSetCmd = &cobra.Command{
	Use:   "set TYPE ID",
	Short: "Replace a record's entire tag set",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		tagFlags, _ := cmd.Flags().GetStringSlice("tag")
		tags, err := parseTagFlags(tagFlags)
		if err != nil {
			return err
		}
		if err := store.UpdateTags(cmd.Context(), []byte(args[0]), []byte(args[1]), tags); err != nil {
			return fmt.Errorf("set tags: %w", err)
		}
		fmt.Println("✓ Tags replaced")
		return nil
	},
}

var tagsDeleteCmd = &cobra.Command{
	Use:   "delete TYPE ID",
	Short: "Remove tags from a record by name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		nameFlags, _ := cmd.Flags().GetStringSlice("tag-name")
		names := parseTagNameFlags(nameFlags)
		if err := store.DeleteTags(cmd.Context(), []byte(args[0]), []byte(args[1]), names); err != nil {
			return fmt.Errorf("delete tags: %w", err)
		}
		fmt.Println("✓ Tags deleted")
		return nil
	},
}

func init() {
	tagsCmd.AddCommand(tagsAddCmd)
	tagsCmd.AddCommand(tagsSetCmd)
	tagsCmd.AddCommand(tagsDeleteCmd)

	for _, cmd := range []*cobra.Command{tagsAddCmd, tagsSetCmd} {
		cmd.Flags().StringSlice("tag", nil, "Tag in NAME=VALUE form; prefix NAME with ~ for a plaintext tag")
	}
	tagsDeleteCmd.Flags().StringSlice("tag-name", nil, "Tag name to remove; prefix with ~ for a plaintext tag")
}
