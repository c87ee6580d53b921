package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cuemby/walletstore/pkg/record"
	"github.com/cuemby/walletstore/pkg/tagquery"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search TYPE",
	Short: "Search records of a given type against a tag query",
	Long: `Search evaluates a JSON tag query (the wire format parsed by
pkg/tagquery.ParseWire) against every record of TYPE. With no --query
flag, every record of TYPE is returned, equivalent to an unfiltered
GetAll restricted to this type.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		var ast tagquery.Node
		queryPath, _ := cmd.Flags().GetString("query")
		if queryPath != "" {
			raw, err := os.ReadFile(queryPath)
			if err != nil {
				return fmt.Errorf("reading --query: %w", err)
			}
			ast, err = tagquery.ParseWire(raw)
			if err != nil {
				return fmt.Errorf("parsing --query: %w", err)
			}
		}

		withTags, _ := cmd.Flags().GetBool("tags")
		withCount, _ := cmd.Flags().GetBool("count")
		options := record.SearchOptions{
			FetchOptions: record.FetchOptions{
				RetrieveValue: true,
				RetrieveTags:  withTags,
			},
			RetrieveRecords:    true,
			RetrieveTotalCount: withCount,
		}

		it, err := store.Search(cmd.Context(), []byte(args[0]), ast, options)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		defer it.Close()

		n := 0
		for it.Next(cmd.Context()) {
			fmt.Printf("--- record %d ---\n", n+1)
			printRecord(it.Record())
			n++
		}
		if err := it.Err(); err != nil {
			return fmt.Errorf("search: %w", err)
		}
		if total, ok := it.TotalCount(); ok {
			fmt.Printf("\n%d of %d total matches\n", n, total)
		} else {
			fmt.Printf("\n%d matches\n", n)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("query", "", "Path to a JSON tag query file (pkg/tagquery wire format); omitted matches every record of TYPE")
	searchCmd.Flags().Bool("tags", false, "Also retrieve each matched record's tags")
	searchCmd.Flags().Bool("count", false, "Also compute the total match count")
}
