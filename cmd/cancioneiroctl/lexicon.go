package main

import (
	"fmt"
	"sort"

	"cancioneiro/internal/core/lexicon"
	"cancioneiro/internal/core/taxonomy"

	"github.com/spf13/cobra"
)

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "Inspect the embedded lexicon and taxonomy",
}

func init() {
	lexiconCmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Count entries per lexicon table",
			RunE: func(cmd *cobra.Command, _ []string) error {
				lex, err := lexicon.Default()
				if err != nil {
					return err
				}
				stats := lex.Stats()
				keys := make([]string, 0, len(stats))
				for k := range stats {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(cmd.OutOrStdout(), "%-14s %d\n", k, stats[k])
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "taxonomy",
			Short: "List the semantic domain codes",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprint(cmd.OutOrStdout(), taxonomy.Describe())
			},
		},
	)
	rootCmd.AddCommand(lexiconCmd)
}
