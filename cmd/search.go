package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/transcriptdex/internal/index"
)

var searchMaxResultsFlag int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search across indexed message bodies",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchMaxResultsFlag, "max-results", 20, "maximum number of sessions to return")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	query := strings.Join(args, " ")
	results, err := a.svc.SearchSessions(cmd.Context(), query, index.SearchOptions{MaxResults: searchMaxResultsFlag})
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		fmt.Fprintf(out, "%s\t%s\t%d matches\n", r.Session.SessionID, displayTitle(r.Session), r.MatchCount)
		for _, m := range r.Matches {
			fmt.Fprintf(out, "  [%d] %s: %s\n", m.Ordinal, m.Type, m.Snippet)
		}
	}
	return nil
}
