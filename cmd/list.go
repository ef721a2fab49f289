package cmd

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/zjrosen/transcriptdex/internal/index"
	"github.com/zjrosen/transcriptdex/internal/sessionsvc"
)

var listDeletedFlag bool
var listProjectFlag string
var listColdFlag bool

const titleColumnWidth = 60

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed sessions",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listDeletedFlag, "deleted", false, "include soft-deleted sessions")
	listCmd.Flags().StringVar(&listProjectFlag, "project", "", "restrict to sessions whose working directory equals this path")
	listCmd.Flags().BoolVar(&listColdFlag, "cold", false, "bypass the index and walk the filesystem directly")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx := cmd.Context()
	var sessions []index.Session
	if listColdFlag {
		sessions, err = a.svc.DiscoverSessions(ctx, sessionsvc.DiscoverOptions{UseIndex: false})
	} else {
		sessions, err = a.index.List(ctx, index.ListOptions{IncludeDeleted: listDeletedFlag, ProjectPath: listProjectFlag})
	}
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, s := range sessions {
		if s.IsDeleted && !listDeletedFlag {
			continue
		}
		if listProjectFlag != "" && s.WorkingDirectory != listProjectFlag {
			continue
		}
		title := runewidth.Truncate(displayTitle(s), titleColumnWidth, "…")
		fmt.Fprintf(out, "%s\t%-*s\t%s\t%d msgs\t%s\n", s.SessionID, titleColumnWidth, title, s.WorkingDirectory, s.MessageCount, deletedMarker(s))
	}
	return nil
}

func displayTitle(s index.Session) string {
	if s.Title != "" {
		return s.Title
	}
	if s.FirstUserMessage != "" {
		return s.FirstUserMessage
	}
	return s.Slug
}

func deletedMarker(s index.Session) string {
	if s.IsDeleted {
		return "deleted"
	}
	return ""
}
