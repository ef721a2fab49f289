package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <session-id>",
	Short: "Restore a soft-deleted session's JSONL from the most recent backup",
	Long: `restore copies a soft-deleted session's file back from the most recent
backup snapshot that contains it, to its last-known file_path. Run "sync"
afterward to clear is_deleted in the index.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.svc.RestoreDeleted(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("restoring session %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "restored %s; run sync to clear its deleted flag\n", args[0])
	return nil
}
