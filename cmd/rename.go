package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename <session-id-or-title> <new-title>",
	Short: "Set a durable title override for a session",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

func init() {
	rootCmd.AddCommand(renameCmd)
}

func runRename(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx := cmd.Context()
	sess, err := a.svc.FindSession(ctx, args[0])
	if err != nil {
		return fmt.Errorf("resolving %q: %w", args[0], err)
	}

	if err := a.svc.RenameSession(ctx, sess.SessionID, args[1]); err != nil {
		return fmt.Errorf("renaming session %s: %w", sess.SessionID, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %q\n", sess.SessionID, args[1])
	return nil
}
