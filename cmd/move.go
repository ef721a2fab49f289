package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var moveCmd = &cobra.Command{
	Use:   "move <session-id-or-title> <new-working-directory>",
	Short: "Relocate a session's JSONL into a different project directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

func init() {
	rootCmd.AddCommand(moveCmd)
}

func runMove(cmd *cobra.Command, args []string) error {
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

	moved, err := a.svc.MoveSession(ctx, sess.SessionID, args[1])
	if err != nil {
		return fmt.Errorf("moving session %s: %w", sess.SessionID, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "moved %s to %s\n", moved.SessionID, moved.FilePath)
	return nil
}
