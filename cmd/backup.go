package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupListFlag bool
var backupForceFlag bool

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create or list timestamped snapshots of the transcript tree",
	RunE:  runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().BoolVar(&backupListFlag, "list", false, "list existing snapshots instead of creating one")
	backupCmd.Flags().BoolVar(&backupForceFlag, "force", false, "create a snapshot even if one was taken within the backup interval")
}

func runBackup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if backupListFlag {
		snapshots, err := a.backups.List(ctx)
		if err != nil {
			return fmt.Errorf("listing snapshots: %w", err)
		}
		for _, snap := range snapshots {
			fmt.Fprintf(out, "%s\t%s\n", snap.Name, snap.Path)
		}
		return nil
	}

	if !backupForceFlag && !a.backups.NeedsBackup(ctx) {
		fmt.Fprintln(out, "no backup needed yet")
		return nil
	}

	snap, err := a.backups.Backup(ctx)
	if err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}

	fmt.Fprintf(out, "created %s\n", snap.Path)
	return nil
}
