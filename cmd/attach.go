package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zjrosen/transcriptdex/internal/runtime"
)

var attachResumeFlag string

var attachCmd = &cobra.Command{
	Use:   "attach <session-id-or-title>",
	Short: "Attach an interactive terminal to a session's managed child process",
	Long: `attach resolves the selector to a session, spawns (or reattaches to) its
managed child process in a pseudo-terminal, replays scrollback, and then
mirrors stdin/stdout until the child exits or the terminal is detached
with Ctrl-].`,
	Args: cobra.ExactArgs(1),
	RunE: runAttach,
}

func init() {
	rootCmd.AddCommand(attachCmd)
	attachCmd.Flags().StringVar(&attachResumeFlag, "resume-flag", "--resume", "flag passed to the child binary before the session id")
}

// detachByte is Ctrl-] (0x1d), the terminal escape this CLI uses to detach
// without killing the child, mirroring common PTY client conventions.
const detachByte = 0x1d

func runAttach(cmd *cobra.Command, args []string) error {
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

	finder, err := a.claudeExecutable()
	if err != nil {
		return err
	}
	registry := runtime.NewRegistry(finder, attachResumeFlag)

	clientID := uuid.NewString()
	snapshot, events, err := registry.Attach(ctx, sess.SessionID, sess.WorkingDirectory, clientID)
	if err != nil {
		return fmt.Errorf("attaching to session %s: %w", sess.SessionID, err)
	}
	defer registry.Detach(sess.SessionID, clientID)

	out := cmd.OutOrStdout()
	if _, err := out.Write(snapshot); err != nil {
		return err
	}

	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		oldState, err := term.MakeRaw(stdinFd)
		if err != nil {
			return fmt.Errorf("setting terminal raw mode: %w", err)
		}
		defer func() { _ = term.Restore(stdinFd, oldState) }()
	}

	if cols, rows, err := term.GetSize(stdinFd); err == nil {
		_ = registry.Resize(sess.SessionID, cols, rows)
	}

	resizeCh := make(chan os.Signal, 1)
	signal.Notify(resizeCh, syscall.SIGWINCH)
	defer signal.Stop(resizeCh)
	go func() {
		for range resizeCh {
			if cols, rows, err := term.GetSize(stdinFd); err == nil {
				_ = registry.Resize(sess.SessionID, cols, rows)
			}
		}
	}()

	inputDone := make(chan struct{})
	go func() {
		defer close(inputDone)
		reader := bufio.NewReader(os.Stdin)
		buf := make([]byte, 1024)
		for {
			n, err := reader.Read(buf)
			if n > 0 {
				for _, b := range buf[:n] {
					if b == detachByte {
						return
					}
				}
				if sendErr := registry.SendInput(sess.SessionID, buf[:n]); sendErr != nil {
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					return
				}
				return
			}
		}
	}()

	for {
		select {
		case <-inputDone:
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Type {
			case runtime.EventOutput:
				_, _ = out.Write(ev.Data)
			case runtime.EventExit:
				fmt.Fprintf(out, "\r\n[session exited: %d]\r\n", ev.ExitCode)
				return nil
			}
		}
	}
}
