package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zjrosen/transcriptdex/internal/backup"
	"github.com/zjrosen/transcriptdex/internal/config"
	"github.com/zjrosen/transcriptdex/internal/index"
	"github.com/zjrosen/transcriptdex/internal/log"
	"github.com/zjrosen/transcriptdex/internal/runtime"
	"github.com/zjrosen/transcriptdex/internal/sessionsvc"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var homeFlag string
var debugFlag bool

var tracingShutdown func(context.Context) error

var rootCmd = &cobra.Command{
	Use:   "transcriptdex",
	Short: "Index and access layer for conversational AI transcripts",
	Long: `transcriptdex indexes per-project directories of append-only JSONL
transcripts, making them searchable and safely concurrently accessible
across projects.`,
	SilenceUsage: true,
	// PersistentPreRunE runs after flag parsing, so debugFlag reflects the
	// invocation's actual --debug value by the time tracing is wired up.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		tracingShutdown = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if tracingShutdown != nil {
			return tracingShutdown(cmd.Context())
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "override the transcriptdex home directory (default: $TRANSCRIPTDEX_HOME or ~/.transcriptdex)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable structured debug logging")
}

// Execute runs the root command. Called from main.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// app bundles the process-scoped handles every subcommand needs: the
// settings store, the sqlite index, the session service facade, and the
// backup manager. Attach builds its own PTY registry.
type app struct {
	home           string
	transcriptRoot string
	settings       *config.Store
	index          *index.Store
	svc            *sessionsvc.Service
	backups        *backup.Manager
}

// newApp resolves the home directory, opens the settings store and index,
// and wires the backup manager and session service over them. Subcommands
// call this once at the top of their RunE.
func newApp() (*app, error) {
	home := homeFlag
	if home == "" {
		home = config.DefaultHome()
	}

	if debugFlag {
		closeLog, err := log.Init(filepath.Join(home, "transcriptdex.log"), 500)
		if err != nil {
			return nil, fmt.Errorf("initializing debug log: %w", err)
		}
		log.SetEnabled(true)
		log.SetMinLevel(log.LevelDebug)
		_ = closeLog // released on process exit; nothing to flush mid-run
	}

	settings, err := config.Open(home)
	if err != nil {
		return nil, fmt.Errorf("opening settings: %w", err)
	}

	cfg, err := settings.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	transcriptRoot := cfg.TranscriptRoot
	if transcriptRoot == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving default transcript root: %w", err)
		}
		transcriptRoot = filepath.Join(userHome, ".claude")
	}

	idx, err := index.Open(filepath.Join(home, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	backupRoot := filepath.Join(home, "backups")
	backups := backup.New(transcriptRoot, backupRoot)
	if cfg.MaxBackups > 0 {
		backups.SetMaxBackups(cfg.MaxBackups)
	}

	svc := sessionsvc.New(idx, transcriptRoot, backups)

	return &app{
		home:           home,
		transcriptRoot: transcriptRoot,
		settings:       settings,
		index:          idx,
		svc:            svc,
		backups:        backups,
	}, nil
}

func (a *app) Close() error {
	return a.index.Close()
}

// claudeExecutable resolves the child binary attach spawns: the
// TRANSCRIPTDEX_CLAUDE_PATH env var if set, else the configured claude_path
// setting, or "claude" found on PATH.
func (a *app) claudeExecutable() (*runtime.ExecutableFinder, error) {
	cfg, err := a.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	var knownPaths []string
	if cfg.ClaudePath != "" {
		knownPaths = append(knownPaths, cfg.ClaudePath)
	}
	finder := runtime.NewExecutableFinder("claude", "TRANSCRIPTDEX_CLAUDE_PATH", knownPaths...)
	return finder, nil
}
