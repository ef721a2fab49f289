// Package config resolves the on-disk home directory and settings file
// shared by every component: the index database, backup snapshots, and
// session runtime all live under one root, defaulting to ~/.transcriptdex
// and overridable via TRANSCRIPTDEX_HOME, following the teacher's
// DefaultBaseDir() (~/.perles/sessions) convention.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// HomeEnvVar overrides the default home directory when set.
const HomeEnvVar = "TRANSCRIPTDEX_HOME"

const defaultHomeName = ".transcriptdex"
const settingsFileName = "settings.yaml"

// DefaultHome returns the root directory for all on-disk state: TRANSCRIPTDEX_HOME
// if set, otherwise ~/.transcriptdex.
func DefaultHome() string {
	if override := os.Getenv(HomeEnvVar); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultHomeName
	}
	return filepath.Join(home, defaultHomeName)
}

// Settings is the on-disk, user-editable configuration: the backup
// interval/retention policy and the transcript source root. Zero values mean
// "use the component default". BackupIntervalMinutes is stored but not
// applied: the backup manager always uses its fixed one-hour interval.
type Settings struct {
	BackupIntervalMinutes int    `mapstructure:"backup_interval_minutes" yaml:"backup_interval_minutes"`
	MaxBackups            int    `mapstructure:"max_backups" yaml:"max_backups"`
	TranscriptRoot        string `mapstructure:"transcript_root" yaml:"transcript_root"`
	ClaudePath            string `mapstructure:"claude_path" yaml:"claude_path"`
}

// Store loads and persists Settings from <home>/settings.yaml via viper.
// A read-modify-write cycle holds the Store's own mu for its full duration,
// so concurrent Update calls within one process never interleave their
// writes; separate processes are not coordinated.
type Store struct {
	mu   sync.Mutex
	home string
	v    *viper.Viper
}

// Open loads settings from home, creating the directory and an empty
// settings file if neither exists yet.
func Open(home string) (*Store, error) {
	if err := os.MkdirAll(home, 0750); err != nil {
		return nil, fmt.Errorf("creating config home %s: %w", home, err)
	}

	v := viper.New()
	v.SetConfigName("settings")
	v.SetConfigType("yaml")
	v.AddConfigPath(home)
	v.SetDefault("backup_interval_minutes", 60)
	v.SetDefault("max_backups", 10)

	path := filepath.Join(home, settingsFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := v.SafeWriteConfigAs(path); err != nil {
			return nil, fmt.Errorf("writing default settings file: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	return &Store{home: home, v: v}, nil
}

// Get returns the current settings.
func (s *Store) Get() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Settings
	if err := s.v.Unmarshal(&out); err != nil {
		return Settings{}, fmt.Errorf("unmarshaling settings: %w", err)
	}
	return out, nil
}

// Update applies mutate to the current settings and persists the result.
func (s *Store) Update(mutate func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current Settings
	if err := s.v.Unmarshal(&current); err != nil {
		return Settings{}, fmt.Errorf("unmarshaling settings: %w", err)
	}

	mutate(&current)

	s.v.Set("backup_interval_minutes", current.BackupIntervalMinutes)
	s.v.Set("max_backups", current.MaxBackups)
	s.v.Set("transcript_root", current.TranscriptRoot)
	s.v.Set("claude_path", current.ClaudePath)

	if err := s.v.WriteConfigAs(filepath.Join(s.home, settingsFileName)); err != nil {
		return Settings{}, fmt.Errorf("writing settings file: %w", err)
	}
	return current, nil
}
