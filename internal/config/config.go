package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete catcher configuration
type Config struct {
	// Session is the default watch session name used when --session is not given
	Session  string         `mapstructure:"session" yaml:"session"`
	Rules    RulesConfig    `mapstructure:"rules" yaml:"rules"`
	Watch    WatchConfig    `mapstructure:"watch" yaml:"watch"`
	Dispatch DispatchConfig `mapstructure:"dispatch" yaml:"dispatch"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	// Shell overrides $SHELL for action execution (empty = use $SHELL, then /bin/sh)
	Shell string `mapstructure:"shell" yaml:"shell"`
}

// RulesConfig controls where rules are loaded from and how reloads behave
type RulesConfig struct {
	// File is the path to the rules file. Empty means ~/.catcher/rules.json.
	// Supports ~ for home directory expansion.
	File string `mapstructure:"file" yaml:"file"`
	// ReloadDebounceMs coalesces bursts of file-change notifications into a
	// single reload (editors often write a file several times in a row).
	// 0 reloads on every notification.
	ReloadDebounceMs int `mapstructure:"reload_debounce_ms" yaml:"reload_debounce_ms"`
}

// WatchConfig controls line delivery from the output stream
type WatchConfig struct {
	// BufferSize is the capacity of the line delivery channel. When the
	// watcher falls behind, lines beyond this buffer are dropped and show up
	// as a sequence gap.
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size"`
	// StripANSI removes ANSI escape sequences from lines before matching
	StripANSI bool `mapstructure:"strip_ansi" yaml:"strip_ansi"`
}

// DispatchConfig controls action execution behavior
type DispatchConfig struct {
	// DebounceMs is the default loop-guard window: an identical match within
	// this window is suppressed instead of firing again (0 disables the guard)
	DebounceMs int `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	// OnBusy controls what happens when a rule matches while its previous
	// action is still running. Options: "drop", "queue"
	OnBusy string `mapstructure:"on_busy" yaml:"on_busy"`
	// ActionTimeoutSec kills an action that runs longer than this (0 = no timeout)
	ActionTimeoutSec int `mapstructure:"action_timeout_sec" yaml:"action_timeout_sec"`
	// MaxConcurrent is the size of the action execution pool
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	// ShutdownGraceSec is how long Stop waits for running actions to finish
	ShutdownGraceSec int `mapstructure:"shutdown_grace_sec" yaml:"shutdown_grace_sec"`
}

// LogConfig controls debug logging behavior
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzip-compresses rotated log files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Session: "default",
		Rules: RulesConfig{
			File:             "", // Empty means use DefaultRulesFile()
			ReloadDebounceMs: 200,
		},
		Watch: WatchConfig{
			BufferSize: 1024,
			StripANSI:  true,
		},
		Dispatch: DispatchConfig{
			DebounceMs:       1000, // Suppress identical matches for 1s
			OnBusy:           "drop",
			ActionTimeoutSec: 30,
			MaxConcurrent:    8,
			ShutdownGraceSec: 5,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
		Shell: "", // Empty means use $SHELL
	}
}

// ReloadDebounce returns the reload debounce as a time.Duration
func (r *RulesConfig) ReloadDebounce() time.Duration {
	return time.Duration(r.ReloadDebounceMs) * time.Millisecond
}

// Debounce returns the loop-guard window as a time.Duration (0 means disabled)
func (d *DispatchConfig) Debounce() time.Duration {
	return time.Duration(d.DebounceMs) * time.Millisecond
}

// ActionTimeout returns the action timeout as a time.Duration (0 means disabled)
func (d *DispatchConfig) ActionTimeout() time.Duration {
	return time.Duration(d.ActionTimeoutSec) * time.Second
}

// ShutdownGrace returns the shutdown grace as a time.Duration
func (d *DispatchConfig) ShutdownGrace() time.Duration {
	return time.Duration(d.ShutdownGraceSec) * time.Second
}

// ResolveFile returns the resolved rules file path.
// If File is empty, it returns the default path under the catcher home.
// If File starts with ~, it expands to the user's home directory.
// If File is a relative path, it's resolved relative to baseDir.
func (r *RulesConfig) ResolveFile(baseDir string) string {
	if r.File == "" {
		return DefaultRulesFile()
	}

	path := r.File

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	// If relative path, resolve relative to baseDir
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	return path
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("session", defaults.Session)

	// Rules defaults
	viper.SetDefault("rules.file", defaults.Rules.File)
	viper.SetDefault("rules.reload_debounce_ms", defaults.Rules.ReloadDebounceMs)

	// Watch defaults
	viper.SetDefault("watch.buffer_size", defaults.Watch.BufferSize)
	viper.SetDefault("watch.strip_ansi", defaults.Watch.StripANSI)

	// Dispatch defaults
	viper.SetDefault("dispatch.debounce_ms", defaults.Dispatch.DebounceMs)
	viper.SetDefault("dispatch.on_busy", defaults.Dispatch.OnBusy)
	viper.SetDefault("dispatch.action_timeout_sec", defaults.Dispatch.ActionTimeoutSec)
	viper.SetDefault("dispatch.max_concurrent", defaults.Dispatch.MaxConcurrent)
	viper.SetDefault("dispatch.shutdown_grace_sec", defaults.Dispatch.ShutdownGraceSec)

	// Log defaults
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.max_size_mb", defaults.Log.MaxSizeMB)
	viper.SetDefault("log.max_backups", defaults.Log.MaxBackups)
	viper.SetDefault("log.compress", defaults.Log.Compress)

	viper.SetDefault("shell", defaults.Shell)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// HomeDir returns the path to the catcher home directory.
// CATCHER_HOME overrides the default of ~/.catcher.
func HomeDir() string {
	if custom := os.Getenv("CATCHER_HOME"); custom != "" {
		return custom
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".catcher"
	}
	return filepath.Join(home, ".catcher")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(HomeDir(), "config.yaml")
}

// LogDir returns the directory where log files are written
func LogDir() string {
	return filepath.Join(HomeDir(), "logs")
}

// LocksDir returns the directory where session lock files are kept
func LocksDir() string {
	return filepath.Join(HomeDir(), "locks")
}

// DefaultRulesFile returns the default rules file path
func DefaultRulesFile() string {
	return filepath.Join(HomeDir(), "rules.json")
}

// ValidBusyPolicies returns the list of valid on_busy policy values
func ValidBusyPolicies() []string {
	return []string{"drop", "queue"}
}

// IsValidBusyPolicy checks if the given policy is valid
func IsValidBusyPolicy(policy string) bool {
	for _, valid := range ValidBusyPolicies() {
		if policy == valid {
			return true
		}
	}
	return false
}
