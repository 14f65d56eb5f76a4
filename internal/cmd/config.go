package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/catcher-sh/catcher/internal/config"
	"github.com/catcher-sh/catcher/internal/shell"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify catcher configuration",
	Long: `View or modify catcher configuration.

Without arguments, displays the effective configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Keys use dot notation, e.g.:
  catcher config set dispatch.on_busy queue
  catcher config set dispatch.debounce_ms 500
  catcher config set log.level DEBUG

Valid keys:
  session                     - Default session name
  shell                       - Shell used for actions (default $SHELL)
  rules.file                  - Rules file path
  rules.reload_debounce_ms    - Quiet window before a reload applies
  watch.buffer_size           - Line buffer between reader and matcher
  watch.strip_ansi            - Strip ANSI escapes before matching
  dispatch.debounce_ms        - Loop guard window per (rule, text)
  dispatch.on_busy            - Policy while an action runs: drop, queue
  dispatch.action_timeout_sec - Kill actions that run longer (0 = never)
  dispatch.max_concurrent     - Max actions running at once
  dispatch.shutdown_grace_sec - Wait for actions on shutdown
  log.level                   - debug, info, warn, or error
  log.max_size_mb             - Rotate the log past this size
  log.max_backups             - Rotated files to keep
  log.compress                - Gzip rotated files`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a commented config file at ~/.catcher/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("# Config file: (none - using defaults)\n")
	}
	fmt.Println()

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	fmt.Print(string(out))

	fmt.Println()
	fmt.Println("# Paths:")
	fmt.Printf("#   home:  %s\n", config.HomeDir())
	fmt.Printf("#   rules: %s\n", cfg.Rules.ResolveFile(""))
	fmt.Printf("#   logs:  %s\n", config.LogDir())
	fmt.Printf("#   locks: %s\n", config.LocksDir())
	fmt.Printf("#   shell: %s\n", shell.ResolveShell(cfg.Shell))

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	validKeys := map[string]string{
		"session":                     "string",
		"shell":                       "string",
		"rules.file":                  "string",
		"rules.reload_debounce_ms":    "int",
		"watch.buffer_size":           "int",
		"watch.strip_ansi":            "bool",
		"dispatch.debounce_ms":        "int",
		"dispatch.on_busy":            "string",
		"dispatch.action_timeout_sec": "int",
		"dispatch.max_concurrent":     "int",
		"dispatch.shutdown_grace_sec": "int",
		"log.level":                   "string",
		"log.max_size_mb":             "int",
		"log.max_backups":             "int",
		"log.compress":                "bool",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'catcher config set --help' to see valid keys", key)
	}

	var typedValue any
	switch keyType {
	case "string":
		if key == "dispatch.on_busy" && !config.IsValidBusyPolicy(value) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidBusyPolicies(), ", "))
		}
		if key == "log.level" {
			switch strings.ToLower(value) {
			case "debug", "info", "warn", "error":
				value = strings.ToLower(value)
			default:
				return fmt.Errorf("invalid value for %s: %s\nValid options: debug, info, warn, error", key, value)
			}
		}
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	}

	if err := os.MkdirAll(config.HomeDir(), 0755); err != nil {
		return fmt.Errorf("failed to create catcher home: %w", err)
	}

	viper.Set(key, typedValue)

	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'catcher config set' to modify values", configFile)
	}

	if err := os.MkdirAll(config.HomeDir(), 0755); err != nil {
		return fmt.Errorf("failed to create catcher home: %w", err)
	}

	configContent := `# catcher configuration

# Default session name for watch and run. Rules can be scoped to
# sessions with glob patterns.
session: default

# Shell used to execute actions in watch mode. Empty uses $SHELL,
# falling back to /bin/sh.
shell: ""

rules:
  # Rules file path. Empty uses ~/.catcher/rules.json.
  file: ""
  # Quiet window after a rules file change before the reload applies.
  reload_debounce_ms: 200

watch:
  # Lines buffered between the stream reader and the matcher. When the
  # buffer is full the oldest lines are dropped.
  buffer_size: 1024
  # Strip ANSI escape sequences before matching.
  strip_ansi: true

dispatch:
  # Loop guard: suppress repeat firings of a rule on the same matched
  # text within this window. 0 disables the guard.
  debounce_ms: 1000
  # What to do when a rule matches while its action is still running.
  # Options: drop, queue
  on_busy: drop
  # Kill actions that run longer than this. 0 means never.
  action_timeout_sec: 30
  # Actions allowed to run at the same time, across all rules.
  max_concurrent: 8
  # On shutdown, wait this long for running actions before giving up.
  shutdown_grace_sec: 5

log:
  # debug, info, warn, or error
  level: info
  # Rotate ~/.catcher/logs/catcher.log past this size.
  max_size_mb: 10
  # Rotated files to keep.
  max_backups: 3
  # Gzip rotated files.
  compress: false
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	fmt.Println("Edit this file to customize catcher's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Default path: %s (not created)\n", configFile)
	}

	fmt.Println("\nEnvironment variables: CATCHER_* (e.g., CATCHER_DISPATCH_ON_BUSY)")

	return nil
}
