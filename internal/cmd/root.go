package cmd

import (
	"strings"

	"github.com/catcher-sh/catcher/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "catcher",
	Short: "React to patterns in terminal output",
	Long: `Catcher watches a stream of terminal output for configured patterns
and runs shell actions when they appear. Rules live in a JSON file that
reloads on change, so a running watch picks up edits without restarting.

Pipe output into it:
  make test 2>&1 | catcher watch

Or wrap your shell so every command is watched:
  catcher run`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ~/.catcher/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.HomeDir())
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CATCHER")
	// Replace dots with underscores for nested keys in env vars
	// e.g., CATCHER_DISPATCH_MAX_CONCURRENT for dispatch.max_concurrent
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
