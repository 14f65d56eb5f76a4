package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/catcher-sh/catcher/internal/config"
	"github.com/catcher-sh/catcher/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View and filter catcher logs",
	Long: `Logs reads ~/.catcher/logs/catcher.log and prints matching entries.

Examples:
  catcher logs --tail 50
  catcher logs --level WARN --since 1h
  catcher logs --session dev --rule "Connection refused"
  catcher logs --export report.csv --format csv`,
	RunE: runLogs,
}

var (
	logsLevel    string
	logsSession  string
	logsComp     string
	logsRule     string
	logsContains string
	logsSince    time.Duration
	logsTail     int
	logsExport   string
	logsFormat   string
)

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "only entries at or above this level (DEBUG, INFO, WARN, ERROR)")
	logsCmd.Flags().StringVar(&logsSession, "session", "", "only entries from this session")
	logsCmd.Flags().StringVar(&logsComp, "component", "", "only entries from this component (watch, dispatch, rules, ...)")
	logsCmd.Flags().StringVar(&logsRule, "rule", "", "only entries about this rule pattern")
	logsCmd.Flags().StringVar(&logsContains, "contains", "", "only entries whose message contains this text")
	logsCmd.Flags().DurationVar(&logsSince, "since", 0, "only entries newer than this (e.g. 30m, 2h)")
	logsCmd.Flags().IntVar(&logsTail, "tail", 0, "only the last N matching entries")
	logsCmd.Flags().StringVar(&logsExport, "export", "", "write matching entries to this file instead of stdout")
	logsCmd.Flags().StringVar(&logsFormat, "format", "text", "export format: json, text, or csv")
}

func runLogs(cmd *cobra.Command, args []string) error {
	logPath := filepath.Join(config.LogDir(), logging.LogFileName)

	entries, err := logging.ReadLog(logPath)
	if err != nil {
		return err
	}

	filter := logging.LogFilter{
		Level:           logsLevel,
		Session:         logsSession,
		Component:       logsComp,
		Rule:            logsRule,
		MessageContains: logsContains,
	}
	if logsSince > 0 {
		filter.StartTime = time.Now().Add(-logsSince)
	}
	entries = logging.FilterEntries(entries, filter)

	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}

	if len(entries) == 0 {
		fmt.Println("No matching log entries found.")
		return nil
	}

	if logsExport != "" {
		if err := logging.ExportEntries(entries, logsExport, logsFormat); err != nil {
			return err
		}
		fmt.Printf("Exported %d entries to %s\n", len(entries), logsExport)
		return nil
	}

	return logging.WriteText(os.Stdout, entries)
}
