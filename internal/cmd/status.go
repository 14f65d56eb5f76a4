package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/catcher-sh/catcher/internal/config"
	"github.com/catcher-sh/catcher/internal/daemon"
	"github.com/catcher-sh/catcher/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show active watch sessions",
	Long: `Status lists the watch sessions known on this machine, live and stale.
A stale entry means a watcher exited without releasing its lock (for
example, it was killed); pass --clean to remove those.`,
	RunE: runStatus,
}

var statusClean bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusClean, "clean", false, "remove lock files left by dead watchers")
}

func runStatus(cmd *cobra.Command, args []string) error {
	locksDir := config.LocksDir()

	if statusClean {
		n, err := daemon.CleanStale(locksDir, nil)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d stale lock(s)\n", n)
	}

	infos, err := daemon.List(locksDir)
	if err != nil {
		return err
	}

	if len(infos) == 0 {
		fmt.Println("No watch sessions.")
		fmt.Println()
		fmt.Println("Start one with: make test 2>&1 | catcher watch")
		return nil
	}

	fmt.Printf("Watch sessions (%d)\n", len(infos))
	fmt.Println(strings.Repeat("─", 70))
	for _, info := range infos {
		state := "watching"
		if !info.Alive {
			state = "STALE"
		}
		fmt.Printf("  %-20s %-9s pid %-8d up %-10s %s\n",
			info.Lock.Session,
			state,
			info.Lock.PID,
			util.FormatDuration(time.Since(info.Lock.StartedAt)),
			info.Lock.Hostname)
	}
	fmt.Println(strings.Repeat("─", 70))

	stale := 0
	for _, info := range infos {
		if !info.Alive {
			stale++
		}
	}
	if stale > 0 {
		fmt.Printf("%d stale session(s). Run 'catcher status --clean' to remove them.\n", stale)
	}

	return nil
}
