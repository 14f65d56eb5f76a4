package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/catcher-sh/catcher/internal/config"
	"github.com/catcher-sh/catcher/internal/daemon"
	"github.com/catcher-sh/catcher/internal/dispatch"
	"github.com/catcher-sh/catcher/internal/errors"
	"github.com/catcher-sh/catcher/internal/event"
	"github.com/catcher-sh/catcher/internal/logging"
	"github.com/catcher-sh/catcher/internal/rules"
	"github.com/catcher-sh/catcher/internal/shell"
	"github.com/catcher-sh/catcher/internal/stream"
	"github.com/catcher-sh/catcher/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch piped output for rule patterns",
	Long: `Watch reads lines from stdin, matches them against your rules, and runs
the action of every rule that matches. The input passes through untouched,
so catcher can sit in the middle of a pipeline:

  make test 2>&1 | catcher watch
  npm run dev 2>&1 | catcher watch --session dev

Rules are reloaded automatically when the rules file changes. Press
Ctrl-C to stop; running actions get a grace period to finish.`,
	RunE: runWatch,
}

var (
	watchSession string
	watchRules   string
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchSession, "session", "s", "", "session name for this watch (default from config)")
	watchCmd.Flags().StringVar(&watchRules, "rules", "", "rules file (default is ~/.catcher/rules.json)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if term.IsTerminal(os.Stdin.Fd()) {
		return errors.New("stdin is a terminal; pipe output into catcher watch, or use catcher run to wrap a shell")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	session := watchSession
	if session == "" {
		session = cfg.Session
	}
	if watchRules != "" {
		cfg.Rules.File = watchRules
	}
	rulesPath := cfg.Rules.ResolveFile("")

	logger, err := logging.NewLoggerWithRotation(config.LogDir(), cfg.Log.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return errors.Wrapf(err, "opening log file")
	}
	defer logger.Close()

	lock, err := daemon.Acquire(config.LocksDir(), session, logger)
	if err != nil {
		return err
	}
	defer lock.Release()

	bus := event.NewBus()
	bus.SubscribeAll((&consoleNotices{w: cmd.ErrOrStderr()}).handle)

	loader := rules.NewLoader(rulesPath, cfg.Rules.ReloadDebounce(), logger, bus)
	if err := loader.Load(); err != nil {
		// Missing or broken rules are not fatal; the watcher starts empty
		// and picks the file up once it appears or parses again.
		if errors.Is(err, errors.ErrRulesFileNotFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "catcher: no rules file at %s, watching without rules\n", rulesPath)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "catcher: %v\n", err)
		}
	}
	if err := loader.Start(); err != nil {
		return err
	}
	defer loader.Stop()

	runner := shell.NewExecRunner(cfg.Shell, logger)
	dispatcher := dispatch.NewDispatcher(cfg.Dispatch, runner, logger, bus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := stream.NewReaderSource(os.Stdin, cfg.Watch.BufferSize, logger)
	if err := source.Start(ctx); err != nil {
		return err
	}
	defer source.Stop()

	watcher := watch.NewWatcher(watch.Options{
		Session:       session,
		Watch:         cfg.Watch,
		Source:        source,
		Loader:        loader,
		Dispatcher:    dispatcher,
		ShutdownGrace: cfg.Dispatch.ShutdownGrace(),
		Logger:        logger,
		Bus:           bus,
	})

	err = watcher.Run(ctx)
	stats := watcher.Stats()
	fmt.Fprintf(cmd.ErrOrStderr(), "catcher: watched %d lines, %d matches\n", stats.Lines, stats.Matches)
	return err
}
