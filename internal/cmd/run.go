package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/muesli/cancelreader"
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

var runCmd = &cobra.Command{
	Use:   "run [flags] [-- command [args...]]",
	Short: "Run a command under a watched pseudo-terminal",
	Long: `Run wraps a command (your shell by default) in a pseudo-terminal and
watches everything it prints. Matched actions are typed into the wrapped
terminal, so they run inside the same live session that produced the
output:

  catcher run
  catcher run -- npm run dev

The wrapped program keeps its colors, prompts, and key handling. Exit
the wrapped shell to stop watching; its exit status becomes catcher's.`,
	RunE: runRun,
}

var (
	runSession   string
	runRulesFile string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runSession, "session", "s", "", "session name for this watch (default from config)")
	runCmd.Flags().StringVar(&runRulesFile, "rules", "", "rules file (default is ~/.catcher/rules.json)")
}

func runRun(cmd *cobra.Command, args []string) error {
	code, stats, err := runUnderPTY(cmd, args)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "catcher: session ended, watched %d lines, %d matches\n", stats.Lines, stats.Matches)
	if code != 0 {
		// The deferred cleanup in runUnderPTY has already run, so exiting
		// here only skips cobra's error printing, not teardown.
		if code < 0 {
			code = 1
		}
		os.Exit(code)
	}
	return nil
}

func runUnderPTY(cmd *cobra.Command, args []string) (int, watch.Stats, error) {
	cfg, err := config.Load()
	if err != nil {
		return -1, watch.Stats{}, err
	}
	session := runSession
	if session == "" {
		session = cfg.Session
	}
	if runRulesFile != "" {
		cfg.Rules.File = runRulesFile
	}
	rulesPath := cfg.Rules.ResolveFile("")

	name := shell.ResolveShell(cfg.Shell)
	var argv []string
	if len(args) > 0 {
		name, argv = args[0], args[1:]
	}

	logger, err := logging.NewLoggerWithRotation(config.LogDir(), cfg.Log.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return -1, watch.Stats{}, errors.Wrapf(err, "opening log file")
	}
	defer logger.Close()

	lock, err := daemon.Acquire(config.LocksDir(), session, logger)
	if err != nil {
		return -1, watch.Stats{}, err
	}
	defer lock.Release()

	bus := event.NewBus()
	bus.SubscribeAll((&consoleNotices{w: cmd.ErrOrStderr()}).handle)

	loader := rules.NewLoader(rulesPath, cfg.Rules.ReloadDebounce(), logger, bus)
	if err := loader.Load(); err != nil {
		if errors.Is(err, errors.ErrRulesFileNotFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "catcher: no rules file at %s, watching without rules\n", rulesPath)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "catcher: %v\n", err)
		}
	}
	if err := loader.Start(); err != nil {
		return -1, watch.Stats{}, err
	}
	defer loader.Stop()

	// The wrapped shell sources the same startup files; this keeps its
	// hook from starting a second catcher inside the session.
	_ = os.Setenv("CATCHER_ACTIVE", "1")

	source := stream.NewPTYSource(name, argv, cfg.Watch.BufferSize, os.Stdout, logger)

	// Actions are typed into the wrapped terminal instead of spawned in a
	// separate shell, so they run with the session's cwd and environment.
	runner := dispatch.RunnerFunc(func(_ context.Context, action string) (int, error) {
		if _, err := source.Write([]byte(action + "\n")); err != nil {
			return -1, errors.Wrapf(err, "injecting action")
		}
		return 0, nil
	})
	dispatcher := dispatch.NewDispatcher(cfg.Dispatch, runner, logger, bus)

	// In raw mode Ctrl-C reaches the child as a byte rather than as a
	// signal to catcher; SIGINT here covers the non-terminal case.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := source.Start(ctx); err != nil {
		return -1, watch.Stats{}, err
	}
	defer source.Stop()

	if term.IsTerminal(os.Stdin.Fd()) {
		state, rawErr := term.MakeRaw(os.Stdin.Fd())
		if rawErr != nil {
			return -1, watch.Stats{}, errors.Wrapf(rawErr, "entering raw mode")
		}
		defer term.Restore(os.Stdin.Fd(), state)
	}

	// Forward keystrokes to the child. The reader is canceled on teardown
	// so the copy goroutine does not linger on a blocked stdin read.
	if stdin, crErr := cancelreader.NewReader(os.Stdin); crErr == nil {
		defer stdin.Cancel()
		go func() { _, _ = io.Copy(source, stdin) }()
	} else {
		go func() { _, _ = io.Copy(source, os.Stdin) }()
	}

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

	runErr := watcher.Run(ctx)
	_ = source.Wait()
	return source.ExitCode(), watcher.Stats(), runErr
}
