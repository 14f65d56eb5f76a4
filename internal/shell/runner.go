package shell

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/catcher-sh/catcher/internal/errors"
	"github.com/catcher-sh/catcher/internal/logging"
)

// ResolveShell returns the shell used for action execution: the configured
// override, then $SHELL, then /bin/sh.
func ResolveShell(override string) string {
	if override != "" {
		return override
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// ExecRunner executes actions as non-interactive shell commands. It is the
// pipe-mode counterpart of injecting the action into a live terminal.
type ExecRunner struct {
	// Stdout and Stderr receive the action's output. They default to the
	// process's own streams.
	Stdout io.Writer
	Stderr io.Writer

	shell  string
	logger *logging.Logger
}

// NewExecRunner creates a runner using the given shell override (empty
// resolves $SHELL, then /bin/sh). The logger may be nil.
func NewExecRunner(shellOverride string, logger *logging.Logger) *ExecRunner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &ExecRunner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		shell:  ResolveShell(shellOverride),
		logger: logger.WithComponent("shell"),
	}
}

// Shell returns the resolved shell path.
func (r *ExecRunner) Shell() string {
	return r.shell
}

// Run executes action via the shell and returns its exit code. The exit
// code is -1 when the command never ran or died on a signal, which is also
// how a context timeout ends it. Actions do not inherit stdin; the watched
// stream is not theirs to consume.
func (r *ExecRunner) Run(ctx context.Context, action string) (int, error) {
	cmd := exec.CommandContext(ctx, r.shell, "-c", action)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	r.logger.Debug("running action", "shell", r.shell, "action", action)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), err
	}
	return -1, err
}
