package dispatch

import "context"

// Runner executes a rule's action command.
type Runner interface {
	// Run executes the action and blocks until it exits or ctx is
	// canceled. It returns the process exit code (-1 when the action
	// never ran) and a non-nil error when the action could not be
	// started, exited non-zero, or was canceled.
	Run(ctx context.Context, action string) (int, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, action string) (int, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, action string) (int, error) {
	return f(ctx, action)
}
