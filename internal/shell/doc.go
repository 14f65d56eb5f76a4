// Package shell runs firing actions through the user's shell and manages
// the startup-file hook that wraps interactive shells with catcher.
//
// # Action Execution
//
// ExecRunner is the pipe-mode action runner: each action is handed to
// `$SHELL -c` (configurable, /bin/sh fallback) as a non-interactive
// command. PTY mode injects actions into the live shell instead and does
// not use this package.
//
// # Startup Hook
//
// The hook is a marker-delimited block appended to the shell startup file
// (~/.zshrc, ~/.bashrc, or ~/.profile). It re-execs new interactive
// shells under `catcher run`, guarded by CATCHER_ACTIVE so a wrapped
// shell is never wrapped again. Install refreshes a stale block in place;
// Uninstall removes exactly the block and leaves the rest of the file
// untouched.
package shell
