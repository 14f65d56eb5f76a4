package shell

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolveShell(t *testing.T) {
	tests := []struct {
		name     string
		override string
		env      string
		want     string
	}{
		{"override wins", "/bin/dash", "/bin/zsh", "/bin/dash"},
		{"env when no override", "", "/bin/zsh", "/bin/zsh"},
		{"fallback when nothing set", "", "", "/bin/sh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SHELL", tt.env)
			if got := ResolveShell(tt.override); got != tt.want {
				t.Errorf("ResolveShell(%q) = %q, want %q", tt.override, got, tt.want)
			}
		})
	}
}

func TestExecRunner_Run(t *testing.T) {
	r := NewExecRunner("/bin/sh", nil)
	var out bytes.Buffer
	r.Stdout = &out

	code, err := r.Run(context.Background(), "echo hello")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 0 {
		t.Errorf("Run() exit code = %d, want 0", code)
	}
	if got := out.String(); got != "hello\n" {
		t.Errorf("action output = %q, want %q", got, "hello\n")
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := NewExecRunner("/bin/sh", nil)

	code, err := r.Run(context.Background(), "exit 3")
	if err == nil {
		t.Fatal("Run() error = nil, want exit error")
	}
	if code != 3 {
		t.Errorf("Run() exit code = %d, want 3", code)
	}
}

func TestExecRunner_ShellNotFound(t *testing.T) {
	r := NewExecRunner("/nonexistent/shell", nil)

	code, err := r.Run(context.Background(), "echo hello")
	if err == nil {
		t.Fatal("Run() error = nil, want start failure")
	}
	if code != -1 {
		t.Errorf("Run() exit code = %d, want -1 for a command that never ran", code)
	}
}

func TestExecRunner_ContextTimeout(t *testing.T) {
	r := NewExecRunner("/bin/sh", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	code, err := r.Run(ctx, "sleep 30")
	if time.Since(start) > 5*time.Second {
		t.Fatal("Run() did not honor the context deadline")
	}
	if err == nil {
		t.Fatal("Run() error = nil, want error after timeout")
	}
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Errorf("ctx.Err() = %v, want deadline exceeded", ctx.Err())
	}
	if code != -1 {
		t.Errorf("Run() exit code = %d, want -1 for a killed action", code)
	}
}

func TestExecRunner_NoStdin(t *testing.T) {
	r := NewExecRunner("/bin/sh", nil)
	done := make(chan struct{})

	var code int
	go func() {
		defer close(done)
		code, _ = r.Run(context.Background(), "read line")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("action blocked reading stdin; it should see EOF")
	}
	if code == 0 {
		t.Error("read from closed stdin should fail")
	}
}

func TestExecRunner_InheritsEnvironment(t *testing.T) {
	t.Setenv("CATCHER_TEST_VALUE", "from-parent")

	r := NewExecRunner("/bin/sh", nil)
	var out bytes.Buffer
	r.Stdout = &out

	if _, err := r.Run(context.Background(), `echo "$CATCHER_TEST_VALUE"`); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := out.String(); got != "from-parent\n" {
		t.Errorf("action env = %q, want %q", got, "from-parent\n")
	}
}

func TestExecRunner_ShellAccessor(t *testing.T) {
	t.Setenv("SHELL", "/bin/bash")
	if got := NewExecRunner("", nil).Shell(); got != "/bin/bash" {
		t.Errorf("Shell() = %q, want /bin/bash", got)
	}
}
