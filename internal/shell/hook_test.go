package shell

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func rcFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".bashrc")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("seeding rc file: %v", err)
		}
	}
	return path
}

func readRC(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading rc file: %v", err)
	}
	return string(data)
}

func TestSnippet(t *testing.T) {
	s := Snippet()
	for _, want := range []string{beginMarker, endMarker, "CATCHER_ACTIVE", "exec catcher run", "command -v catcher"} {
		if !strings.Contains(s, want) {
			t.Errorf("Snippet() missing %q", want)
		}
	}
	if !strings.HasSuffix(s, "\n") {
		t.Error("Snippet() should end with a newline")
	}
}

func TestDefaultStartupFile(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{"/bin/zsh", ".zshrc"},
		{"/bin/bash", ".bashrc"},
		{"/usr/bin/fish", ".profile"},
		{"", ".profile"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Setenv("SHELL", tt.shell)
			if got := filepath.Base(DefaultStartupFile()); got != tt.want {
				t.Errorf("DefaultStartupFile() for %q = %q, want %q", tt.shell, got, tt.want)
			}
		})
	}
}

func TestInstall_CreatesMissingFile(t *testing.T) {
	path := rcFile(t, "")

	installed, err := Install(path)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if !installed {
		t.Error("Install() = false, want true on first install")
	}
	if got := readRC(t, path); got != Snippet() {
		t.Errorf("new rc file = %q, want just the hook block", got)
	}

	found, err := Installed(path)
	if err != nil || !found {
		t.Errorf("Installed() = %v, %v, want true, nil", found, err)
	}
}

func TestInstall_AppendsAfterExistingContent(t *testing.T) {
	seed := "export PATH=$PATH:/usr/local/bin\nalias ll='ls -l'\n"
	path := rcFile(t, seed)

	if _, err := Install(path); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	got := readRC(t, path)
	if !strings.HasPrefix(got, seed) {
		t.Error("existing content should be preserved at the top")
	}
	if got != seed+"\n"+Snippet() {
		t.Errorf("rc file = %q, want seed, blank line, then the block", got)
	}
}

func TestInstall_AddsNewlineWhenFileLacksOne(t *testing.T) {
	path := rcFile(t, "export A=1")

	if _, err := Install(path); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if got := readRC(t, path); !strings.HasPrefix(got, "export A=1\n\n"+beginMarker) {
		t.Errorf("rc file = %q, block should start on its own line", got)
	}
}

func TestInstall_Idempotent(t *testing.T) {
	path := rcFile(t, "export A=1\n")

	if _, err := Install(path); err != nil {
		t.Fatalf("first Install() error = %v", err)
	}
	before := readRC(t, path)

	installed, err := Install(path)
	if err != nil {
		t.Fatalf("second Install() error = %v", err)
	}
	if installed {
		t.Error("second Install() = true, want false when already current")
	}
	if got := readRC(t, path); got != before {
		t.Error("second Install() modified the file")
	}
}

func TestInstall_RefreshesStaleBlock(t *testing.T) {
	stale := "export A=1\n\n" +
		beginMarker + "\n" +
		"catcher-old-command\n" +
		endMarker + "\n" +
		"alias ll='ls -l'\n"
	path := rcFile(t, stale)

	installed, err := Install(path)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if !installed {
		t.Error("Install() = false, want true when refreshing a stale block")
	}

	got := readRC(t, path)
	if strings.Contains(got, "catcher-old-command") {
		t.Error("stale block content should be gone")
	}
	if strings.Count(got, beginMarker) != 1 {
		t.Errorf("rc file has %d blocks, want 1", strings.Count(got, beginMarker))
	}
	if !strings.HasPrefix(got, "export A=1\n") || !strings.HasSuffix(got, "alias ll='ls -l'\n") {
		t.Error("content around the block should be untouched")
	}
}

func TestUninstall_RoundTrip(t *testing.T) {
	seeds := map[string]string{
		"empty file":    "",
		"single line":   "export PATH=$PATH:/usr/local/bin\n",
		"several lines": "line one\nline two\n",
	}

	for name, seed := range seeds {
		t.Run(name, func(t *testing.T) {
			path := rcFile(t, seed)
			if _, err := Install(path); err != nil {
				t.Fatalf("Install() error = %v", err)
			}

			removed, err := Uninstall(path)
			if err != nil {
				t.Fatalf("Uninstall() error = %v", err)
			}
			if !removed {
				t.Error("Uninstall() = false, want true")
			}
			if got := readRC(t, path); got != seed {
				t.Errorf("rc file after uninstall = %q, want the original %q", got, seed)
			}
		})
	}
}

func TestUninstall_PreservesSurroundingContent(t *testing.T) {
	path := rcFile(t, "before\n\n"+Snippet()+"after\n")

	if _, err := Uninstall(path); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if got := readRC(t, path); got != "before\nafter\n" {
		t.Errorf("rc file = %q, want %q", got, "before\nafter\n")
	}
}

func TestUninstall_NoBlock(t *testing.T) {
	path := rcFile(t, "export A=1\n")

	removed, err := Uninstall(path)
	if err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if removed {
		t.Error("Uninstall() = true, want false when no block exists")
	}
}

func TestUninstall_MissingFileIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".bashrc")

	removed, err := Uninstall(path)
	if err != nil || removed {
		t.Errorf("Uninstall() = %v, %v, want false, nil", removed, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Uninstall() should not create the file")
	}
}

func TestBrokenBlockIsAnError(t *testing.T) {
	path := rcFile(t, beginMarker+"\nno end marker here\n")

	if _, err := Install(path); err == nil {
		t.Error("Install() error = nil, want error for missing end marker")
	}
	if _, err := Uninstall(path); err == nil {
		t.Error("Uninstall() error = nil, want error for missing end marker")
	}
	if _, err := Installed(path); err == nil {
		t.Error("Installed() error = nil, want error for missing end marker")
	}
}

func TestInstall_PreservesFileMode(t *testing.T) {
	path := rcFile(t, "export A=1\n")
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	if _, err := Install(path); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Errorf("file mode = %o, want 0600 preserved", got)
	}
}
