package shell

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/catcher-sh/catcher/internal/errors"
)

const (
	beginMarker = "# BEGIN catcher hook"
	endMarker   = "# END catcher hook"
)

// Snippet returns the hook block written into the startup file. The
// CATCHER_ACTIVE guard keeps the shell catcher spawns from wrapping
// itself, and the command check keeps a removed binary from breaking
// shell startup.
func Snippet() string {
	return beginMarker + "\n" +
		"# Wraps interactive shells with catcher; remove with: catcher hook uninstall\n" +
		"if [ -z \"$CATCHER_ACTIVE\" ] && [ -t 0 ] && command -v catcher >/dev/null 2>&1; then\n" +
		"  export CATCHER_ACTIVE=1\n" +
		"  exec catcher run\n" +
		"fi\n" +
		endMarker + "\n"
}

// DefaultStartupFile picks the startup file for the user's login shell:
// ~/.zshrc for zsh, ~/.bashrc for bash, ~/.profile otherwise.
func DefaultStartupFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	switch filepath.Base(os.Getenv("SHELL")) {
	case "zsh":
		return filepath.Join(home, ".zshrc")
	case "bash":
		return filepath.Join(home, ".bashrc")
	default:
		return filepath.Join(home, ".profile")
	}
}

// Install writes the hook block into rcPath, creating the file if needed.
// An existing block is refreshed in place. It returns false when the
// current block is already up to date.
func Install(rcPath string) (bool, error) {
	content, mode, err := readStartupFile(rcPath)
	if err != nil {
		return false, err
	}

	begin, end, found, err := blockBounds(content)
	if err != nil {
		return false, err
	}

	if found {
		if content[begin:end] == Snippet() {
			return false, nil
		}
		content = content[:begin] + Snippet() + content[end:]
	} else {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		if content != "" {
			content += "\n"
		}
		content += Snippet()
	}

	if err := os.WriteFile(rcPath, []byte(content), mode); err != nil {
		return false, errors.Wrapf(err, "writing %s", rcPath)
	}
	return true, nil
}

// Uninstall removes the hook block from rcPath. It returns false when no
// block was present. Only the block (and the blank line Install put before
// it) is removed.
func Uninstall(rcPath string) (bool, error) {
	content, mode, err := readStartupFile(rcPath)
	if err != nil {
		return false, err
	}

	begin, end, found, err := blockBounds(content)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	head := content[:begin]
	tail := content[end:]
	if strings.HasSuffix(head, "\n\n") && !strings.HasPrefix(tail, "\n") {
		head = head[:len(head)-1]
	}

	if err := os.WriteFile(rcPath, []byte(head+tail), mode); err != nil {
		return false, errors.Wrapf(err, "writing %s", rcPath)
	}
	return true, nil
}

// Installed reports whether rcPath contains a hook block.
func Installed(rcPath string) (bool, error) {
	content, _, err := readStartupFile(rcPath)
	if err != nil {
		return false, err
	}
	_, _, found, err := blockBounds(content)
	return found, err
}

// blockBounds locates the hook block. end points past the terminating
// newline when one follows the end marker.
func blockBounds(content string) (begin, end int, found bool, err error) {
	begin = strings.Index(content, beginMarker)
	if begin == -1 {
		return 0, 0, false, nil
	}
	rest := strings.Index(content[begin:], endMarker)
	if rest == -1 {
		return 0, 0, false, errors.New("hook block is missing its end marker; fix the file by hand")
	}
	end = begin + rest + len(endMarker)
	if end < len(content) && content[end] == '\n' {
		end++
	}
	return begin, end, true, nil
}

// readStartupFile reads rcPath, treating a missing file as empty. The
// file's permission bits are preserved across rewrites.
func readStartupFile(path string) (string, os.FileMode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0o644, nil
		}
		return "", 0, errors.Wrapf(err, "reading %s", path)
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return string(data), mode, nil
}
