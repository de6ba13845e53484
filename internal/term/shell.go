package term

import (
	"os"
	"path/filepath"
	"strings"
)

// defaultShell picks the interactive shell for new sessions: $SHELL when
// it points at an executable, then the usual fallbacks.
func defaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" && isExecutable(sh) {
		return sh
	}
	for _, sh := range []string{"/bin/bash", "/bin/zsh", "/bin/sh"} {
		if isExecutable(sh) {
			return sh
		}
	}
	return "/bin/sh"
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Mode()&0o111 != 0
}

// sessionEnv prepends the user-local bin directory to PATH. GUI-launched
// parents often come up with a truncated PATH, which hides tools
// installed under ~/.local/bin from the shell.
func sessionEnv(base []string) []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return base
	}
	localBin := filepath.Join(home, ".local", "bin")

	env := make([]string, 0, len(base)+1)
	patched := false
	for _, kv := range base {
		if strings.HasPrefix(kv, "PATH=") {
			env = append(env, "PATH="+localBin+string(os.PathListSeparator)+strings.TrimPrefix(kv, "PATH="))
			patched = true
			continue
		}
		env = append(env, kv)
	}
	if !patched {
		env = append(env, "PATH="+localBin)
	}
	return env
}

// workDir resolves a session's working directory: the explicit request,
// else home, else empty (inherit the parent's).
func workDir(cwd string) string {
	if cwd != "" {
		return cwd
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}
