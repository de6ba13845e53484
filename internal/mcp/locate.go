package mcp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const serverBinaryName = "mcp-server"

// ErrServerUnavailable is returned when no server executable exists at
// any of the searched locations.
var ErrServerUnavailable = errors.New("mcp: no server executable found")

// candidate is one place the server executable might live. Script
// candidates carry the interpreter they must be spawned through.
type candidate struct {
	path        string
	interpreter string
}

// argv returns the command line that runs the candidate.
func (c candidate) argv() []string {
	if c.interpreter != "" {
		return []string{c.interpreter, c.path}
	}
	return []string{c.path}
}

// serverCandidates builds the ordered search list: the configured
// override first, then the development-tree builds, then the bundled
// names colocated with the host binary.
func serverCandidates(override, devRoot, exeDir, goos, goarch string) []candidate {
	var cands []candidate
	if override != "" {
		cands = append(cands, candidate{path: override, interpreter: interpreterFor(override)})
	}
	if devRoot != "" {
		cands = append(cands,
			candidate{path: filepath.Join(devRoot, "mcp-server", "dist", serverBinaryName)},
			candidate{path: filepath.Join(devRoot, "mcp-server", "dist", "index.js"), interpreter: "node"},
		)
	}
	if exeDir != "" {
		cands = append(cands,
			candidate{path: filepath.Join(exeDir, fmt.Sprintf("%s-%s-%s", serverBinaryName, goos, goarch))},
			candidate{path: filepath.Join(exeDir, serverBinaryName)},
		)
	}
	return cands
}

// interpreterFor maps a script extension to the interpreter it needs;
// native binaries need none.
func interpreterFor(path string) string {
	if strings.HasSuffix(path, ".js") || strings.HasSuffix(path, ".mjs") {
		return "node"
	}
	return ""
}

// resolve returns the first candidate whose path is an existing regular
// file.
func resolve(cands []candidate) (candidate, error) {
	for _, c := range cands {
		info, err := os.Stat(c.path)
		if err != nil || info.IsDir() {
			continue
		}
		return c, nil
	}
	return candidate{}, ErrServerUnavailable
}
