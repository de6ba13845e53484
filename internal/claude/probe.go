package claude

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// The CLI calls go through these hooks so tests can stub them out.
var (
	lookPath = exec.LookPath

	runCommand = func(dir, name string, args ...string) (string, error) {
		cmd := exec.Command(name, args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		return string(out), err
	}
)

// Installed reports whether the claude CLI is on PATH.
func Installed() bool {
	_, err := lookPath("claude")
	return err == nil
}

// ServerRegistered reports whether the named MCP server shows up as
// connected in `claude mcp list` for the project.
func ServerRegistered(projectPath, name string) (bool, error) {
	out, err := runCommand(projectPath, "claude", "mcp", "list")
	if err != nil {
		return false, fmt.Errorf("claude: mcp list: %w", err)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, name) && strings.Contains(line, "Connected") {
			return true, nil
		}
	}
	return false, nil
}

// RegisterServer registers the context server with the claude CLI at
// project scope, then turns auto-start on in the settings document.
// JavaScript builds of the server run under node.
func RegisterServer(projectPath, serverPath string) error {
	spec := ServerConfig{Command: serverPath}
	if strings.HasSuffix(serverPath, ".js") || strings.HasSuffix(serverPath, ".mjs") {
		spec = ServerConfig{Command: "node", Args: []string{serverPath}}
	}

	raw, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("claude: encode server spec: %w", err)
	}

	out, err := runCommand(projectPath, "claude", "mcp", "add-json", ServerName, string(raw), "-s", "project")
	if err != nil {
		return fmt.Errorf("claude: mcp add-json: %v (%s)", err, strings.TrimSpace(out))
	}

	settings, err := Load(projectPath)
	if err != nil {
		return err
	}
	autoStart := true
	settings.AutoStart = &autoStart
	if settings.AppendSystemPrompt == "" {
		settings.AppendSystemPrompt = contextServerPrompt
	}
	return Save(projectPath, settings)
}

// contextServerPrompt points the CLI at the workbench's context server
// for task and document state.
const contextServerPrompt = "Use the agentdesk-context MCP server to record tasks and documents you produce while working, and to check existing ones before starting new work."
