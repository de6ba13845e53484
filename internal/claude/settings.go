// Package claude manages the per-project settings document shared with
// the claude CLI and probes the CLI itself.
package claude

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	settingsDir  = ".claude"
	settingsFile = "settings.local.json"

	// ServerName is how the workbench's context server registers with
	// the claude CLI.
	ServerName = "agentdesk-context"
)

// ServerConfig describes one MCP server entry in the settings document.
type ServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// ProjectSettings mirrors .claude/settings.local.json. Other tools write
// to the same file, so fields this code does not understand are carried
// in Extra and written back out unchanged.
type ProjectSettings struct {
	Servers            map[string]ServerConfig
	Model              string
	AutoStart          *bool
	AppendSystemPrompt string
	Extra              map[string]json.RawMessage
}

// MarshalJSON flattens the known fields and Extra into one object. Known
// fields win over Extra entries of the same name.
func (s ProjectSettings) MarshalJSON() ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(s.Extra)+4)
	for k, v := range s.Extra {
		doc[k] = v
	}

	set := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("claude: encode %s: %w", key, err)
		}
		doc[key] = raw
		return nil
	}

	if len(s.Servers) > 0 {
		if err := set("mcpServers", s.Servers); err != nil {
			return nil, err
		}
	}
	if s.Model != "" {
		if err := set("model", s.Model); err != nil {
			return nil, err
		}
	}
	if s.AutoStart != nil {
		if err := set("autoStartClaude", *s.AutoStart); err != nil {
			return nil, err
		}
	}
	if s.AppendSystemPrompt != "" {
		if err := set("appendSystemPrompt", s.AppendSystemPrompt); err != nil {
			return nil, err
		}
	}

	return json.Marshal(doc)
}

// UnmarshalJSON splits an object into the known fields and Extra.
func (s *ProjectSettings) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	*s = ProjectSettings{}

	if raw, ok := doc["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &s.Servers); err != nil {
			return fmt.Errorf("claude: decode mcpServers: %w", err)
		}
		delete(doc, "mcpServers")
	}
	if raw, ok := doc["model"]; ok {
		if err := json.Unmarshal(raw, &s.Model); err != nil {
			return fmt.Errorf("claude: decode model: %w", err)
		}
		delete(doc, "model")
	}
	if raw, ok := doc["autoStartClaude"]; ok {
		if err := json.Unmarshal(raw, &s.AutoStart); err != nil {
			return fmt.Errorf("claude: decode autoStartClaude: %w", err)
		}
		delete(doc, "autoStartClaude")
	}
	if raw, ok := doc["appendSystemPrompt"]; ok {
		if err := json.Unmarshal(raw, &s.AppendSystemPrompt); err != nil {
			return fmt.Errorf("claude: decode appendSystemPrompt: %w", err)
		}
		delete(doc, "appendSystemPrompt")
	}

	if len(doc) > 0 {
		s.Extra = doc
	}
	return nil
}

// Load reads a project's settings document. A project without one yet
// gets zero settings, not an error.
func Load(projectPath string) (ProjectSettings, error) {
	var s ProjectSettings
	data, err := os.ReadFile(settingsPath(projectPath))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("claude: read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("claude: parse settings: %w", err)
	}
	return s, nil
}

// Save writes the settings document, creating .claude/ as needed.
func Save(projectPath string, s ProjectSettings) error {
	dir := filepath.Join(projectPath, settingsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("claude: create settings dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("claude: encode settings: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, settingsFile), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("claude: write settings: %w", err)
	}
	return nil
}

func settingsPath(projectPath string) string {
	return filepath.Join(projectPath, settingsDir, settingsFile)
}
