// Package config loads the workbench configuration from
// ~/.config/agentdesk/config.yaml, overlaid by command-line flags.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port       int    `yaml:"port"`
	Token      string `yaml:"token"`
	DataDir    string `yaml:"data_dir"`
	Shell      string `yaml:"shell,omitempty"`
	ServerPath string `yaml:"server_path,omitempty"`

	ConfigPath string `yaml:"-"`
	PrintToken bool   `yaml:"-"`
}

// Load builds the configuration in three layers: defaults, then the
// config file if present, then flags. A missing token is generated and
// persisted so restarts keep the same one.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("config: resolve home directory: %w", err)
	}

	cfg := &Config{
		Port:       8765,
		DataDir:    filepath.Join(homeDir, ".local", "share", "agentdesk"),
		ConfigPath: filepath.Join(homeDir, ".config", "agentdesk", "config.yaml"),
	}

	if err := cfg.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load %q: %w", cfg.ConfigPath, err)
	}

	flag.IntVar(&cfg.Port, "port", cfg.Port, "server port (1-65535)")
	flag.StringVar(&cfg.Token, "token", cfg.Token, "authentication token (auto-generated if empty)")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the drawer database")
	flag.StringVar(&cfg.Shell, "shell", cfg.Shell, "shell for new terminal sessions (defaults to $SHELL)")
	flag.StringVar(&cfg.ServerPath, "server-path", cfg.ServerPath, "explicit context server executable")
	flag.BoolVar(&cfg.PrintToken, "print-token", false, "print token to stdout (for local debugging)")
	flag.Parse()

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: invalid port %d: must be between 1 and 65535", cfg.Port)
	}

	if cfg.Token == "" {
		token, err := generateToken()
		if err != nil {
			return nil, fmt.Errorf("config: generate token: %w", err)
		}
		cfg.Token = token
		if err := cfg.saveToFile(); err != nil {
			return nil, fmt.Errorf("config: save %q: %w", cfg.ConfigPath, err)
		}
	}

	return cfg, nil
}

// DBPath is where the drawer database lives inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "agentdesk.db")
}

func (c *Config) loadFromFile() error {
	data, err := os.ReadFile(c.ConfigPath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) saveToFile() error {
	dir := filepath.Dir(c.ConfigPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.ConfigPath, data, 0o600)
}

func generateToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
