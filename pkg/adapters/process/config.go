package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CommandConfig describes one allow-listed command.
type CommandConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of a commands file.
type ConfigFile struct {
	// Default names the command used for targets without a registered prefix.
	Default  string          `yaml:"default" json:"default"`
	Commands []CommandConfig `yaml:"commands" json:"commands"`
}

// LoadConfig reads a commands file (YAML or JSON, by extension).
func LoadConfig(path string) (ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ConfigFile{}, fmt.Errorf("failed to read commands config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return ConfigFile{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return ConfigFile{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	for i, c := range cfg.Commands {
		if c.Name == "" || c.Command == "" {
			return ConfigFile{}, fmt.Errorf("%s: command #%d needs a name and a command", path, i+1)
		}
	}
	if cfg.Default != "" && !cfg.has(cfg.Default) {
		return ConfigFile{}, fmt.Errorf("%s: default command %q is not defined", path, cfg.Default)
	}
	return cfg, nil
}

func (c ConfigFile) has(name string) bool {
	for _, cmd := range c.Commands {
		if cmd.Name == name {
			return true
		}
	}
	return false
}
