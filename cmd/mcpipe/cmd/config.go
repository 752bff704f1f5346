package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServerConfig is one entry in the server registry: a short name mapped to
// the executable and arguments that launch that MCP server.
type ServerConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

type registry struct {
	Servers []ServerConfig `yaml:"servers"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mcpipe", "servers.yaml")
}

func loadRegistry(path string) (registry, error) {
	var reg registry

	data, err := os.ReadFile(path)
	if err != nil {
		return reg, err
	}
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return reg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return reg, nil
}

// resolveServer maps the --server flag to a command and arguments. A value
// matching a registry entry's name wins; anything else is treated as an
// executable path. A missing default config file is not an error.
func resolveServer(server, configPath string) (string, []string, error) {
	if server == "" {
		return "", nil, errors.New("no server given, use --server")
	}

	explicit := configPath != ""
	if !explicit {
		configPath = defaultConfigPath()
	}

	if configPath != "" {
		reg, err := loadRegistry(configPath)
		switch {
		case err == nil:
			for _, entry := range reg.Servers {
				if entry.Name == server {
					return entry.Command, entry.Args, nil
				}
			}
		case explicit || !errors.Is(err, fs.ErrNotExist):
			return "", nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return server, nil, nil
}
