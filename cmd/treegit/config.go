package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmalmi/treegit/pkg/bridge"
)

// identityConfig is the on-disk identity file.
type identityConfig struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".treegit.json")
}

// loadIdentity reads the identity config. A missing file falls back to a
// synthetic identity so read-mostly commands still work.
func loadIdentity(path string) (bridge.Identity, error) {
	if path == "" {
		path = defaultConfigPath()
	}
	fallback := bridge.Identity{Name: "treegit", Email: "treegit@localhost"}
	if path == "" {
		return fallback, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fallback, nil
		}
		return bridge.Identity{}, fmt.Errorf("read config: %w", err)
	}
	var cfg identityConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return bridge.Identity{}, fmt.Errorf("read config: unmarshal: %w", err)
	}
	if cfg.Name == "" {
		cfg.Name = fallback.Name
	}
	if cfg.Email == "" {
		cfg.Email = fallback.Email
	}
	return bridge.Identity{Name: cfg.Name, Email: cfg.Email}, nil
}

// saveIdentity atomically writes the identity config.
func saveIdentity(path string, id bridge.Identity) error {
	if path == "" {
		path = defaultConfigPath()
	}
	if path == "" {
		return fmt.Errorf("write config: no config path")
	}
	data, err := json.MarshalIndent(identityConfig{Name: id.Name, Email: id.Email}, "", "  ")
	if err != nil {
		return fmt.Errorf("write config: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".treegit-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}
