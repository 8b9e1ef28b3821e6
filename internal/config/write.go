package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/suykerbuyk/vault-research/internal/xai"
)

// ConfigDir returns the vault-research config directory path.
// Uses $XDG_CONFIG_HOME/vault-research if set, otherwise ~/.config/vault-research.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vault-research")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "vault-research")
}

// DefaultPath returns the config.toml path inside ConfigDir.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// WriteDefault writes a default config.toml pointing to vaultPath.
// Returns the config file path. Skips if config.toml already exists.
func WriteDefault(vaultPath string) (string, error) {
	path := DefaultPath()

	if _, err := os.Stat(path); err == nil {
		return path, nil // already exists
	}

	cfg := DefaultConfig()
	if vaultPath != "" {
		cfg.VaultPath = vaultPath
	}
	if err := Save(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}

// Save encodes cfg as TOML to path, creating the parent directory. The vault
// path is written with ~/ for portability.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	cfg.VaultPath = CompressHome(cfg.VaultPath)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	// May hold an API key.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Keys lists the settings accepted by Set.
var Keys = []string{
	"vault_path",
	"xai.api_key",
	"xai.api_key_env",
	"xai.base_url",
	"xai.model",
	"xai.search_mode",
	"xai.timeout_seconds",
	"xai.source_label",
	"prompts.person",
	"prompts.company",
	"prompts.product",
	"archive.enabled",
	"note.demote_headings",
	"watch.debounce_ms",
	"log.level",
	"log.format",
}

// Set assigns value to the setting named key.
func Set(cfg *Config, key, value string) error {
	switch key {
	case "vault_path":
		cfg.VaultPath = expandHome(value)
	case "xai.api_key", "api_key":
		cfg.XAI.APIKey = strings.TrimSpace(value)
	case "xai.api_key_env":
		cfg.XAI.APIKeyEnv = value
	case "xai.base_url":
		cfg.XAI.BaseURL = value
	case "xai.model", "model":
		cfg.XAI.Model = value
	case "xai.search_mode", "search_mode":
		if !xai.ValidSearchMode(value) {
			return fmt.Errorf("search_mode must be %q or %q, got %q", xai.SearchOn, xai.SearchAuto, value)
		}
		cfg.XAI.SearchMode = value
	case "xai.timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("timeout_seconds must be a non-negative integer, got %q", value)
		}
		cfg.XAI.TimeoutSeconds = n
	case "xai.source_label":
		cfg.XAI.SourceLabel = value
	case "prompts.person":
		cfg.Prompts.Person = value
	case "prompts.company":
		cfg.Prompts.Company = value
	case "prompts.product":
		cfg.Prompts.Product = value
	case "archive.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("archive.enabled must be true or false, got %q", value)
		}
		cfg.Archive.Enabled = b
	case "note.demote_headings":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("note.demote_headings must be true or false, got %q", value)
		}
		cfg.Note.DemoteHeadings = b
	case "watch.debounce_ms":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("debounce_ms must be a non-negative integer, got %q", value)
		}
		cfg.Watch.DebounceMS = n
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// CompressHome replaces $HOME prefix with ~/ for portable config values.
func CompressHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home+"/") {
		return "~/" + path[len(home)+1:]
	}
	if path == home {
		return "~"
	}
	return path
}
