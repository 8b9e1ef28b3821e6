package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/suykerbuyk/vault-research/internal/classify"
	"github.com/suykerbuyk/vault-research/internal/prompt"
	"github.com/suykerbuyk/vault-research/internal/xai"
)

// Config holds all vault-research configuration. It is loaded once at
// startup and passed explicitly to each operation.
type Config struct {
	VaultPath string `toml:"vault_path"`

	XAI     XAIConfig     `toml:"xai"`
	Prompts PromptsConfig `toml:"prompts"`
	Archive ArchiveConfig `toml:"archive"`
	Note    NoteConfig    `toml:"note"`
	Watch   WatchConfig   `toml:"watch"`
	Log     LogConfig     `toml:"log"`

	// Path is the file the config was read from, "" when defaults were used.
	Path string `toml:"-"`
}

type XAIConfig struct {
	APIKey         string `toml:"api_key"`
	APIKeyEnv      string `toml:"api_key_env"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	SearchMode     string `toml:"search_mode"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	SourceLabel    string `toml:"source_label"`
}

type PromptsConfig struct {
	Person  string `toml:"person,multiline"`
	Company string `toml:"company,multiline"`
	Product string `toml:"product,multiline"`
}

type ArchiveConfig struct {
	Enabled bool `toml:"enabled"`
}

type NoteConfig struct {
	// DemoteHeadings shifts headings in the completion below the section
	// header. Off by default: the completion is appended as returned.
	DemoteHeadings bool `toml:"demote_headings"`
}

type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	tmpl := prompt.DefaultTemplates()
	return Config{
		VaultPath: "~/obsidian/vault",
		XAI: XAIConfig{
			APIKeyEnv:      "XAI_API_KEY",
			BaseURL:        xai.DefaultBaseURL,
			Model:          xai.DefaultModel,
			SearchMode:     xai.SearchOn,
			TimeoutSeconds: 0,
			SourceLabel:    "xAIより",
		},
		Prompts: PromptsConfig{
			Person:  tmpl[classify.Person],
			Company: tmpl[classify.Company],
			Product: tmpl[classify.Product],
		},
		Archive: ArchiveConfig{
			Enabled: true,
		},
		Watch: WatchConfig{
			DebounceMS: 1500,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads config from the standard path, falling back to defaults.
func Load() (Config, error) {
	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	cfg := DefaultConfig()
	if err := cfg.finish(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile reads config from path on top of the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Path = path
	if err := cfg.finish(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	c.VaultPath = expandHome(c.VaultPath)
	return loadDotenv(".env", filepath.Join(c.VaultPath, ".env"))
}

// loadDotenv exports variables from existing .env files. Variables already
// set in the environment win. A file that does not parse is an error.
func loadDotenv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "vault-research", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "vault-research", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// APIKey returns the configured key, or the value of api_key_env.
func (c Config) APIKey() string {
	if k := strings.TrimSpace(c.XAI.APIKey); k != "" {
		return k
	}
	if c.XAI.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.XAI.APIKeyEnv))
}

// Template returns the prompt template for kind, falling back to the
// built-in template when the configured one is blank.
func (c Config) Template(kind classify.Classification) string {
	var t string
	switch kind {
	case classify.Person:
		t = c.Prompts.Person
	case classify.Company:
		t = c.Prompts.Company
	case classify.Product:
		t = c.Prompts.Product
	}
	if strings.TrimSpace(t) == "" {
		return prompt.DefaultTemplates()[kind]
	}
	return t
}

// StateDir returns the .vault-research state directory inside the vault.
func (c Config) StateDir() string {
	return filepath.Join(c.VaultPath, ".vault-research")
}

// ResponsesDir returns where raw API responses are archived.
func (c Config) ResponsesDir() string {
	return filepath.Join(c.StateDir(), "responses")
}

// HistoryPath returns the research history database path.
func (c Config) HistoryPath() string {
	return filepath.Join(c.StateDir(), "history.db")
}
