package check

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/suykerbuyk/vault-research/internal/classify"
	"github.com/suykerbuyk/vault-research/internal/config"
	"github.com/suykerbuyk/vault-research/internal/history"
	"github.com/suykerbuyk/vault-research/internal/xai"
)

// Status represents the outcome of a single check.
type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "FAIL"
	default:
		return "unknown"
	}
}

// Result holds the outcome of a single check.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// Report aggregates all check results.
type Report struct {
	Results []Result
}

// HasFailures returns true if any result has Fail status.
func (r Report) HasFailures() bool {
	for _, res := range r.Results {
		if res.Status == Fail {
			return true
		}
	}
	return false
}

// Format returns the human-readable report string.
func (r Report) Format() string {
	if len(r.Results) == 0 {
		return "vr check\n\n  no checks ran\n"
	}

	maxName := 0
	for _, res := range r.Results {
		if len(res.Name) > maxName {
			maxName = len(res.Name)
		}
	}

	var b strings.Builder
	b.WriteString("vr check\n\n")

	var passed, warnings, failures int
	for _, res := range r.Results {
		switch res.Status {
		case Pass:
			passed++
		case Warn:
			warnings++
		case Fail:
			failures++
		}
		fmt.Fprintf(&b, "  %-4s  %-*s  %s\n", res.Status, maxName, res.Name, res.Detail)
	}

	fmt.Fprintf(&b, "\n%d passed, %d warning, %d failure\n", passed, warnings, failures)
	return b.String()
}

// CheckConfig reports which config file was loaded. Broken TOML never
// gets this far.
func CheckConfig(path string) Result {
	if path == "" {
		return Result{
			Name:   "config",
			Status: Warn,
			Detail: "no config file, using defaults (run `vr config init`)",
		}
	}
	return Result{Name: "config", Status: Pass, Detail: config.CompressHome(path)}
}

// CheckVaultPath checks whether the vault directory exists.
func CheckVaultPath(path string) Result {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return Result{Name: "vault", Status: Pass, Detail: config.CompressHome(path)}
	}
	return Result{Name: "vault", Status: Fail, Detail: path + " not found"}
}

// CheckObsidian checks whether .obsidian/ exists inside the vault.
func CheckObsidian(path string) Result {
	obsDir := filepath.Join(path, ".obsidian")
	if info, err := os.Stat(obsDir); err == nil && info.IsDir() {
		return Result{Name: "obsidian", Status: Pass, Detail: ".obsidian/ found"}
	}
	return Result{Name: "obsidian", Status: Warn, Detail: ".obsidian/ not found (not yet opened in Obsidian)"}
}

// CheckStateDir checks whether the .vault-research state directory exists.
func CheckStateDir(stateDir string) Result {
	if info, err := os.Stat(stateDir); err == nil && info.IsDir() {
		return Result{Name: "state", Status: Pass, Detail: ".vault-research/ found"}
	}
	return Result{Name: "state", Status: Warn, Detail: ".vault-research/ not found (no research yet)"}
}

// CheckHistory counts the runs in the history database. A missing file is
// a warning and is not created.
func CheckHistory(path string) Result {
	if _, err := os.Stat(path); err != nil {
		return Result{Name: "history", Status: Warn, Detail: "history.db not found yet"}
	}

	store, err := history.Open(path)
	if err != nil {
		return Result{Name: "history", Status: Fail, Detail: err.Error()}
	}
	defer store.Close()

	n, err := store.Count(context.Background())
	if err != nil {
		return Result{Name: "history", Status: Fail, Detail: err.Error()}
	}
	return Result{Name: "history", Status: Pass, Detail: fmt.Sprintf("history.db (%d runs)", n)}
}

// CheckAPIKey reports where the xAI key comes from.
func CheckAPIKey(cfg config.Config) Result {
	if strings.TrimSpace(cfg.XAI.APIKey) != "" {
		return Result{Name: "api key", Status: Pass, Detail: "set in config"}
	}
	env := cfg.XAI.APIKeyEnv
	if env == "" {
		return Result{Name: "api key", Status: Fail, Detail: "api_key and api_key_env are both empty"}
	}
	if cfg.APIKey() != "" {
		return Result{Name: "api key", Status: Pass, Detail: env + " set"}
	}
	return Result{Name: "api key", Status: Fail, Detail: env + " not set"}
}

// CheckPrompts reports whether each classification uses a custom or the
// built-in template. A blank effective template fails.
func CheckPrompts(cfg config.Config) Result {
	var custom, missing []string
	for _, kind := range []classify.Classification{classify.Person, classify.Company, classify.Product} {
		if strings.TrimSpace(cfg.Template(kind)) == "" {
			missing = append(missing, kind.String())
			continue
		}
		if !isBuiltin(cfg, kind) {
			custom = append(custom, kind.String())
		}
	}
	if len(missing) > 0 {
		return Result{Name: "prompts", Status: Fail, Detail: "empty template: " + strings.Join(missing, ", ")}
	}
	if len(custom) == 0 {
		return Result{Name: "prompts", Status: Pass, Detail: "built-in templates"}
	}
	return Result{Name: "prompts", Status: Pass, Detail: "custom: " + strings.Join(custom, ", ")}
}

func isBuiltin(cfg config.Config, kind classify.Classification) bool {
	var set string
	switch kind {
	case classify.Person:
		set = cfg.Prompts.Person
	case classify.Company:
		set = cfg.Prompts.Company
	case classify.Product:
		set = cfg.Prompts.Product
	}
	return strings.TrimSpace(set) == ""
}

// CheckSearchMode validates xai.search_mode. Empty means the client default.
func CheckSearchMode(mode string) Result {
	if mode == "" {
		return Result{Name: "search", Status: Pass, Detail: xai.SearchOn + " (default)"}
	}
	if xai.ValidSearchMode(mode) {
		return Result{Name: "search", Status: Pass, Detail: mode}
	}
	return Result{Name: "search", Status: Fail, Detail: fmt.Sprintf("unknown search_mode %q (want %s or %s)", mode, xai.SearchOn, xai.SearchAuto)}
}

// Run executes all checks against the given config and returns a report.
func Run(cfg config.Config) Report {
	var results []Result

	results = append(results, CheckConfig(cfg.Path))
	results = append(results, CheckVaultPath(cfg.VaultPath))
	results = append(results, CheckObsidian(cfg.VaultPath))
	results = append(results, CheckStateDir(cfg.StateDir()))
	results = append(results, CheckHistory(cfg.HistoryPath()))
	results = append(results, CheckAPIKey(cfg))
	results = append(results, CheckPrompts(cfg))
	results = append(results, CheckSearchMode(cfg.XAI.SearchMode))

	return Report{Results: results}
}
