package help

import "strings"

// Version is the vr release version, set at build time via -ldflags.
// Defaults to "dev" when built without version injection (e.g. `go run`).
var Version = "dev"

// Flag describes a command-line flag.
type Flag struct {
	Name string // e.g. "--dry-run" or "--limit <n>"
	Desc string
}

// Arg describes a positional argument.
type Arg struct {
	Name     string // e.g. "note.md" or "key"
	Desc     string
	Optional bool
}

// Command describes a vr subcommand (or the top-level binary when Name is "").
type Command struct {
	Name        string   // "research", "config set", etc; "" for top-level
	Synopsis    string   // one-line description (lowercase, for --help header)
	Brief       string   // short description for usage table (capitalized)
	Usage       string   // full usage line, e.g. "vr research <note.md> [--dry-run]"
	TableUsage  string   // shortened usage for the top-level table (if different from Usage)
	Args        []Arg
	Flags       []Flag
	Description string   // multi-line prose (stored verbatim)
	Examples    []string // one per line, without leading 2-space indent
	SeeAlso     []string // man page cross-refs, e.g. "vr(1)"
}

// tableUsage returns TableUsage if set, otherwise Usage.
func (c Command) tableUsage() string {
	if c.TableUsage != "" {
		return c.TableUsage
	}
	return c.Usage
}

// ManName returns the man page name: "vr" for top-level, "vr-<name>" for subs.
// Spaces in Name become hyphens ("config set" is "vr-config-set").
func (c Command) ManName() string {
	if c.Name == "" {
		return "vr"
	}
	return "vr-" + strings.ReplaceAll(c.Name, " ", "-")
}

// TopLevel is the top-level vr command (used by FormatUsage).
var TopLevel = Command{
	Name:     "",
	Synopsis: "xAI research for Obsidian notes",
}

var CmdResearch = Command{
	Name:       "research",
	Synopsis:   "research the subject of a note and append the result",
	Brief:      "Research one note and append the result",
	Usage:      "vr research <note.md> [--dry-run]",
	TableUsage: "vr research <note.md>",
	Args: []Arg{
		{Name: "note.md", Desc: "Markdown note tagged #person, #company or #product"},
	},
	Flags: []Flag{
		{Name: "--dry-run", Desc: "Print the prompt without calling the API"},
	},
	Description: `Reads the note's frontmatter, classifies it by tag, builds the prompt
for that classification and sends it to the xAI chat completions API
with live search enabled. The answer is appended to the end of the note
under a "# 人物情報 (xAIより):" style section header. Headings in
the answer are demoted so the section header stays the outermost one.

Company notes need a domain field. A note without a recognized tag, or
a failed request, leaves the note untouched.`,
	Examples: []string{
		"vr research People/Jane.md                 Research a person note",
		"vr research Companies/Acme.md --dry-run    Show the prompt only",
	},
	SeeAlso: []string{"vr(1)", "vr-watch(1)", "vr-history(1)"},
}

var CmdWatch = Command{
	Name:     "watch",
	Synopsis: "research notes as they are saved",
	Brief:    "Watch the vault and research new notes",
	Usage:    "vr watch",
	Description: `Watches every directory of the vault except hidden ones such as
.obsidian. When a markdown note settles (no further writes within
watch.debounce_ms) and carries a recognized tag, it is researched
unless it already has a research section or a successful run on record.

Runs until interrupted.`,
	SeeAlso: []string{"vr(1)", "vr-research(1)"},
}

var CmdHistory = Command{
	Name:       "history",
	Synopsis:   "list recent research runs",
	Brief:      "List recent research runs",
	Usage:      "vr history [--limit <n>] [--raw <id>]",
	TableUsage: "vr history [--limit <n>]",
	Flags: []Flag{
		{Name: "--limit <n>", Desc: "Number of runs to show (default: 20, 0 for all)"},
		{Name: "--raw <id>", Desc: "Print the archived API response of a run id or archive path"},
	},
	Description: `Prints runs recorded in .vault-research/history.db, newest first, with
their status, classification, model and note path. Failed runs include
the error. Runs whose raw response was archived are marked with *.`,
	SeeAlso: []string{"vr(1)", "vr-research(1)"},
}

var CmdConfig = Command{
	Name:       "config",
	Synopsis:   "show or change configuration",
	Brief:      "Show or change configuration",
	Usage:      "vr config [show | set <key> <value> | init [vault]]",
	TableUsage: "vr config [show | set | init]",
	Description: `Manages ~/.config/vault-research/config.toml.

Subcommands:
  vr config show               Print the effective configuration
  vr config set <key> <value>  Change one setting
  vr config init [vault]       Write a default config file`,
	SeeAlso: []string{"vr(1)", "vr-config-show(1)", "vr-config-set(1)", "vr-config-init(1)"},
}

var CmdCheck = Command{
	Name:     "check",
	Synopsis: "validate config, vault, and API setup",
	Brief:    "Validate config, vault, and API setup",
	Usage:    "vr check",
	Description: `Runs diagnostic checks and prints a pass/warn/FAIL report:
  - Config file location
  - Vault directory exists
  - Obsidian config present (.obsidian/)
  - State directory (.vault-research/)
  - History database and run count
  - xAI API key
  - Prompt templates
  - Search mode

Exit code 0 if all checks pass or warn, 1 if any check fails.`,
	SeeAlso: []string{"vr(1)", "vr-config(1)"},
}

var CmdVersion = Command{
	Name:     "version",
	Synopsis: "print version",
	Brief:    "Print version",
	Usage:    "vr version",
	SeeAlso:  []string{"vr(1)"},
}

var CmdConfigShow = Command{
	Name:     "config show",
	Synopsis: "print the effective configuration",
	Brief:    "Print the effective configuration",
	Usage:    "vr config show",
	Description: `Prints the configuration after defaults, the config file and .env
files are applied. The API key is masked.`,
	SeeAlso: []string{"vr(1)", "vr-config(1)"},
}

var CmdConfigSet = Command{
	Name:     "config set",
	Synopsis: "change one configuration setting",
	Brief:    "Change one configuration setting",
	Usage:    "vr config set <key> <value>",
	Args: []Arg{
		{Name: "key", Desc: "Dotted key, e.g. xai.model or watch.debounce_ms"},
		{Name: "value", Desc: "New value"},
	},
	Description: `Validates the value, then rewrites the config file. Creates the file
with defaults first if it does not exist.`,
	Examples: []string{
		"vr config set xai.search_mode auto",
		"vr config set vault_path ~/obsidian/work",
	},
	SeeAlso: []string{"vr(1)", "vr-config(1)"},
}

var CmdConfigInit = Command{
	Name:     "config init",
	Synopsis: "write a default config file",
	Brief:    "Write a default config file",
	Usage:    "vr config init [vault]",
	Args: []Arg{
		{Name: "vault", Desc: "Vault path to record (default: ~/obsidian/vault)", Optional: true},
	},
	Description: `Writes ~/.config/vault-research/config.toml with default settings and
the built-in prompt templates. An existing file is left alone.`,
	SeeAlso: []string{"vr(1)", "vr-config(1)"},
}

// ConfigSubcommands is the ordered list of config sub-subcommands.
var ConfigSubcommands = []Command{
	CmdConfigShow,
	CmdConfigSet,
	CmdConfigInit,
}

// Subcommands is the ordered list of all subcommands.
var Subcommands = []Command{
	CmdResearch,
	CmdWatch,
	CmdHistory,
	CmdConfig,
	CmdCheck,
	CmdVersion,
}
