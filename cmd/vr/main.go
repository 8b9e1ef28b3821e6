package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/suykerbuyk/vault-research/internal/archive"
	"github.com/suykerbuyk/vault-research/internal/check"
	"github.com/suykerbuyk/vault-research/internal/config"
	"github.com/suykerbuyk/vault-research/internal/help"
	"github.com/suykerbuyk/vault-research/internal/history"
	"github.com/suykerbuyk/vault-research/internal/logging"
	"github.com/suykerbuyk/vault-research/internal/notice"
	"github.com/suykerbuyk/vault-research/internal/research"
	"github.com/suykerbuyk/vault-research/internal/watch"
)

const defaultHistoryLimit = 20

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "help", "--help", "-h":
		if len(args) > 0 {
			commandHelp(strings.Join(args, " "))
			return
		}
		usage()
		return
	case "version":
		fmt.Printf("vr v%s (vault-research)\n", help.Version)
		return
	}

	if hasFlag(args, "--help") || hasFlag(args, "-h") {
		commandHelp(commandName(cmd, args))
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fatal("%v", err)
	}

	code := 0
	switch cmd {
	case "research":
		code = runResearch(cfg, log, args)

	case "watch":
		code = runWatch(cfg, log)

	case "history":
		if err := runHistory(cfg, args); err != nil {
			fatal("history: %v", err)
		}

	case "config":
		if err := runConfig(cfg, args); err != nil {
			fatal("config: %v", err)
		}

	case "check":
		report := check.Run(cfg)
		fmt.Print(report.Format())
		if report.HasFailures() {
			code = 1
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		code = 1
	}

	log.Sync()
	os.Exit(code)
}

func newPlugin(cfg config.Config, log *zap.Logger) (*research.Plugin, error) {
	p := research.New(cfg, research.Options{
		Notifier: notice.NewTerminal(os.Stderr, "vr"),
		Logger:   log,
	})
	if err := p.Start(); err != nil {
		return nil, err
	}
	return p, nil
}

func runResearch(cfg config.Config, log *zap.Logger, args []string) int {
	paths := positional(args)
	if len(paths) != 1 {
		fmt.Fprintln(os.Stderr, "vr: usage: "+help.CmdResearch.Usage)
		return 1
	}
	dryRun := hasFlag(args, "--dry-run")

	p, err := newPlugin(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vr: %v\n", err)
		return 1
	}
	defer p.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := p.Run(ctx, paths[0], research.RunOptions{DryRun: dryRun})
	if err != nil {
		// The notifier already told the user what went wrong.
		log.Debug("research failed", zap.Error(err))
		return 1
	}
	if res.DryRun {
		fmt.Print(res.Prompt)
	}
	return 0
}

func runWatch(cfg config.Config, log *zap.Logger) int {
	if cfg.APIKey() == "" {
		fmt.Fprintf(os.Stderr, "vr: %v\n", research.ErrNoAPIKey)
		return 1
	}

	p, err := newPlugin(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vr: %v\n", err)
		return 1
	}
	defer func() {
		if err := p.Stop(); err != nil {
			log.Warn("stop", zap.Error(err))
		}
	}()

	debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
	w, err := watch.New(cfg.VaultPath, debounce, p, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vr: %v\n", err)
		return 1
	}
	p.Register(w.Close)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "vr: watching %s (ctrl-c to stop)\n", config.CompressHome(cfg.VaultPath))
	if err := w.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "vr: %v\n", err)
		return 1
	}
	return 0
}

func runHistory(cfg config.Config, args []string) error {
	if id := flagValue(args, "--raw"); id != "" {
		// An archive path works as well as a bare run id.
		if fromPath := archive.ID(id); fromPath != "" {
			id = fromPath
		}
		data, err := archive.Load(archive.Path(id, cfg.ResponsesDir()))
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}

	limit := defaultHistoryLimit
	if v := flagValue(args, "--limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid --limit %q", v)
		}
		limit = n
	}

	if _, err := os.Stat(cfg.HistoryPath()); errors.Is(err, os.ErrNotExist) {
		fmt.Println("no research runs yet")
		return nil
	}

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no research runs yet")
		return nil
	}

	for _, r := range runs {
		mark := " "
		if archive.Exists(r.ID, cfg.ResponsesDir()) {
			mark = "*"
		}
		fmt.Printf("%s  %s%-6s  %-7s  %-14s  %s  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			mark, r.Status, r.Classification, r.Model, r.NotePath, r.ID)
		if r.Error != "" {
			fmt.Printf("    %s\n", r.Error)
		}
	}
	return nil
}

func runConfig(cfg config.Config, args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "show":
		shown := cfg
		shown.XAI.APIKey = mask(shown.XAI.APIKey)
		shown.VaultPath = config.CompressHome(shown.VaultPath)
		if cfg.Path != "" {
			fmt.Printf("# %s\n", config.CompressHome(cfg.Path))
		} else {
			fmt.Println("# defaults (no config file)")
		}
		return toml.NewEncoder(os.Stdout).Encode(shown)

	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: %s", help.CmdConfigSet.Usage)
		}
		path := cfg.Path
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.Set(&cfg, args[1], args[2]); err != nil {
			return err
		}
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		fmt.Printf("set %s in %s\n", args[1], config.CompressHome(path))
		return nil

	case "init":
		vault := ""
		if len(args) > 1 {
			vault = args[1]
		}
		existed := fileExists(config.DefaultPath())
		path, err := config.WriteDefault(vault)
		if err != nil {
			return err
		}
		if existed {
			fmt.Printf("config already exists: %s\n", config.CompressHome(path))
		} else {
			fmt.Printf("wrote %s\n", config.CompressHome(path))
		}
		return nil

	default:
		return fmt.Errorf("unknown subcommand %q (want show, set or init)", sub)
	}
}

func mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func usage() {
	fmt.Fprint(os.Stderr, help.FormatUsage(help.TopLevel, help.Subcommands))
}

func commandHelp(name string) {
	all := append(append([]help.Command{}, help.Subcommands...), help.ConfigSubcommands...)
	for _, c := range all {
		if c.Name == name {
			fmt.Print(help.FormatTerminal(c))
			return
		}
	}
	fatal("no help for %q", name)
}

// commandName returns "config set" style names for sub-subcommands.
func commandName(cmd string, args []string) string {
	if cmd == "config" && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return cmd + " " + args[0]
	}
	return cmd
}

func flagValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

// positional returns args that are not flags. Only valueless flags may be
// mixed with positional args.
func positional(args []string) []string {
	var out []string
	for _, a := range args {
		if strings.HasPrefix(a, "-") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "vr: "+format+"\n", args...)
	os.Exit(1)
}
