// gen-man writes the vr man pages. Usage: gen-man [dir] [--date YYYY-MM-DD]
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/suykerbuyk/vault-research/internal/help"
)

func main() {
	dir := "man"
	date := time.Now().Format("2006-01-02")

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		if args[i] == "--date" && i+1 < len(args) {
			date = args[i+1]
			i++
			continue
		}
		dir = args[i]
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		fatal(fmt.Errorf("invalid --date %q", date))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		fatal(err)
	}

	if err := write(dir, "vr.1", help.FormatRoffTopLevel(help.TopLevel, help.Subcommands, date)); err != nil {
		fatal(err)
	}

	pages := append(append([]help.Command{}, help.Subcommands...), help.ConfigSubcommands...)
	for _, cmd := range pages {
		if err := write(dir, cmd.ManName()+".1", help.FormatRoff(cmd, date)); err != nil {
			fatal(err)
		}
	}
}

func write(dir, name, content string) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  %s\n", path)
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "gen-man: %v\n", err)
	os.Exit(1)
}
