package research

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suykerbuyk/vault-research/internal/archive"
	"github.com/suykerbuyk/vault-research/internal/classify"
	"github.com/suykerbuyk/vault-research/internal/history"
	"github.com/suykerbuyk/vault-research/internal/note"
	"github.com/suykerbuyk/vault-research/internal/noteparse"
	"github.com/suykerbuyk/vault-research/internal/prompt"
	"github.com/suykerbuyk/vault-research/internal/xai"
)

// headingLevel is the shallowest heading left in an appended section when
// note.demote_headings is on; the section itself is an h1.
const headingLevel = 2

// RunOptions adjusts a single research run.
type RunOptions struct {
	// DryRun builds the prompt without sending it or touching the note.
	DryRun bool
}

// Result describes a finished run.
type Result struct {
	RunID          string
	NotePath       string
	Classification classify.Classification
	Prompt         string
	Text           string
	ArchivePath    string
	DryRun         bool
}

// Run researches the note at notePath: classify, build the prompt, call
// the API, append, notify. Every failure shows a notice and ends the run.
func (p *Plugin) Run(ctx context.Context, notePath string, opts RunOptions) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil, ErrNotStarted
	}

	apiKey := p.cfg.APIKey()
	if apiKey == "" && !opts.DryRun {
		p.notify.Show("xAI API key is not set; run `vr config set xai.api_key <key>` or export " + p.keyEnv())
		return nil, ErrNoAPIKey
	}

	info, err := os.Stat(notePath)
	if err != nil || !info.Mode().IsRegular() {
		p.notify.Show("no active note: " + notePath)
		return nil, fmt.Errorf("%w: %s", ErrNoNote, notePath)
	}

	n, err := noteparse.ParseFile(notePath)
	if err != nil {
		p.notify.Show("cannot read note: " + err.Error())
		return nil, err
	}

	kind, err := classify.FromFrontmatter(n.Frontmatter)
	if err != nil {
		p.notify.Show("add a #person, #company or #product tag to " + n.Name)
		return nil, fmt.Errorf("classify %s: %w", n.Name, err)
	}

	fields := FieldsOf(n)
	text, err := prompt.Build(kind, p.cfg.Template(kind), fields)
	if err != nil {
		if errors.Is(err, prompt.ErrMissingDomain) {
			p.notify.Show("company research needs a domain in the frontmatter of " + n.Name)
		} else {
			p.notify.Show("cannot build prompt: " + err.Error())
		}
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	res := &Result{
		RunID:          uuid.NewString(),
		NotePath:       notePath,
		Classification: kind,
		Prompt:         text,
		DryRun:         opts.DryRun,
	}
	log := p.log.With(
		zap.String("run", res.RunID),
		zap.String("note", n.Name),
		zap.Stringer("classification", kind))
	log.Debug("prompt built", zap.Int("bytes", len(text)))

	if opts.DryRun {
		return res, nil
	}

	section := note.Section(kind)
	hide := p.notify.Loading(fmt.Sprintf("fetching %s for %s from xAI...", section, n.Name))
	start := time.Now()
	comp, err := p.completer(apiKey).Complete(ctx, text)
	hide()
	if err != nil {
		p.notify.Show("xAI API error: " + err.Error())
		log.Warn("request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		p.record(res, history.StatusFailed, err)
		return nil, fmt.Errorf("complete: %w", err)
	}
	log.Info("completion received",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(comp.Text)),
		zap.Bool("fallback", comp.Fallback))

	res.Text = comp.Text
	if p.cfg.Note.DemoteHeadings && !comp.Fallback {
		res.Text = note.DemoteHeadings(comp.Text, headingLevel)
	}

	if err := note.Append(notePath, note.Block(kind, p.cfg.XAI.SourceLabel, res.Text)); err != nil {
		p.notify.Show("cannot update note: " + err.Error())
		p.record(res, history.StatusFailed, err)
		return nil, err
	}

	if p.cfg.Archive.Enabled && len(comp.Raw) > 0 && p.inVault(notePath) {
		path, err := archive.Store(p.cfg.ResponsesDir(), res.RunID, comp.Raw)
		if err != nil {
			log.Warn("archive response", zap.Error(err))
		} else {
			res.ArchivePath = path
		}
	}

	p.record(res, history.StatusOK, nil)
	p.notify.Show(fmt.Sprintf("appended %s to %s", section, n.Name))
	return res, nil
}

// Researched reports whether notePath already has a successful run on
// record or already carries a research section.
func (p *Plugin) Researched(ctx context.Context, notePath string, n *noteparse.Note, kind classify.Classification) (bool, error) {
	if n.HasHeading(note.Header(kind, p.cfg.XAI.SourceLabel)) {
		return true, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return false, ErrNotStarted
	}
	store := p.openHistory(false)
	if store == nil {
		return false, nil
	}
	last, err := store.LastSuccess(ctx, p.relPath(notePath))
	if err != nil {
		return false, err
	}
	return last != nil, nil
}

// FieldsOf extracts the subject fields of a note. The note's file name is
// the subject name.
func FieldsOf(n *noteparse.Note) prompt.Fields {
	return prompt.Fields{
		Name:    n.Name,
		Email:   n.String("email"),
		Company: n.String("company"),
		Domain:  n.String("domain"),
		Title:   n.String("title"),
		Contact: n.String("contact"),
	}
}

// record stores the outcome of a run that reached the API. Notes outside
// the vault are not recorded. Callers hold p.mu.
func (p *Plugin) record(res *Result, status string, runErr error) {
	if !p.inVault(res.NotePath) {
		return
	}
	store := p.openHistory(true)
	if store == nil {
		return
	}
	e := history.Entry{
		ID:             res.RunID,
		NotePath:       p.relPath(res.NotePath),
		Classification: res.Classification.String(),
		Status:         status,
		Model:          p.model(),
		ArchivePath:    res.ArchivePath,
	}
	if runErr != nil {
		e.Error = runErr.Error()
	}
	// Runs are already done; a history failure is only worth a log line.
	if _, err := store.Record(context.Background(), e); err != nil {
		p.log.Warn("record history", zap.Error(err))
	}
}

// inVault reports whether path lies inside an existing vault directory.
func (p *Plugin) inVault(path string) bool {
	if !p.vaultExists() {
		return false
	}
	return !filepath.IsAbs(p.relPath(path))
}

// relPath makes path relative to the vault when it lives inside it.
func (p *Plugin) relPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	vault, err := filepath.Abs(p.cfg.VaultPath)
	if err != nil || p.cfg.VaultPath == "" {
		return abs
	}
	rel, err := filepath.Rel(vault, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return filepath.ToSlash(rel)
}

func (p *Plugin) model() string {
	if p.cfg.XAI.Model != "" {
		return p.cfg.XAI.Model
	}
	return xai.DefaultModel
}

func (p *Plugin) keyEnv() string {
	if p.cfg.XAI.APIKeyEnv != "" {
		return p.cfg.XAI.APIKeyEnv
	}
	return "XAI_API_KEY"
}
