package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/suykerbuyk/vault-research/internal/classify"
)

// ErrMissingDomain is returned when a company note has no domain.
var ErrMissingDomain = errors.New("company research requires a domain")

// Fields holds the known attributes of a note's subject.
type Fields struct {
	Name    string
	Email   string
	Company string
	Domain  string
	Title   string
	Contact string
}

type line struct {
	label string
	value func(Fields) string
}

// layouts fixes the field order and labels per classification.
var layouts = map[classify.Classification][]line{
	classify.Person: {
		{"メールアドレス", func(f Fields) string { return f.Email }},
		{"名前", func(f Fields) string { return f.Name }},
		{"会社", func(f Fields) string { return f.Company }},
		{"職位", func(f Fields) string { return f.Title }},
		{"連絡先", func(f Fields) string { return f.Contact }},
	},
	classify.Company: {
		{"企業名", func(f Fields) string { return f.Name }},
		{"domain", func(f Fields) string { return f.Domain }},
	},
	classify.Product: {
		{"製品名", func(f Fields) string { return f.Name }},
		{"提供企業", func(f Fields) string { return f.Company }},
		{"domain", func(f Fields) string { return f.Domain }},
		{"問い合わせ先", func(f Fields) string { return f.Contact }},
	},
}

// Build appends one "<label>: <value>" line per present field to template,
// in the classification's field order, and terminates the prompt with a
// newline.
func Build(kind classify.Classification, template string, f Fields) (string, error) {
	layout, ok := layouts[kind]
	if !ok {
		return "", fmt.Errorf("no prompt layout for %s", kind)
	}
	if kind == classify.Company && strings.TrimSpace(f.Domain) == "" {
		return "", ErrMissingDomain
	}

	var b strings.Builder
	b.WriteString(template)
	for _, l := range layout {
		v := strings.TrimSpace(l.value(f))
		if v == "" {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s", l.label, v)
	}
	b.WriteString("\n")

	return b.String(), nil
}
