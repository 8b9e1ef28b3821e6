// Package note writes research results back into Obsidian notes.
package note

import (
	"fmt"
	"os"

	"github.com/suykerbuyk/vault-research/internal/classify"
)

// DefaultSource labels where appended text came from.
const DefaultSource = "xAIより"

// Section returns the section title for a classification.
func Section(kind classify.Classification) string {
	switch kind {
	case classify.Person:
		return "人物情報"
	case classify.Company:
		return "企業情報"
	case classify.Product:
		return "製品情報"
	default:
		return "調査結果"
	}
}

// Header returns the heading line that opens a research section, without
// the trailing colon. Used to detect notes that were already researched.
func Header(kind classify.Classification, source string) string {
	if source == "" {
		source = DefaultSource
	}
	return fmt.Sprintf("# %s (%s)", Section(kind), source)
}

// Block formats text as a research section ready to append.
func Block(kind classify.Classification, source, text string) string {
	return fmt.Sprintf("\n---\n%s:\n%s\n", Header(kind, source), text)
}

// Append adds block to the end of the note at path. The note must exist.
func Append(path, block string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("open note: %w", err)
	}

	if _, err := f.WriteString(block); err != nil {
		f.Close()
		return fmt.Errorf("append note: %w", err)
	}
	return f.Close()
}
