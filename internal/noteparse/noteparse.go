package noteparse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Note represents a parsed Obsidian note with frontmatter and body.
type Note struct {
	// Name is the file basename without the .md extension. Obsidian uses it
	// as the note title, and research uses it as the subject name.
	Name string

	// Frontmatter holds the decoded YAML block. Never nil.
	Frontmatter map[string]any

	// Body is everything after the closing frontmatter delimiter.
	Body string
}

// ParseFile reads and parses a note from disk.
func ParseFile(path string) (*Note, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	note, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	note.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return note, nil
}

// Parse reads and parses a note from a reader. Notes without a leading
// "---" block parse with an empty frontmatter map.
func Parse(r io.Reader) (*Note, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	note := &Note{
		Frontmatter: make(map[string]any),
	}

	// State machine for frontmatter
	inFrontmatter := false
	frontmatterDone := false
	var fmLines, bodyLines []string

	for scanner.Scan() {
		line := scanner.Text()

		if !inFrontmatter && !frontmatterDone {
			frontmatterDone = true
			if strings.TrimSpace(line) == "---" {
				inFrontmatter = true
				frontmatterDone = false
				continue
			}
			bodyLines = append(bodyLines, line)
			continue
		}

		if inFrontmatter {
			if strings.TrimSpace(line) == "---" {
				inFrontmatter = false
				frontmatterDone = true
				continue
			}
			fmLines = append(fmLines, line)
			continue
		}

		bodyLines = append(bodyLines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// An unterminated block is not frontmatter.
	if inFrontmatter {
		note.Body = strings.Join(append([]string{"---"}, fmLines...), "\n")
		return note, nil
	}

	if len(fmLines) > 0 {
		src := []byte(strings.Join(fmLines, "\n"))
		if len(bytes.TrimSpace(src)) > 0 {
			if err := yaml.Unmarshal(src, &note.Frontmatter); err != nil {
				return nil, fmt.Errorf("frontmatter: %w", err)
			}
			if note.Frontmatter == nil {
				note.Frontmatter = make(map[string]any)
			}
		}
	}

	note.Body = strings.Join(bodyLines, "\n")
	return note, nil
}

// String returns a frontmatter value as trimmed text. Lists are joined with
// ", ". Missing keys and nulls return "".
func (n *Note) String(key string) string {
	return scalar(n.Frontmatter[key])
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case []any:
		var parts []string
		for _, item := range x {
			if s := scalar(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// HasHeading reports whether the body contains a line starting with prefix,
// ignoring surrounding whitespace.
func (n *Note) HasHeading(prefix string) bool {
	for _, line := range strings.Split(n.Body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			return true
		}
	}
	return false
}
