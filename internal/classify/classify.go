package classify

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Classification is the inferred subject type of a note.
type Classification int

const (
	Person Classification = iota
	Company
	Product
)

// ErrMissingTag is returned when no tag maps to a classification.
var ErrMissingTag = errors.New("missing recognized tag")

// priority is the match order: the first classification present wins.
var priority = []Classification{Person, Company, Product}

func (c Classification) String() string {
	switch c {
	case Person:
		return "person"
	case Company:
		return "company"
	case Product:
		return "product"
	default:
		return "unknown"
	}
}

// Tags normalizes a raw frontmatter tag value into a lowercase token list.
// raw may be a string ("#person, vip") or a list of scalars.
func Tags(raw any) []string {
	var parts []string
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		parts = []string{v}
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			if item == nil {
				continue
			}
			parts = append(parts, fmt.Sprint(item))
		}
	default:
		parts = []string{fmt.Sprint(v)}
	}

	var tags []string
	for _, p := range parts {
		for _, tok := range strings.FieldsFunc(p, isSeparator) {
			tok = strings.ToLower(strings.TrimPrefix(tok, "#"))
			if tok != "" {
				tags = append(tags, tok)
			}
		}
	}
	return tags
}

func isSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

// Classify returns the first classification found in tags, in the order
// Person, Company, Product.
func Classify(tags []string) (Classification, error) {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	for _, c := range priority {
		if set[c.String()] {
			return c, nil
		}
	}
	return 0, ErrMissingTag
}

// FromFrontmatter classifies a note by its "tags" key, falling back to "tag".
func FromFrontmatter(fm map[string]any) (Classification, error) {
	raw, ok := fm["tags"]
	if !ok || isEmpty(raw) {
		raw = fm["tag"]
	}
	return Classify(Tags(raw))
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	}
	return false
}
