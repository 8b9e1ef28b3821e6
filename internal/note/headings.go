package note

import (
	"bytes"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DemoteHeadings shifts every ATX heading in src down so the shallowest one
// sits at level top. Relative nesting is kept and levels cap at 6. Headings
// inside code blocks are not touched.
func DemoteHeadings(src string, top int) string {
	if top <= 1 {
		return src
	}

	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	type heading struct {
		offset int // index of the first '#'
		level  int
	}
	var headings []heading
	shallowest := 7

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if off, ok := atxOffset(source, h); ok {
			headings = append(headings, heading{offset: off, level: h.Level})
			if h.Level < shallowest {
				shallowest = h.Level
			}
		}
		return ast.WalkSkipChildren, nil
	})

	if len(headings) == 0 || shallowest >= top {
		return src
	}
	shift := top - shallowest

	// Insert from the end so earlier offsets stay valid.
	sort.Slice(headings, func(i, j int) bool { return headings[i].offset > headings[j].offset })
	for _, h := range headings {
		add := shift
		if h.level+add > 6 {
			add = 6 - h.level
		}
		if add <= 0 {
			continue
		}
		prefix := bytes.Repeat([]byte("#"), add)
		source = append(source[:h.offset], append(prefix, source[h.offset:]...)...)
	}
	return string(source)
}

// atxOffset finds the '#' run that opens an ATX heading. Setext headings and
// headings nested in containers (quotes, lists) report false.
func atxOffset(source []byte, h *ast.Heading) (int, bool) {
	if h.Lines().Len() == 0 {
		return 0, false
	}
	start := h.Lines().At(0).Start
	lineStart := bytes.LastIndexByte(source[:start], '\n') + 1

	i := lineStart
	for i < len(source) && i-lineStart < 3 && source[i] == ' ' {
		i++
	}
	if i >= len(source) || source[i] != '#' {
		return 0, false
	}
	return i, true
}
