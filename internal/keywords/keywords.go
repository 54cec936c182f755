// Package keywords turns user-supplied text into the ordered keyword list
// the keyword-matching strategies consume.
package keywords

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Split breaks a block of text into keywords on newlines and semicolons.
// Entries are trimmed and empty entries discarded. Duplicates are kept and
// input order is preserved; deduplication is the matcher's concern, not the
// splitter's.
func Split(input string) []string {
	var keywords []string
	for _, raw := range strings.Split(strings.ReplaceAll(input, ";", "\n"), "\n") {
		kw := strings.TrimSpace(raw)
		if kw == "" {
			continue
		}
		keywords = append(keywords, kw)
	}
	return keywords
}

// FromMarkdown extracts keywords from a markdown document: every list item
// and every heading becomes one keyword, in document order.
func FromMarkdown(source []byte) []string {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var keywords []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n.(type) {
		case *ast.Heading, *ast.ListItem:
			if kw := strings.TrimSpace(nodeText(n, source)); kw != "" {
				keywords = append(keywords, kw)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return keywords
}

// nodeText collects the raw text under a node.
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := child.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// FromFile loads keywords from path. Markdown files go through the markdown
// extractor; anything else is split as plain text.
func FromFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FromMarkdown(data), nil
	default:
		return Split(string(data)), nil
	}
}
