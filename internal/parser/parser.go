package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docgraph/internal/doctree"
)

// Parser converts raw document bytes into a typed document tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tune the parsers that need it.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts ...Options) (Parser, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: o.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ParseFile picks the parser for filename and parses data with it.
func ParseFile(data []byte, filename string, opts ...Options) (*doctree.Document, error) {
	p, err := ForFile(filename, opts...)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(strings.NewReader(string(data)), filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return doc, nil
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func textNode(s string) *doctree.Node {
	return &doctree.Node{Kind: doctree.KindText, Value: s}
}

// splitParagraphs groups non-blank lines into paragraphs and remembers where each starts.
func splitParagraphs(text string, firstLine int) []*doctree.Node {
	var out []*doctree.Node
	var lines []string
	start := 0
	flush := func() {
		if len(lines) == 0 {
			return
		}
		out = append(out, &doctree.Node{
			Kind:     doctree.KindParagraph,
			Lines:    len(lines),
			Line:     start,
			Children: []*doctree.Node{textNode(strings.Join(lines, "\n"))},
		})
		lines = nil
	}
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if len(lines) == 0 {
			start = firstLine + i
		}
		lines = append(lines, line)
	}
	flush()
	return out
}
