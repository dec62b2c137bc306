package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "docgraph-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, int64(size))
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	out := doctree.New(filename, nil)
	out.Title = titleFromFilename(filename)

	line := 0
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		line++

		level := docxHeadingLevel(para)
		node := docxParagraphNode(para)
		if len(node.Children) == 0 {
			continue
		}
		node.Line = line
		if level > 0 {
			node.Kind = doctree.KindHeading
			node.Level = level
		}
		out.Root.Children = append(out.Root.Children, node)
	}

	return out, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := para.Properties.Style.Val
	switch {
	case strings.EqualFold(style, "Heading1") || strings.EqualFold(style, "heading 1"):
		return 1
	case strings.EqualFold(style, "Heading2") || strings.EqualFold(style, "heading 2"):
		return 2
	case strings.EqualFold(style, "Heading3") || strings.EqualFold(style, "heading 3"):
		return 3
	case strings.EqualFold(style, "Heading4") || strings.EqualFold(style, "heading 4"):
		return 4
	case strings.EqualFold(style, "Heading5") || strings.EqualFold(style, "heading 5"):
		return 5
	case strings.EqualFold(style, "Heading6") || strings.EqualFold(style, "heading 6"):
		return 6
	}
	return 0
}

// docxParagraphNode keeps bold and italic runs as inline nodes so bold-label
// paragraphs survive the conversion.
func docxParagraphNode(para *docx.Paragraph) *doctree.Node {
	node := &doctree.Node{Kind: doctree.KindParagraph, Lines: 1}
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		var buf strings.Builder
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
		if buf.Len() == 0 {
			continue
		}
		inline := textNode(buf.String())
		if run.RunProperties != nil {
			if run.RunProperties.Italic != nil {
				inline = &doctree.Node{Kind: doctree.KindEmphasis, Children: []*doctree.Node{inline}}
			}
			if run.RunProperties.Bold != nil {
				inline = &doctree.Node{Kind: doctree.KindStrong, Children: []*doctree.Node{inline}}
			}
		}
		node.Children = append(node.Children, inline)
	}
	node.Children = trimEdges(node.Children)
	return node
}
