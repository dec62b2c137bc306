package parser

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	root := md.Parser().Parse(reader)

	c := &mdConverter{src: src, lineStarts: lineStarts(src)}
	doc := doctree.New(filename, c.convert(root))
	doc.Title = titleFromFilename(filename)
	for _, n := range doc.Root.Children {
		if n.Kind == doctree.KindHeading && n.Level == 1 {
			if t := n.Text(); t != "" {
				doc.Title = t
			}
			break
		}
	}
	return doc, nil
}

type mdConverter struct {
	src        []byte
	lineStarts []int
}

// convert maps a goldmark node and its subtree onto doctree nodes.
func (c *mdConverter) convert(n ast.Node) *doctree.Node {
	out := &doctree.Node{Kind: doctree.KindOther}

	switch node := n.(type) {
	case *ast.Document:
		out.Kind = doctree.KindDocument
	case *ast.Heading:
		out.Kind = doctree.KindHeading
		out.Level = node.Level
		out.Lines = 1
	case *ast.Paragraph, *ast.TextBlock:
		// Tight list items hold a TextBlock where loose ones hold a Paragraph.
		out.Kind = doctree.KindParagraph
		out.Lines = n.Lines().Len()
	case *ast.FencedCodeBlock:
		out.Kind = doctree.KindCode
		out.Value = c.blockText(n)
		out.Lines = n.Lines().Len()
		if node.Info != nil {
			out.Lang, out.Meta = splitInfo(string(node.Info.Segment.Value(c.src)))
			out.Line = c.lineOf(node.Info.Segment.Start)
		} else if n.Lines().Len() > 0 {
			out.Line = c.lineOf(n.Lines().At(0).Start) - 1
		}
		return out
	case *ast.CodeBlock:
		out.Kind = doctree.KindCode
		out.Value = c.blockText(n)
		out.Lines = n.Lines().Len()
		out.Line = c.blockLine(n)
		return out
	case *ast.HTMLBlock:
		out.Kind = doctree.KindHTML
		out.Value = c.blockText(n)
		out.Lines = n.Lines().Len()
		out.Line = c.blockLine(n)
		return out
	case *ast.List:
		out.Kind = doctree.KindList
	case *ast.ListItem:
		out.Kind = doctree.KindListItem
	case *ast.Blockquote:
		out.Kind = doctree.KindBlockquote
	case *ast.ThematicBreak:
		out.Kind = doctree.KindThematicBreak
	case *ast.Text:
		out.Kind = doctree.KindText
		out.Value = string(node.Segment.Value(c.src))
		if node.SoftLineBreak() || node.HardLineBreak() {
			out.Value += "\n"
		}
		out.Line = c.lineOf(node.Segment.Start)
		return out
	case *ast.String:
		out.Kind = doctree.KindText
		out.Value = string(node.Value)
		return out
	case *ast.Emphasis:
		out.Kind = doctree.KindEmphasis
		if node.Level >= 2 {
			out.Kind = doctree.KindStrong
		}
	case *ast.CodeSpan:
		out.Kind = doctree.KindInlineCode
		out.Value = c.inlineText(n)
		return out
	case *ast.Link:
		out.Kind = doctree.KindLink
		out.Destination = string(node.Destination)
	case *ast.AutoLink:
		out.Kind = doctree.KindLink
		out.Destination = string(node.URL(c.src))
		out.Children = []*doctree.Node{textNode(string(node.Label(c.src)))}
		return out
	case *ast.Image:
		out.Kind = doctree.KindImage
		out.Destination = string(node.Destination)
	case *ast.RawHTML:
		out.Kind = doctree.KindHTML
		var buf bytes.Buffer
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			buf.Write(seg.Value(c.src))
		}
		out.Value = buf.String()
		return out
	}

	if out.Line == 0 {
		out.Line = c.blockLine(n)
	}
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		out.Children = append(out.Children, c.convert(child))
	}
	if out.Line == 0 && len(out.Children) > 0 {
		out.Line = out.Children[0].Line
	}
	return out
}

// blockText joins the raw lines of a block node.
func (c *mdConverter) blockText(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(c.src))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// inlineText concatenates the text segments below an inline node.
func (c *mdConverter) inlineText(n ast.Node) string {
	var buf bytes.Buffer
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch t := child.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(c.src))
		case *ast.String:
			buf.Write(t.Value)
		default:
			buf.WriteString(c.inlineText(child))
		}
	}
	return buf.String()
}

// blockLine is the 1-based line of a block's first content line. Inline nodes
// have no line segments and report 0.
func (c *mdConverter) blockLine(n ast.Node) int {
	if n.Type() != ast.TypeBlock || n.Lines().Len() == 0 {
		return 0
	}
	return c.lineOf(n.Lines().At(0).Start)
}

func (c *mdConverter) lineOf(offset int) int {
	return sort.Search(len(c.lineStarts), func(i int) bool { return c.lineStarts[i] > offset })
}

func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// splitInfo separates a fenced code info string into language and meta.
func splitInfo(info string) (lang, meta string) {
	info = strings.TrimSpace(info)
	if info == "" {
		return "", ""
	}
	lang, meta, _ = strings.Cut(info, " ")
	return lang, strings.TrimSpace(meta)
}
