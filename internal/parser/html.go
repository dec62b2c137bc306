package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docgraph/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := doctree.New(filename, nil)
	doc.Title = titleFromFilename(filename)
	if title := findTitle(root); title != "" {
		doc.Title = title
	}

	start := findBody(root)
	if start == nil {
		start = root
	}
	for c := start.FirstChild; c != nil; c = c.NextSibling {
		doc.Root.Children = append(doc.Root.Children, htmlBlock(c)...)
	}
	return doc, nil
}

// htmlBlock converts one node at block position. Containers without a doctree
// equivalent (div, section, article) are flattened into their parent.
func htmlBlock(n *html.Node) []*doctree.Node {
	switch n.Type {
	case html.TextNode:
		t := collapseSpace(n.Data)
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []*doctree.Node{{
			Kind:     doctree.KindParagraph,
			Lines:    1,
			Children: []*doctree.Node{textNode(strings.TrimSpace(t))},
		}}
	case html.ElementNode:
	default:
		return nil
	}

	if level := headingLevel(n.Data); level > 0 {
		return []*doctree.Node{{
			Kind:     doctree.KindHeading,
			Level:    level,
			Lines:    1,
			Children: trimEdges(htmlInline(n)),
		}}
	}

	switch n.Data {
	case "script", "style", "nav", "footer", "header", "head", "template", "noscript":
		return nil
	case "p":
		children := trimEdges(htmlInline(n))
		if len(children) == 0 {
			return nil
		}
		return []*doctree.Node{{
			Kind:     doctree.KindParagraph,
			Lines:    1 + countTag(n, "br"),
			Children: children,
		}}
	case "pre":
		code := &doctree.Node{Kind: doctree.KindCode, Value: strings.TrimSuffix(rawText(n), "\n")}
		if c := firstElement(n, "code"); c != nil {
			code.Lang = languageClass(c)
		}
		code.Lines = strings.Count(code.Value, "\n") + 1
		return []*doctree.Node{code}
	case "ul", "ol":
		return []*doctree.Node{container(doctree.KindList, n)}
	case "li":
		return []*doctree.Node{container(doctree.KindListItem, n)}
	case "blockquote":
		return []*doctree.Node{container(doctree.KindBlockquote, n)}
	case "hr":
		return []*doctree.Node{{Kind: doctree.KindThematicBreak}}
	case "table":
		return []*doctree.Node{{Kind: doctree.KindTable, Value: textContent(n)}}
	case "strong", "b", "em", "i", "code", "a", "img", "span":
		// Inline content outside a paragraph gets an implicit one.
		children := trimEdges(inlineNode(n))
		if len(children) == 0 {
			return nil
		}
		return []*doctree.Node{{Kind: doctree.KindParagraph, Lines: 1, Children: children}}
	}

	var out []*doctree.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, htmlBlock(c)...)
	}
	return out
}

func container(kind doctree.Kind, n *html.Node) *doctree.Node {
	out := &doctree.Node{Kind: kind}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out.Children = append(out.Children, htmlBlock(c)...)
	}
	return out
}

// htmlInline converts the children of n into phrasing nodes.
func htmlInline(n *html.Node) []*doctree.Node {
	var out []*doctree.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, inlineNode(c)...)
	}
	return out
}

func inlineNode(c *html.Node) []*doctree.Node {
	switch c.Type {
	case html.TextNode:
		if t := collapseSpace(c.Data); t != "" {
			return []*doctree.Node{textNode(t)}
		}
		return nil
	case html.ElementNode:
	default:
		return nil
	}
	switch c.Data {
	case "strong", "b":
		return []*doctree.Node{{Kind: doctree.KindStrong, Children: htmlInline(c)}}
	case "em", "i":
		return []*doctree.Node{{Kind: doctree.KindEmphasis, Children: htmlInline(c)}}
	case "code":
		return []*doctree.Node{{Kind: doctree.KindInlineCode, Value: rawText(c)}}
	case "a":
		return []*doctree.Node{{Kind: doctree.KindLink, Destination: attr(c, "href"), Children: htmlInline(c)}}
	case "img":
		return []*doctree.Node{{Kind: doctree.KindImage, Destination: attr(c, "src"), Value: attr(c, "alt")}}
	case "br":
		return []*doctree.Node{textNode("\n")}
	case "script", "style":
		return nil
	}
	return htmlInline(c)
}

// trimEdges drops whitespace-only text at either end and trims the rest.
func trimEdges(nodes []*doctree.Node) []*doctree.Node {
	for len(nodes) > 0 && isBlankText(nodes[0]) {
		nodes = nodes[1:]
	}
	for len(nodes) > 0 && isBlankText(nodes[len(nodes)-1]) {
		nodes = nodes[:len(nodes)-1]
	}
	if len(nodes) == 0 {
		return nil
	}
	if first := nodes[0]; first.Kind == doctree.KindText {
		first.Value = strings.TrimLeft(first.Value, " ")
	}
	if last := nodes[len(nodes)-1]; last.Kind == doctree.KindText {
		last.Value = strings.TrimRight(last.Value, " ")
	}
	return nodes
}

func isBlankText(n *doctree.Node) bool {
	return n.Kind == doctree.KindText && strings.TrimSpace(n.Value) == ""
}

func collapseSpace(s string) string {
	if s == "" {
		return ""
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\f'
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func textContent(n *html.Node) string {
	return strings.Join(strings.Fields(rawText(n)), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// languageClass reads "language-go" or "lang-go" from a class attribute.
func languageClass(n *html.Node) string {
	for _, class := range strings.Fields(attr(n, "class")) {
		for _, prefix := range []string{"language-", "lang-"} {
			if lang, ok := strings.CutPrefix(class, prefix); ok {
				return lang
			}
		}
	}
	return ""
}

func countTag(n *html.Node, tag string) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			count++
		}
		count += countTag(c, tag)
	}
	return count
}

func firstElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := firstElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
