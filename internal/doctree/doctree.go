package doctree

import "strings"

// Kind tags the variant of a Node.
type Kind uint8

const (
	KindDocument Kind = iota
	KindHeading
	KindParagraph
	KindCode
	KindList
	KindListItem
	KindBlockquote
	KindThematicBreak
	KindHTML
	KindTable
	KindText
	KindStrong
	KindEmphasis
	KindInlineCode
	KindLink
	KindImage
	KindOther
)

var kindNames = [...]string{
	KindDocument:      "document",
	KindHeading:       "heading",
	KindParagraph:     "paragraph",
	KindCode:          "code",
	KindList:          "list",
	KindListItem:      "listItem",
	KindBlockquote:    "blockquote",
	KindThematicBreak: "thematicBreak",
	KindHTML:          "html",
	KindTable:         "table",
	KindText:          "text",
	KindStrong:        "strong",
	KindEmphasis:      "emphasis",
	KindInlineCode:    "inlineCode",
	KindLink:          "link",
	KindImage:         "image",
	KindOther:         "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "other"
}

// ParseKind maps a type tag back to its Kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(k), true
		}
	}
	return KindOther, false
}

// Node is a single node of a parsed document.
type Node struct {
	Kind        Kind
	Level       int    // Heading depth (1-6); 0 for other kinds
	Value       string // Literal content for text, code, inline code and html nodes
	Lang        string // Code language from the info string
	Meta        string // Rest of the code info string after the language
	Destination string // Link and image target
	Lines       int    // Source lines spanned by the node's own content
	Line        int    // 1-based start line (0 if unknown)
	Children    []*Node
}

// Text returns the flattened inline text of the node.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	n.writeText(&sb)
	return strings.TrimSpace(sb.String())
}

func (n *Node) writeText(sb *strings.Builder) {
	switch n.Kind {
	case KindText, KindInlineCode:
		sb.WriteString(n.Value)
		return
	case KindCode, KindHTML:
		return
	}
	for _, c := range n.Children {
		c.writeText(sb)
	}
}

// Document is the root of one parsed source, labelled for attribution.
type Document struct {
	Label string // Source reference, usually the filename
	Title string
	Root  *Node
}

// New wraps root in a Document. A nil root becomes an empty document node.
func New(label string, root *Node) *Document {
	if root == nil {
		root = &Node{Kind: KindDocument}
	}
	return &Document{Label: label, Title: label, Root: root}
}

// Nodes returns every descendant of the root in pre-order. The root itself is excluded.
func (d *Document) Nodes() []*Node {
	if d == nil || d.Root == nil {
		return nil
	}
	var out []*Node
	Walk(d.Root, func(n *Node) bool {
		if n != d.Root {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Walk visits n and its descendants depth-first in pre-order.
// Returning false from fn skips the children of that node.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}
