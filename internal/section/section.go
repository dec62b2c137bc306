// Package section decides which document nodes open a named section scope.
package section

import (
	"strings"

	"github.com/dgallion1/docgraph/internal/doctree"
)

// Nature says how a section boundary was recognised.
type Nature string

const (
	NatureHeading        Nature = "heading"
	NatureBoldParagraph  Nature = "bold-paragraph"
	NatureColonParagraph Nature = "colon-paragraph"
)

// ParagraphLevel is the nesting level of paragraph-style sections. It sits one
// below the deepest heading, so any heading closes an open paragraph section and
// consecutive paragraph sections are siblings.
const ParagraphLevel = 7

// Descriptor describes the scope a boundary node opens.
type Descriptor struct {
	Nature Nature `json:"nature"`
	Label  string `json:"label"`
	Level  int    `json:"level"`
}

// Classifier reports whether a node opens a section.
type Classifier func(n *doctree.Node) (Descriptor, bool)

// Heuristics toggles the paragraph-shape rules. Headings always classify.
type Heuristics struct {
	Bold  bool
	Colon bool
}

// Classifier returns a Classifier honouring the enabled heuristics.
func (h Heuristics) Classifier() Classifier {
	return func(n *doctree.Node) (Descriptor, bool) {
		if n == nil {
			return Descriptor{}, false
		}
		switch n.Kind {
		case doctree.KindHeading:
			return Heading(n)
		case doctree.KindParagraph:
			if h.Bold {
				if d, ok := BoldParagraph(n); ok {
					return d, true
				}
			}
			if h.Colon {
				return ColonParagraph(n)
			}
		}
		return Descriptor{}, false
	}
}

var defaultClassifier = Heuristics{Bold: true, Colon: true}.Classifier()

// Classify is the default classifier: headings, bold paragraphs, then colon paragraphs.
func Classify(n *doctree.Node) (Descriptor, bool) {
	return defaultClassifier(n)
}

// Heading classifies heading nodes by their depth.
func Heading(n *doctree.Node) (Descriptor, bool) {
	if n == nil || n.Kind != doctree.KindHeading {
		return Descriptor{}, false
	}
	level := n.Level
	if level <= 0 {
		level = 1
	}
	return Descriptor{Nature: NatureHeading, Label: n.Text(), Level: level}, true
}

// BoldParagraph matches a single-line paragraph made of exactly one strong span.
func BoldParagraph(n *doctree.Node) (Descriptor, bool) {
	if !singleLineParagraph(n) || len(n.Children) != 1 {
		return Descriptor{}, false
	}
	strong := n.Children[0]
	if strong.Kind != doctree.KindStrong {
		return Descriptor{}, false
	}
	label := strings.TrimSpace(strings.TrimSuffix(strong.Text(), ":"))
	if label == "" {
		return Descriptor{}, false
	}
	return Descriptor{Nature: NatureBoldParagraph, Label: label, Level: ParagraphLevel}, true
}

// ColonParagraph matches a single-line paragraph shaped "Label:" with optional trailing text.
func ColonParagraph(n *doctree.Node) (Descriptor, bool) {
	if !singleLineParagraph(n) {
		return Descriptor{}, false
	}
	text := n.Text()
	idx := strings.IndexByte(text, ':')
	if idx <= 0 {
		return Descriptor{}, false
	}
	// "see https://..." is a URL, not a label.
	if strings.HasPrefix(text[idx+1:], "//") {
		return Descriptor{}, false
	}
	label := strings.TrimSpace(text[:idx])
	if label == "" {
		return Descriptor{}, false
	}
	return Descriptor{Nature: NatureColonParagraph, Label: label, Level: ParagraphLevel}, true
}

func singleLineParagraph(n *doctree.Node) bool {
	return n != nil && n.Kind == doctree.KindParagraph && n.Lines == 1
}
