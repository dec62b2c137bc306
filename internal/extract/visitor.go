// Package extract walks containment forests and collects nodes of interest
// together with the sections that enclose them.
package extract

import (
	"fmt"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/dgallion1/docgraph/internal/forest"
	"github.com/dgallion1/docgraph/internal/section"
)

// Predicate selects the nodes to extract. An error aborts the current document.
type Predicate func(n *doctree.Node) (bool, error)

// IsKind matches nodes of the given kind.
func IsKind(kind doctree.Kind) Predicate {
	return func(n *doctree.Node) (bool, error) {
		return n.Kind == kind, nil
	}
}

// IsCode matches code blocks.
var IsCode = IsKind(doctree.KindCode)

// Crumb is the serialisable view of one enclosing section.
type Crumb struct {
	Kind   string         `json:"kind"`
	Nature section.Nature `json:"nature,omitempty"`
	Label  string         `json:"label"`
	Level  int            `json:"level,omitempty"`
	Line   int            `json:"line,omitempty"`
}

// Item is one extracted node.
type Item struct {
	DocIndex int     `json:"doc_index"`
	DocLabel string  `json:"doc_label"`
	Kind     string  `json:"kind"`
	Value    string  `json:"value,omitempty"`
	Lang     string  `json:"lang,omitempty"`
	Meta     string  `json:"meta,omitempty"`
	Line     int     `json:"line,omitempty"`
	Sections []Crumb `json:"ancestors"`

	Node      *doctree.Node  `json:"-"`
	Ancestors []*forest.Node `json:"-"` // Outermost first
}

// Path returns the section labels from outermost to innermost.
func (it Item) Path() []string {
	out := make([]string, len(it.Sections))
	for i, c := range it.Sections {
		out[i] = c.Label
	}
	return out
}

// DocumentError reports a document whose extraction was aborted.
type DocumentError struct {
	DocIndex int
	DocLabel string
	Err      error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %d (%s): %v", e.DocIndex, e.DocLabel, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// Result collects items across documents plus the documents that failed.
type Result struct {
	Items  []Item
	Errors []*DocumentError
}

// Visit walks every forest in order and collects the nodes match accepts. A failing
// document contributes no items and is reported in Result.Errors; the remaining
// documents are still visited.
func Visit(forests []*forest.Forest, match Predicate) Result {
	var res Result
	for i, f := range forests {
		label := docLabel(i, f)
		items, err := visitDocument(i, label, f, match)
		if err != nil {
			res.Errors = append(res.Errors, &DocumentError{DocIndex: i, DocLabel: label, Err: err})
			continue
		}
		res.Items = append(res.Items, items...)
	}
	return res
}

func visitDocument(docIndex int, label string, f *forest.Forest, match Predicate) (items []Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			items = nil
			err = fmt.Errorf("predicate panicked: %v", r)
		}
	}()

	err = f.Walk(func(n *forest.Node, ancestors []*forest.Node) error {
		ok, err := match(n.Node)
		if err != nil {
			return fmt.Errorf("predicate on %s (line %d): %w", n.Node.Kind, n.Node.Line, err)
		}
		if ok {
			items = append(items, newItem(docIndex, label, n, ancestors))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func newItem(docIndex int, label string, n *forest.Node, ancestors []*forest.Node) Item {
	anc := make([]*forest.Node, len(ancestors))
	copy(anc, ancestors)

	value := n.Node.Value
	if value == "" {
		value = n.Node.Text()
	}
	return Item{
		DocIndex:  docIndex,
		DocLabel:  label,
		Kind:      n.Node.Kind.String(),
		Value:     value,
		Lang:      n.Node.Lang,
		Meta:      n.Node.Meta,
		Line:      n.Node.Line,
		Sections:  crumbs(anc, n),
		Node:      n.Node,
		Ancestors: anc,
	}
}

// crumbs describes each ancestor using the descriptor carried by the edge that
// attached its child, falling back to the ancestor's own text.
func crumbs(ancestors []*forest.Node, leaf *forest.Node) []Crumb {
	out := make([]Crumb, len(ancestors))
	for i, a := range ancestors {
		child := leaf
		if i+1 < len(ancestors) {
			child = ancestors[i+1]
		}
		c := Crumb{Kind: a.Node.Kind.String(), Label: a.Node.Text(), Line: a.Node.Line}
		if child.Edge != nil {
			if d, ok := child.Edge.Payload.(section.Descriptor); ok {
				c.Nature = d.Nature
				c.Label = d.Label
				c.Level = d.Level
			}
		}
		out[i] = c
	}
	return out
}

func docLabel(i int, f *forest.Forest) string {
	if f != nil && f.Label != "" {
		return f.Label
	}
	return fmt.Sprintf("doc-%d", i+1)
}
