// Package rule infers relationship edges between the nodes of a document.
package rule

import (
	"github.com/dgallion1/docgraph/internal/doctree"
)

// Relationship labels produced by the built-in rules.
const (
	ContainedInSection = "containedInSection"
	ChildOf            = "childOf"
)

// Edge links Source to Target under a relationship label.
type Edge struct {
	Source       *doctree.Node
	Target       *doctree.Node
	Relationship string
	Payload      any // Rule-specific data; the containment rule stores the target's section.Descriptor
}

// EdgeSet is every edge produced for one document by one pipeline run.
type EdgeSet []Edge

// Filter keeps the edges whose relationship is one of labels.
func (s EdgeSet) Filter(labels ...string) EdgeSet {
	want := make(map[string]bool, len(labels))
	for _, l := range labels {
		want[l] = true
	}
	var out EdgeSet
	for _, e := range s {
		if want[e.Relationship] {
			out = append(out, e)
		}
	}
	return out
}

// Outgoing returns the edges leaving n under the given relationship.
func (s EdgeSet) Outgoing(n *doctree.Node, relationship string) []Edge {
	var out []Edge
	for _, e := range s {
		if e.Source == n && e.Relationship == relationship {
			out = append(out, e)
		}
	}
	return out
}

// Relationships lists the distinct labels in first-seen order.
func (s EdgeSet) Relationships() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range s {
		if !seen[e.Relationship] {
			seen[e.Relationship] = true
			out = append(out, e.Relationship)
		}
	}
	return out
}

// Input is what a rule sees for one document.
type Input struct {
	Document *doctree.Document
	Nodes    []*doctree.Node // Pre-order, root excluded
}

// NewInput prepares the traversal input for doc.
func NewInput(doc *doctree.Document) *Input {
	return &Input{Document: doc, Nodes: doc.Nodes()}
}

// Rule proposes edges for a document. Rules must be pure and must not depend on
// each other's output.
type Rule interface {
	Name() string
	Apply(in *Input) []Edge
}

type funcRule struct {
	name string
	fn   func(*Input) []Edge
}

func (r funcRule) Name() string           { return r.name }
func (r funcRule) Apply(in *Input) []Edge { return r.fn(in) }

// Func adapts a plain function to the Rule interface.
func Func(name string, fn func(*Input) []Edge) Rule {
	return funcRule{name: name, fn: fn}
}

// SyntacticParent emits a ChildOf edge from every node to its raw parent.
// Top-level nodes get no edge.
func SyntacticParent() Rule {
	return Func(ChildOf, func(in *Input) []Edge {
		var edges []Edge
		var visit func(parent *doctree.Node)
		visit = func(parent *doctree.Node) {
			for _, c := range parent.Children {
				if parent != in.Document.Root {
					edges = append(edges, Edge{Source: c, Target: parent, Relationship: ChildOf})
				}
				visit(c)
			}
		}
		if in.Document != nil && in.Document.Root != nil {
			visit(in.Document.Root)
		}
		return edges
	})
}
