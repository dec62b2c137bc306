// Package forest rebuilds trees from relationship edges.
package forest

import (
	"fmt"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/dgallion1/docgraph/internal/rule"
)

// Node wraps a document node inside a reconstructed tree.
type Node struct {
	Node     *doctree.Node
	Edge     *rule.Edge // Edge that attached this node to its parent; nil for roots
	Children []*Node
}

// Forest holds the reconstructed trees of one document.
type Forest struct {
	Label         string
	Relationships []string
	Roots         []*Node

	index map[*doctree.Node]*Node
}

// Lookup returns the tree node wrapping n.
func (f *Forest) Lookup(n *doctree.Node) (*Node, bool) {
	if f == nil {
		return nil, false
	}
	tn, ok := f.index[n]
	return tn, ok
}

// Len is the number of nodes in the forest.
func (f *Forest) Len() int {
	if f == nil {
		return 0
	}
	return len(f.index)
}

// InvariantViolation reports an edge set the builder refuses to turn into a forest.
// It always points at a bug in the rule that produced the edges.
type InvariantViolation struct {
	Document     string
	Relationship string
	Source       *doctree.Node
	Reason       string
}

func (e *InvariantViolation) Error() string {
	kind := "<nil>"
	line := 0
	if e.Source != nil {
		kind = e.Source.Kind.String()
		line = e.Source.Line
	}
	return fmt.Sprintf("invariant violation in %s: %s edge from %s (line %d): %s",
		e.Document, e.Relationship, kind, line, e.Reason)
}

// Build reconstructs the forest of doc from the edges carrying one of relationships.
// Each edge makes its target the parent of its source. Every node of the document
// appears exactly once; nodes without a qualifying edge become roots. Children and
// roots keep document pre-order.
func Build(doc *doctree.Document, edges rule.EdgeSet, relationships ...string) (*Forest, error) {
	f := &Forest{
		Relationships: relationships,
		index:         make(map[*doctree.Node]*Node),
	}
	if doc == nil {
		return f, nil
	}
	f.Label = doc.Label

	nodes := doc.Nodes()
	for _, n := range nodes {
		f.index[n] = &Node{Node: n}
	}

	qualifying := edges.Filter(relationships...)
	parents := make(map[*doctree.Node]*rule.Edge, len(qualifying))
	for i := range qualifying {
		e := &qualifying[i]
		if _, ok := f.index[e.Source]; !ok {
			return nil, &InvariantViolation{Document: doc.Label, Relationship: e.Relationship, Source: e.Source, Reason: "source is not a node of this document"}
		}
		if _, ok := f.index[e.Target]; !ok {
			return nil, &InvariantViolation{Document: doc.Label, Relationship: e.Relationship, Source: e.Source, Reason: "target is not a node of this document"}
		}
		if e.Source == e.Target {
			return nil, &InvariantViolation{Document: doc.Label, Relationship: e.Relationship, Source: e.Source, Reason: "node is its own parent"}
		}
		if prev, ok := parents[e.Source]; ok && prev.Relationship != e.Relationship {
			return nil, &InvariantViolation{
				Document:     doc.Label,
				Relationship: e.Relationship,
				Source:       e.Source,
				Reason:       fmt.Sprintf("attached by both %s and %s; build the forest from one of them", prev.Relationship, e.Relationship),
			}
		}
		if prev, ok := parents[e.Source]; ok {
			return nil, &InvariantViolation{
				Document:     doc.Label,
				Relationship: e.Relationship,
				Source:       e.Source,
				Reason:       fmt.Sprintf("more than one outgoing edge (already attached via %s)", prev.Relationship),
			}
		}
		parents[e.Source] = e
	}

	// Pre-order iteration keeps siblings in document order.
	for _, n := range nodes {
		tn := f.index[n]
		e, ok := parents[n]
		if !ok {
			f.Roots = append(f.Roots, tn)
			continue
		}
		tn.Edge = e
		parent := f.index[e.Target]
		parent.Children = append(parent.Children, tn)
	}

	if reached := countReachable(f.Roots); reached != len(nodes) {
		var stuck *doctree.Node
		for _, n := range nodes {
			if !reachable(f, n) {
				stuck = n
				break
			}
		}
		rel := ""
		if e, ok := parents[stuck]; ok {
			rel = e.Relationship
		}
		return nil, &InvariantViolation{
			Document:     doc.Label,
			Relationship: rel,
			Source:       stuck,
			Reason:       fmt.Sprintf("edges form a cycle (%d of %d nodes unreachable)", len(nodes)-reached, len(nodes)),
		}
	}

	return f, nil
}

// Walk visits every tree node in root order, pre-order, with its ancestors from
// outermost to innermost. The ancestors slice is reused between calls; copy it to keep it.
func (f *Forest) Walk(fn func(n *Node, ancestors []*Node) error) error {
	if f == nil {
		return nil
	}
	var ancestors []*Node
	var visit func(n *Node) error
	visit = func(n *Node) error {
		if err := fn(n, ancestors); err != nil {
			return err
		}
		ancestors = append(ancestors, n)
		for _, c := range n.Children {
			if err := visit(c); err != nil {
				return err
			}
		}
		ancestors = ancestors[:len(ancestors)-1]
		return nil
	}
	for _, r := range f.Roots {
		if err := visit(r); err != nil {
			return err
		}
	}
	return nil
}

func countReachable(roots []*Node) int {
	count := 0
	var visit func(n *Node)
	visit = func(n *Node) {
		count++
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return count
}

func reachable(f *Forest, n *doctree.Node) bool {
	seen := make(map[*doctree.Node]bool)
	for {
		tn := f.index[n]
		if tn.Edge == nil {
			return true
		}
		if seen[n] {
			return false
		}
		seen[n] = true
		n = tn.Edge.Target
	}
}
