package rule

import (
	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/dgallion1/docgraph/internal/section"
)

type scope struct {
	level int
	node  *doctree.Node
	desc  section.Descriptor
}

type containment struct {
	relationship string
	classify     section.Classifier
}

// Containment links every node to its nearest enclosing open section under the
// given relationship label. A nil classifier falls back to section.Classify.
func Containment(relationship string, classify section.Classifier) Rule {
	if classify == nil {
		classify = section.Classify
	}
	return containment{relationship: relationship, classify: classify}
}

// ContainedInSectionRule is Containment with the standard ContainedInSection label.
func ContainedInSectionRule(classify section.Classifier) Rule {
	return Containment(ContainedInSection, classify)
}

func (r containment) Name() string { return r.relationship }

// Apply makes one pre-order pass keeping a stack of open scopes. A boundary closes
// every open scope at the same or a deeper level before it is pushed, so it is
// contained in whatever encloses it, never in its own scope or a sibling's.
func (r containment) Apply(in *Input) []Edge {
	var (
		edges []Edge
		stack []scope
	)
	for _, n := range in.Nodes {
		desc, boundary := r.classify(n)
		if boundary {
			for len(stack) > 0 && stack[len(stack)-1].level >= desc.Level {
				stack = stack[:len(stack)-1]
			}
		}
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			edges = append(edges, Edge{
				Source:       n,
				Target:       top.node,
				Relationship: r.relationship,
				Payload:      top.desc,
			})
		}
		if boundary {
			stack = append(stack, scope{level: desc.Level, node: n, desc: desc})
		}
	}
	return edges
}
