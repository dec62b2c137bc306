package rule

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/dgallion1/docgraph/internal/section"
)

// Builder collects rules in registration order.
type Builder struct {
	rules []Rule
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Use registers rules. Nil rules are ignored.
func (b *Builder) Use(rules ...Rule) *Builder {
	for _, r := range rules {
		if r != nil {
			b.rules = append(b.rules, r)
		}
	}
	return b
}

// Build freezes the registered rules into a Pipeline. Later Use calls do not
// affect pipelines already built.
func (b *Builder) Build() *Pipeline {
	rules := make([]Rule, len(b.rules))
	copy(rules, b.rules)
	return &Pipeline{rules: rules}
}

// Pipeline runs a fixed, ordered set of rules against one document at a time.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	rules []Rule
}

// Run applies every rule in registration order and concatenates their edges.
func (p *Pipeline) Run(doc *doctree.Document) EdgeSet {
	if p == nil || doc == nil {
		return nil
	}
	in := NewInput(doc)
	if len(in.Nodes) == 0 {
		return EdgeSet{}
	}
	var edges EdgeSet
	for _, r := range p.rules {
		edges = append(edges, r.Apply(in)...)
	}
	return edges
}

// Names lists the rule names in registration order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.Name()
	}
	return names
}

// Select validates the relationships a forest will be built from and returns
// them without duplicates. Every name must be registered. Containment and
// childOf each give almost every node a parent, so only one relationship can
// be selected at a time.
func (p *Pipeline) Select(relationships []string) ([]string, error) {
	var out []string
	for _, r := range relationships {
		r = strings.TrimSpace(r)
		if r != "" && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one relationship is required")
	}
	known := p.Names()
	for _, r := range out {
		if !slices.Contains(known, r) {
			return nil, fmt.Errorf("unknown relationship %q (have %s)", r, strings.Join(known, ", "))
		}
	}
	if len(out) > 1 {
		return nil, fmt.Errorf("relationships %s cannot be combined: each attaches nodes to its own parent, choose one", strings.Join(out, " and "))
	}
	return out, nil
}

// Default runs containment alone.
func Default(classify section.Classifier) *Pipeline {
	return NewBuilder().Use(ContainedInSectionRule(classify)).Build()
}

// Standard registers containment followed by the syntactic parent rule, so
// callers can pick either relationship when building forests.
func Standard(classify section.Classifier) *Pipeline {
	return NewBuilder().Use(ContainedInSectionRule(classify), SyntacticParent()).Build()
}
