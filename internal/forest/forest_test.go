package forest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/dgallion1/docgraph/internal/rule"
)

func txt(s string) *doctree.Node { return &doctree.Node{Kind: doctree.KindText, Value: s} }

func heading(level int, label string) *doctree.Node {
	return &doctree.Node{Kind: doctree.KindHeading, Level: level, Lines: 1, Children: []*doctree.Node{txt(label)}}
}

func code(v string) *doctree.Node {
	return &doctree.Node{Kind: doctree.KindCode, Value: v, Lines: 1}
}

func document(label string, children ...*doctree.Node) *doctree.Document {
	return doctree.New(label, &doctree.Node{Kind: doctree.KindDocument, Children: children})
}

func kinds(nodes []*Node) []doctree.Kind {
	out := make([]doctree.Kind, len(nodes))
	for i, n := range nodes {
		out[i] = n.Node.Kind
	}
	return out
}

func TestBuild_ContainmentForest(t *testing.T) {
	orphan := code("before")
	h1 := heading(1, "A")
	c1 := code("one")
	h2 := heading(2, "B")
	c2 := code("two")
	d := document("a.md", orphan, h1, c1, h2, c2)

	edges := rule.Default(nil).Run(d)
	f, err := Build(d, edges, rule.ContainedInSection)
	require.NoError(t, err)

	assert.Equal(t, "a.md", f.Label)
	assert.Equal(t, len(d.Nodes()), f.Len(), "every document node is represented")
	require.Len(t, f.Roots, 2)
	assert.Same(t, orphan, f.Roots[0].Node)
	assert.Same(t, h1, f.Roots[1].Node)
	assert.Nil(t, f.Roots[0].Edge)

	// Heading text, code, then the nested heading: document order.
	top := f.Roots[1]
	assert.Equal(t, []doctree.Kind{doctree.KindText, doctree.KindCode, doctree.KindHeading}, kinds(top.Children))
	assert.Same(t, c1, top.Children[1].Node)

	sub, ok := f.Lookup(h2)
	require.True(t, ok)
	require.Len(t, sub.Children, 2)
	assert.Same(t, c2, sub.Children[1].Node)
	require.NotNil(t, sub.Children[1].Edge)
	assert.Equal(t, rule.ContainedInSection, sub.Children[1].Edge.Relationship)
}

func TestBuild_ChildrenFollowDocumentOrderNotEdgeOrder(t *testing.T) {
	h := heading(1, "A")
	a := code("a")
	b := code("b")
	d := document("order.md", h, a, b)

	// Edges deliberately registered back to front.
	edges := rule.EdgeSet{
		{Source: b, Target: h, Relationship: rule.ContainedInSection},
		{Source: a, Target: h, Relationship: rule.ContainedInSection},
	}
	f, err := Build(d, edges, rule.ContainedInSection)
	require.NoError(t, err)

	tn, _ := f.Lookup(h)
	require.Len(t, tn.Children, 2)
	assert.Same(t, a, tn.Children[0].Node)
	assert.Same(t, b, tn.Children[1].Node)
}

func TestBuild_FiltersRelationships(t *testing.T) {
	h := heading(1, "A")
	c := code("x")
	d := document("f.md", h, c)

	edges := rule.NewBuilder().Use(rule.ContainedInSectionRule(nil), rule.SyntacticParent()).Build().Run(d)

	contained, err := Build(d, edges, rule.ContainedInSection)
	require.NoError(t, err)
	assert.Len(t, contained.Roots, 1)

	raw, err := Build(d, edges, rule.ChildOf)
	require.NoError(t, err)
	assert.Len(t, raw.Roots, 2, "raw nesting keeps both blocks top level")

	none, err := Build(d, edges)
	require.NoError(t, err)
	assert.Len(t, none.Roots, len(d.Nodes()))
}

func TestBuild_MultipleParentsIsInvariantViolation(t *testing.T) {
	h1 := heading(1, "A")
	h2 := heading(1, "B")
	c := code("x")
	d := document("bad.md", h1, h2, c)

	edges := rule.EdgeSet{
		{Source: c, Target: h1, Relationship: rule.ContainedInSection},
		{Source: c, Target: h2, Relationship: rule.ContainedInSection},
	}
	_, err := Build(d, edges, rule.ContainedInSection)
	require.Error(t, err)

	var iv *InvariantViolation
	require.True(t, errors.As(err, &iv))
	assert.Same(t, c, iv.Source)
	assert.Equal(t, "bad.md", iv.Document)
	assert.Contains(t, err.Error(), "more than one outgoing edge")
}

func TestBuild_OverlappingRelationshipsNameBoth(t *testing.T) {
	h := heading(1, "A")
	d := document("both.md", h, code("x"))
	edges := rule.Standard(nil).Run(d)

	_, err := Build(d, edges, rule.ContainedInSection, rule.ChildOf)
	var iv *InvariantViolation
	require.True(t, errors.As(err, &iv))
	assert.Same(t, h.Children[0], iv.Source, "the heading text has a parent under both rules")
	assert.Contains(t, iv.Reason, "attached by both "+rule.ContainedInSection+" and "+rule.ChildOf)
}

func TestBuild_ForeignNodeIsInvariantViolation(t *testing.T) {
	h := heading(1, "A")
	d := document("one.md", h)
	foreign := code("elsewhere")

	_, err := Build(d, rule.EdgeSet{{Source: foreign, Target: h, Relationship: rule.ContainedInSection}}, rule.ContainedInSection)
	var iv *InvariantViolation
	require.True(t, errors.As(err, &iv))
	assert.Contains(t, iv.Reason, "source")
}

func TestBuild_CycleIsInvariantViolation(t *testing.T) {
	a := code("a")
	b := code("b")
	d := document("cycle.md", a, b)

	edges := rule.EdgeSet{
		{Source: a, Target: b, Relationship: "loop"},
		{Source: b, Target: a, Relationship: "loop"},
	}
	_, err := Build(d, edges, "loop")
	var iv *InvariantViolation
	require.True(t, errors.As(err, &iv))
	assert.Contains(t, iv.Reason, "cycle")
}

func TestBuild_EmptyDocument(t *testing.T) {
	d := document("empty.md")
	f, err := Build(d, rule.Default(nil).Run(d), rule.ContainedInSection)
	require.NoError(t, err)
	assert.Empty(t, f.Roots)
	assert.Equal(t, 0, f.Len())
}

func TestBuild_ForestsAreIndependent(t *testing.T) {
	d1 := document("one.md", heading(1, "A"), code("x"))
	d2 := document("two.md", heading(1, "A"), code("x"))

	f1, err := Build(d1, rule.Default(nil).Run(d1), rule.ContainedInSection)
	require.NoError(t, err)
	f2, err := Build(d2, rule.Default(nil).Run(d2), rule.ContainedInSection)
	require.NoError(t, err)

	for _, n := range d1.Nodes() {
		_, ok := f2.Lookup(n)
		assert.False(t, ok)
	}
	assert.NotSame(t, f1.Roots[0], f2.Roots[0])
}

func TestForest_Walk(t *testing.T) {
	h1 := heading(1, "A")
	h2 := heading(2, "B")
	c := code("x")
	d := document("walk.md", h1, h2, c)

	f, err := Build(d, rule.Default(nil).Run(d), rule.ContainedInSection)
	require.NoError(t, err)

	var path []*doctree.Node
	err = f.Walk(func(n *Node, ancestors []*Node) error {
		if n.Node == c {
			for _, a := range ancestors {
				path = append(path, a.Node)
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []*doctree.Node{h1, h2}, path)

	stop := errors.New("stop")
	visited := 0
	err = f.Walk(func(*Node, []*Node) error {
		visited++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, visited)
}
