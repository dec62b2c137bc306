package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/dgallion1/docgraph/internal/section"
)

func txt(s string) *doctree.Node { return &doctree.Node{Kind: doctree.KindText, Value: s} }

func heading(level int, label string) *doctree.Node {
	return &doctree.Node{Kind: doctree.KindHeading, Level: level, Lines: 1, Children: []*doctree.Node{txt(label)}}
}

func para(s string) *doctree.Node {
	return &doctree.Node{Kind: doctree.KindParagraph, Lines: 1, Children: []*doctree.Node{txt(s)}}
}

func boldPara(s string) *doctree.Node {
	return &doctree.Node{Kind: doctree.KindParagraph, Lines: 1, Children: []*doctree.Node{
		{Kind: doctree.KindStrong, Children: []*doctree.Node{txt(s)}},
	}}
}

func code(v string) *doctree.Node {
	return &doctree.Node{Kind: doctree.KindCode, Value: v, Lang: "ts", Lines: 1}
}

func doc(children ...*doctree.Node) *doctree.Document {
	return doctree.New("test.md", &doctree.Node{Kind: doctree.KindDocument, Children: children})
}

// parentOf resolves the containment target of n, failing on more than one edge.
func parentOf(t *testing.T, edges EdgeSet, n *doctree.Node) *doctree.Node {
	t.Helper()
	out := edges.Outgoing(n, ContainedInSection)
	require.LessOrEqual(t, len(out), 1, "node has more than one containment edge")
	if len(out) == 0 {
		return nil
	}
	return out[0].Target
}

func TestContainment_NestingByLevel(t *testing.T) {
	h1 := heading(1, "A")
	between := para("between")
	h2 := heading(2, "B")
	p := para("inside B")
	d := doc(h1, between, h2, p)

	edges := Default(nil).Run(d)

	assert.Same(t, h1, parentOf(t, edges, between))
	assert.Same(t, h1, parentOf(t, edges, h2))
	assert.Same(t, h2, parentOf(t, edges, p))
	assert.Same(t, h2, parentOf(t, edges, p.Children[0]))
	assert.Nil(t, parentOf(t, edges, h1))
}

func TestContainment_SiblingReplacement(t *testing.T) {
	h1 := heading(1, "Top")
	a := heading(2, "A")
	pa := para("a body")
	b := heading(2, "B")
	pb := para("b body")
	d := doc(h1, a, pa, b, pb)

	edges := Default(nil).Run(d)

	assert.Same(t, h1, parentOf(t, edges, a))
	assert.Same(t, h1, parentOf(t, edges, b), "sibling heading must not nest under the previous one")
	assert.Same(t, a, parentOf(t, edges, pa))
	assert.Same(t, b, parentOf(t, edges, pb))
}

func TestContainment_ShallowerHeadingClosesDeeperScopes(t *testing.T) {
	h1 := heading(1, "One")
	h3 := heading(3, "Deep")
	h2 := heading(2, "Two")
	p := para("x")
	d := doc(h1, h3, h2, p)

	edges := Default(nil).Run(d)

	assert.Same(t, h1, parentOf(t, edges, h3))
	assert.Same(t, h1, parentOf(t, edges, h2))
	assert.Same(t, h2, parentOf(t, edges, p))
}

func TestContainment_ParagraphSections(t *testing.T) {
	h2 := heading(2, "Sub")
	scope := boldPara("Scope:")
	c := code("code")
	steps := para("Steps:")
	c2 := code("more")
	h3 := heading(3, "Next")
	after := para("after")
	d := doc(h2, scope, c, steps, c2, h3, after)

	edges := Default(nil).Run(d)

	assert.Same(t, h2, parentOf(t, edges, scope))
	assert.Same(t, scope, parentOf(t, edges, c))
	assert.Same(t, h2, parentOf(t, edges, steps), "paragraph sections are siblings")
	assert.Same(t, steps, parentOf(t, edges, c2))
	assert.Same(t, h2, parentOf(t, edges, h3), "a heading closes paragraph sections")
	assert.Same(t, h3, parentOf(t, edges, after))

	out := edges.Outgoing(c, ContainedInSection)
	require.Len(t, out, 1)
	desc, ok := out[0].Payload.(section.Descriptor)
	require.True(t, ok)
	assert.Equal(t, section.NatureBoldParagraph, desc.Nature)
	assert.Equal(t, "Scope", desc.Label)
}

func TestContainment_OrphansBeforeFirstSection(t *testing.T) {
	intro := para("no section yet")
	c := code("orphan")
	h := heading(1, "Later")
	d := doc(intro, c, h)

	edges := Default(nil).Run(d)

	assert.Nil(t, parentOf(t, edges, intro))
	assert.Nil(t, parentOf(t, edges, c))
	assert.Nil(t, parentOf(t, edges, h))
}

func TestContainment_AtMostOneEdgePerNode(t *testing.T) {
	d := doc(
		heading(1, "A"), para("a"), boldPara("B"), code("b"),
		heading(2, "C"), para("Label: x"), code("c"), heading(1, "D"), code("d"),
	)
	edges := Default(nil).Run(d)

	seen := make(map[*doctree.Node]int)
	for _, e := range edges {
		assert.Equal(t, ContainedInSection, e.Relationship)
		seen[e.Source]++
	}
	for n, count := range seen {
		assert.Equalf(t, 1, count, "node %s has %d edges", n.Kind, count)
	}
}

func TestContainment_CustomClassifier(t *testing.T) {
	h := heading(1, "A")
	bold := boldPara("Not a section")
	c := code("x")
	d := doc(h, bold, c)

	edges := NewBuilder().Use(ContainedInSectionRule(section.Heuristics{}.Classifier())).Build().Run(d)
	assert.Same(t, h, parentOf(t, edges, c))
	assert.Same(t, h, parentOf(t, edges, bold))
}

func TestPipeline_Deterministic(t *testing.T) {
	d := doc(heading(1, "A"), para("a"), heading(2, "B"), boldPara("C"), code("x"))
	p := Default(nil)

	first := p.Run(d)
	second := p.Run(d)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Same(t, first[i].Source, second[i].Source)
		assert.Same(t, first[i].Target, second[i].Target)
		assert.Equal(t, first[i].Relationship, second[i].Relationship)
	}
}

func TestPipeline_EmptyDocument(t *testing.T) {
	edges := Default(nil).Run(doc())
	assert.NotNil(t, edges)
	assert.Empty(t, edges)
}

func TestPipeline_RegistrationOrder(t *testing.T) {
	d := doc(heading(1, "A"), para("a"))
	marker := Func("marker", func(in *Input) []Edge {
		return []Edge{{Source: in.Nodes[0], Target: in.Nodes[0], Relationship: "marker"}}
	})

	b := NewBuilder().Use(marker, nil, ContainedInSectionRule(nil), SyntacticParent())
	p := b.Build()
	b.Use(Func("late", func(*Input) []Edge { return nil }))

	assert.Equal(t, []string{"marker", ContainedInSection, ChildOf}, p.Names())

	edges := p.Run(d)
	assert.Equal(t, []string{"marker", ContainedInSection, ChildOf}, edges.Relationships())
	assert.Equal(t, "marker", edges[0].Relationship)
	// heading text, paragraph and paragraph text all sit under the heading.
	assert.Len(t, edges.Filter(ContainedInSection), 3)
	assert.Len(t, edges.Filter(ChildOf), 2)
	assert.Len(t, edges.Filter(ContainedInSection, ChildOf), 5)
}

func TestSyntacticParent(t *testing.T) {
	p := para("body")
	d := doc(heading(1, "A"), p)

	edges := NewBuilder().Use(SyntacticParent()).Build().Run(d)

	require.Len(t, edges, 2)
	out := edges.Outgoing(p.Children[0], ChildOf)
	require.Len(t, out, 1)
	assert.Same(t, p, out[0].Target)
	assert.Empty(t, edges.Outgoing(p, ChildOf), "top-level nodes have no parent edge")
}

func TestStandardPipeline(t *testing.T) {
	p := Standard(nil)
	assert.Equal(t, []string{ContainedInSection, ChildOf}, p.Names())

	edges := p.Run(doc(heading(1, "A"), para("a")))
	assert.Len(t, edges.Filter(ContainedInSection), 3)
	assert.Len(t, edges.Filter(ChildOf), 2)
}

func TestPipeline_Select(t *testing.T) {
	p := Standard(nil)

	tests := []struct {
		name string
		in   []string
		want []string
		msg  string
	}{
		{"single", []string{ContainedInSection}, []string{ContainedInSection}, ""},
		{"trimmed and deduplicated", []string{" childOf", "childOf ", ""}, []string{ChildOf}, ""},
		{"empty", []string{"", " "}, nil, "at least one relationship"},
		{"unknown", []string{"sibling"}, nil, "unknown relationship"},
		{"combined", []string{ContainedInSection, ChildOf}, nil, "cannot be combined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Select(tt.in)
			if tt.msg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.msg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
