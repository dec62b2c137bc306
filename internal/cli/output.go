package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/xlab/treeprint"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/dgallion1/docgraph/internal/extract"
	"github.com/dgallion1/docgraph/internal/forest"
	"github.com/dgallion1/docgraph/internal/rule"
	"github.com/dgallion1/docgraph/internal/section"
)

const crumbSep = " › "

// printer renders human-readable output. Styles come from a renderer bound to
// the writer, so piped output stays plain.
type printer struct {
	w       io.Writer
	header  lipgloss.Style
	crumb   lipgloss.Style
	dim     lipgloss.Style
	kind    lipgloss.Style
	section lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:       w,
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("160")),
		crumb:   r.NewStyle().Foreground(lipgloss.Color("81")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("240")),
		kind:    r.NewStyle().Foreground(lipgloss.Color("42")),
		section: r.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
	}
}

// items prints each item numbered within its own document.
func (p *printer) items(items []extract.Item) {
	perDoc := make(map[int]int)
	for i, it := range items {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		perDoc[it.DocIndex]++
		loc := fmt.Sprintf("%s:%d", it.DocLabel, it.Line)
		tag := it.Kind
		if it.Lang != "" {
			tag = it.Lang
		}
		fmt.Fprintf(p.w, "%s %s %s\n", p.dim.Render(fmt.Sprintf("#%d", perDoc[it.DocIndex])), p.header.Render(loc), p.dim.Render(tag))
		if path := it.Path(); len(path) > 0 {
			fmt.Fprintln(p.w, p.crumb.Render(strings.Join(path, crumbSep)))
		}
		for _, line := range strings.Split(it.Value, "\n") {
			fmt.Fprintln(p.w, "  "+line)
		}
	}
}

func (p *printer) edges(doc *doctree.Document, edges rule.EdgeSet, index map[*doctree.Node]int) {
	table := tablewriter.NewWriter(p.w)
	table.SetHeader([]string{"Source", "Kind", "Target", "Kind", "Relationship", "Section"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, e := range edges {
		label := ""
		if d, ok := e.Payload.(section.Descriptor); ok {
			label = d.Label
		}
		table.Append([]string{
			strconv.Itoa(index[e.Source]), e.Source.Kind.String(),
			strconv.Itoa(index[e.Target]), e.Target.Kind.String(),
			e.Relationship, label,
		})
	}
	table.Render()
	fmt.Fprintln(p.w, p.dim.Render(fmt.Sprintf("%d edges over %d nodes in %s", len(edges), len(index), doc.Label)))
}

// forest draws every root of f under a tree labelled with the document.
func (p *printer) forest(f *forest.Forest) {
	tree := treeprint.NewWithRoot(p.header.Render(f.Label))
	var add func(t treeprint.Tree, n *forest.Node)
	add = func(t treeprint.Tree, n *forest.Node) {
		text := summary(n.Node)
		if len(n.Children) > 0 {
			if d, ok := n.Children[0].Edge.Payload.(section.Descriptor); ok {
				text = p.section.Render(d.Label)
			}
		}
		value := fmt.Sprintf("%s %s %s", p.kind.Render(n.Node.Kind.String()), text, p.dim.Render(fmt.Sprintf(":%d", n.Node.Line)))
		if len(n.Children) == 0 {
			t.AddNode(value)
			return
		}
		branch := t.AddBranch(value)
		for _, c := range n.Children {
			add(branch, c)
		}
	}
	for _, root := range f.Roots {
		add(tree, root)
	}
	fmt.Fprint(p.w, tree.String())
}

// summary is the first line of a node's text, cut to a terminal-friendly width.
func summary(n *doctree.Node) string {
	t := n.Value
	if t == "" {
		t = n.Text()
	}
	t, _, _ = strings.Cut(t, "\n")
	if r := []rune(t); len(r) > 60 {
		t = string(r[:60]) + "…"
	}
	return t
}
