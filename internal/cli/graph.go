package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/dgallion1/docgraph/internal/forest"
	"github.com/dgallion1/docgraph/internal/rule"
)

type edgeView struct {
	Source       int    `json:"source"`
	SourceKind   string `json:"source_kind"`
	Target       int    `json:"target"`
	TargetKind   string `json:"target_kind"`
	Relationship string `json:"relationship"`
	Payload      any    `json:"payload,omitempty"`
}

type graphOptions struct {
	relationships []string
	format        string
}

func newEdgesCmd(root *rootOptions) *cobra.Command {
	opts := &graphOptions{}
	cmd := &cobra.Command{
		Use:   "edges FILE",
		Short: "Print the edges every rule infers for one document",
		Long: `Print the edges every rule infers for one document. Nodes are numbered by
their pre-order position, starting at 0 with the first node below the root.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.format, "text", "json"); err != nil {
				return err
			}
			p := root.pipeline()
			docs, err := root.loadDocuments(args)
			if err != nil {
				return err
			}
			doc := docs[0]
			edges := p.Run(doc)
			if len(opts.relationships) > 0 {
				if err := checkRelationships(p, opts.relationships); err != nil {
					return err
				}
				edges = edges.Filter(opts.relationships...)
			}

			index := indexNodes(doc)
			views := make([]edgeView, 0, len(edges))
			for _, e := range edges {
				views = append(views, edgeView{
					Source:       index[e.Source],
					SourceKind:   e.Source.Kind.String(),
					Target:       index[e.Target],
					TargetKind:   e.Target.Kind.String(),
					Relationship: e.Relationship,
					Payload:      e.Payload,
				})
			}

			if opts.format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}
			newPrinter(cmd.OutOrStdout()).edges(doc, edges, index)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&opts.relationships, "relationship", "r", nil, "Only print edges with these relationships")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text or json")
	return cmd
}

func newTreeCmd(root *rootOptions) *cobra.Command {
	opts := &graphOptions{}
	cmd := &cobra.Command{
		Use:   "tree FILE",
		Short: "Print the forest one relationship set builds for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := root.pipeline()
			rels, err := p.Select(opts.relationships)
			if err != nil {
				return err
			}
			docs, err := root.loadDocuments(args)
			if err != nil {
				return err
			}
			f, err := forest.Build(docs[0], p.Run(docs[0]), rels...)
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).forest(f)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&opts.relationships, "relationship", "r", []string{rule.ContainedInSection}, "Relationship that forms the forest (one of the registered rules)")
	return cmd
}

func indexNodes(doc *doctree.Document) map[*doctree.Node]int {
	nodes := doc.Nodes()
	index := make(map[*doctree.Node]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}
	return index
}
