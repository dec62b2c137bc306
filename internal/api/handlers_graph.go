package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/dgallion1/docgraph/internal/forest"
	"github.com/dgallion1/docgraph/internal/parser"
	"github.com/dgallion1/docgraph/internal/section"
)

const previewLen = 80

type graphEdge struct {
	Source       int    `json:"source"`
	Target       int    `json:"target"`
	Relationship string `json:"relationship"`
	Payload      any    `json:"payload,omitempty"`
}

type graphNode struct {
	Index    int                 `json:"index"`
	Kind     string              `json:"kind"`
	Text     string              `json:"text,omitempty"`
	Line     int                 `json:"line,omitempty"`
	Section  *section.Descriptor `json:"section,omitempty"`
	Children []*graphNode        `json:"children,omitempty"`
}

type graphResponse struct {
	Label         string       `json:"label"`
	Title         string       `json:"title"`
	Nodes         int          `json:"nodes"`
	Rules         []string     `json:"rules"`
	Relationships []string     `json:"relationships"`
	Edges         []graphEdge  `json:"edges"`
	Forest        []*graphNode `json:"forest"`
}

// handleGraph runs the rule pipeline on one document and returns both the raw
// edge set and the forest built from the requested relationships. Nodes are
// identified by their pre-order index.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseExtractQuery(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads, status, err := s.readUploads(r.MultipartForm.File["file"])
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}
	if len(uploads) != 1 {
		jsonError(w, "exactly one file is required", http.StatusBadRequest)
		return
	}

	doc, err := parser.ParseFile(uploads[0].data, uploads[0].filename, parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	edges := s.extractor.Pipeline.Run(doc)
	f, err := forest.Build(doc, edges, q.relationships...)
	if err != nil {
		var iv *forest.InvariantViolation
		if errors.As(err, &iv) {
			jsonError(w, iv.Error(), http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	nodes := doc.Nodes()
	index := make(map[*doctree.Node]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}

	resp := graphResponse{
		Label:         doc.Label,
		Title:         doc.Title,
		Nodes:         len(nodes),
		Rules:         s.extractor.Pipeline.Names(),
		Relationships: q.relationships,
		Edges:         make([]graphEdge, 0, len(edges)),
		Forest:        make([]*graphNode, 0, len(f.Roots)),
	}
	for _, e := range edges {
		resp.Edges = append(resp.Edges, graphEdge{
			Source:       index[e.Source],
			Target:       index[e.Target],
			Relationship: e.Relationship,
			Payload:      e.Payload,
		})
	}
	var view func(n *forest.Node) *graphNode
	view = func(n *forest.Node) *graphNode {
		g := &graphNode{
			Index: index[n.Node],
			Kind:  n.Node.Kind.String(),
			Text:  preview(n.Node),
			Line:  n.Node.Line,
		}
		for _, c := range n.Children {
			if c.Edge != nil {
				if d, ok := c.Edge.Payload.(section.Descriptor); ok && g.Section == nil {
					g.Section = &d
				}
			}
			g.Children = append(g.Children, view(c))
		}
		return g
	}
	for _, root := range f.Roots {
		resp.Forest = append(resp.Forest, view(root))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func preview(n *doctree.Node) string {
	t := n.Value
	if t == "" {
		t = n.Text()
	}
	if r := []rune(t); len(r) > previewLen {
		return string(r[:previewLen]) + "…"
	}
	return t
}
