package extract

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/dgallion1/docgraph/internal/forest"
	"github.com/dgallion1/docgraph/internal/rule"
)

// Extractor runs the whole flow for a batch of documents:
// rules → edges → forest → visitor.
type Extractor struct {
	Pipeline      *rule.Pipeline
	Relationships []string
	Match         Predicate
	Workers       int    // Documents processed in parallel; <= 0 means 1
	Stats         *Stats // Optional per-document latency window
	Log           *slog.Logger
}

// New returns an Extractor over the containment relationship.
func New(p *rule.Pipeline, match Predicate, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		Pipeline:      p,
		Relationships: []string{rule.ContainedInSection},
		Match:         match,
		Workers:       1,
		Log:           log,
	}
}

// DocumentSummary counts what one document produced.
type DocumentSummary struct {
	DocIndex int    `json:"doc_index"`
	DocLabel string `json:"doc_label"`
	Nodes    int    `json:"nodes"`
	Edges    int    `json:"edges"`
	Roots    int    `json:"roots"`
	Items    int    `json:"items"`
	Failed   bool   `json:"failed,omitempty"`
}

// Batch is the outcome of Extract.
type Batch struct {
	Result
	Documents []DocumentSummary
}

type docOutcome struct {
	items   []Item
	err     *DocumentError
	summary DocumentSummary
}

// Extract processes docs and returns items in document order. Documents run in
// parallel up to Workers; each document's own pass stays sequential. A document
// that fails is reported in Errors without stopping the others. The returned error
// is non-nil only when ctx is cancelled.
func (e *Extractor) Extract(ctx context.Context, docs []*doctree.Document) (Batch, error) {
	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}
	match := e.Match
	if match == nil {
		match = IsCode
	}

	outcomes := make([]docOutcome, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = e.one(i, doc, match)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}

	var b Batch
	for _, o := range outcomes {
		b.Documents = append(b.Documents, o.summary)
		if o.err != nil {
			b.Errors = append(b.Errors, o.err)
			continue
		}
		b.Items = append(b.Items, o.items...)
	}
	return b, nil
}

func (e *Extractor) one(i int, doc *doctree.Document, match Predicate) docOutcome {
	start := time.Now()
	label := doc.Label
	if label == "" {
		label = docLabel(i, nil)
	}
	log := e.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("doc", label, "doc_index", i)

	edges := e.Pipeline.Run(doc)
	out := docOutcome{summary: DocumentSummary{
		DocIndex: i,
		DocLabel: label,
		Nodes:    len(doc.Nodes()),
		Edges:    len(edges),
	}}

	f, err := forest.Build(doc, edges, e.Relationships...)
	if err != nil {
		log.Error("forest build failed", "error", err)
		return e.fail(out, err, start)
	}
	f.Label = label
	out.summary.Roots = len(f.Roots)

	items, err := visitDocument(i, label, f, match)
	if err != nil {
		log.Error("extraction failed", "error", err)
		return e.fail(out, err, start)
	}
	out.items = items
	out.summary.Items = len(items)

	elapsed := time.Since(start)
	if e.Stats != nil {
		e.Stats.Record(elapsed.Milliseconds(), len(items))
	}
	log.Debug("document extracted", "edges", len(edges), "items", len(items), "duration_ms", elapsed.Milliseconds())
	return out
}

func (e *Extractor) fail(out docOutcome, err error, start time.Time) docOutcome {
	out.err = &DocumentError{DocIndex: out.summary.DocIndex, DocLabel: out.summary.DocLabel, Err: err}
	out.summary.Failed = true
	if e.Stats != nil {
		e.Stats.RecordFailure(time.Since(start).Milliseconds())
	}
	return out
}
