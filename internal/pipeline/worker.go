package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/dgallion1/docgraph/internal/extract"
	"github.com/dgallion1/docgraph/internal/parser"
	"github.com/dgallion1/docgraph/internal/pathstore"
	"github.com/dgallion1/docgraph/internal/rule"
)

// Store is the part of the pathstore API the worker writes through.
type Store interface {
	PutNode(ctx context.Context, key string, req pathstore.NodeRequest) error
	PutLink(ctx context.Context, req pathstore.LinkRequest) error
	ListChildren(ctx context.Context, key string, limit int) ([]pathstore.ListChildrenResponse, error)
}

// Worker processes a single document job.
type Worker struct {
	extractor *extract.Extractor
	store     Store
	log       *slog.Logger
	parseOpts parser.Options

	maxConcurrentStore int
}

func NewWorker(ex *extract.Extractor, store Store, log *slog.Logger, parseOpts parser.Options, maxStore int) *Worker {
	if maxStore <= 0 {
		maxStore = 1
	}
	return &Worker{
		extractor:          ex,
		store:              store,
		log:                log,
		parseOpts:          parseOpts,
		maxConcurrentStore: maxStore,
	}
}

// storedSection is one enclosing section written alongside the cells it contains.
type storedSection struct {
	id     string
	parent string
	crumb  extract.Crumb
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "user_id", job.UserID)
	defer job.releaseFileData()

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename, w.parseOpts)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	doc, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if job.Title != "" {
		doc.Title = job.Title
	}

	hash := ContentHashHex([]byte(documentFingerprint(doc)))
	job.SetContentHash(hash)
	keys := pathstore.Keys{UserID: job.UserID}

	// Phase 1.5: Dedup check
	if !job.Force {
		exists, existingDocID, err := w.checkDuplicate(ctx, keys, hash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if exists {
			log.Info("duplicate document, skipping", "existing_doc_id", existingDocID)
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	// Phase 2: Extract
	job.SetStatus(StatusExtracting, "extracting")
	batch, err := w.extractor.Extract(ctx, []*doctree.Document{doc})
	if err != nil {
		log.Error("extraction cancelled", "error", err)
		job.AddError(fmt.Sprintf("extract: %s", err))
		job.SetStatus(StatusFailed, "extracting")
		return
	}
	if len(batch.Documents) == 1 {
		job.SetGraph(batch.Documents[0].Nodes, batch.Documents[0].Edges)
	}
	if len(batch.Errors) > 0 {
		for _, e := range batch.Errors {
			log.Error("extraction failed", "error", e.Err)
			job.AddError(fmt.Sprintf("extract: %s", e.Err))
		}
		job.SetStatus(StatusFailed, "extracting")
		return
	}
	items := batch.Items
	job.SetCellsFound(len(items))
	log.Info("extraction complete", "cells", len(items))

	// Phase 3: Store sections, then cells linked to their innermost section.
	job.SetStatus(StatusStoring, "storing")
	hadErrors := false
	source := "docgraph:" + job.DocID

	sections, cellSection := collectSections(doc, items)
	storedSections := 0
	for _, sec := range sections {
		if err := w.storeSection(ctx, log, keys, job.DocID, source, sec); err != nil {
			log.Error("section store failed", "section", sec.id, "error", err)
			job.AddError(fmt.Sprintf("section %s: %s", sec.id, err))
			hadErrors = true
			continue
		}
		storedSections++
	}
	job.AddStored(0, storedSections)

	storeSem := make(chan struct{}, w.maxConcurrentStore)
	type storeResult struct {
		ok   bool
		err  error
		path string
	}
	storeResults := make(chan storeResult, len(items))

	for i, it := range items {
		storeSem <- struct{}{}
		go func(it extract.Item, sectionID string) {
			defer func() { <-storeSem }()
			path, err := w.storeCell(ctx, log, keys, job, source, it, sectionID)
			storeResults <- storeResult{ok: err == nil, err: err, path: path}
		}(it, cellSection[i])
	}

	storedCount := 0
	for range items {
		r := <-storeResults
		if r.ok {
			storedCount++
			continue
		}
		log.Error("store failed", "path", r.path, "error", r.err)
		job.AddError(fmt.Sprintf("store %s: %s", r.path, r.err))
		hadErrors = true
	}
	job.AddStored(storedCount, 0)
	log.Info("storage complete", "stored", storedCount, "total", len(items), "sections", storedSections)

	// Write document metadata.
	metaErr := withRetry(ctx, log, "meta", func() error {
		return w.store.PutNode(ctx, keys.Meta(job.DocID), pathstore.NodeRequest{
			Value: map[string]any{
				"filename":      job.Filename,
				"title":         doc.Title,
				"content_hash":  hash,
				"cells_stored":  storedCount,
				"sections":      storedSections,
				"relationships": w.extractor.Relationships,
				"created_at":    job.CreatedAt.Format(time.RFC3339),
			},
			MemoryType: "metacognitive",
			Salience:   0.5,
			Source:     source,
		})
	})
	if metaErr != nil {
		log.Error("meta write failed", "error", metaErr)
		job.AddError(fmt.Sprintf("meta: %s", metaErr))
		hadErrors = true
	}

	// Write hash index for dedup.
	hashErr := withRetry(ctx, log, "hash_index", func() error {
		return w.store.PutNode(ctx, keys.HashIndex(hash, job.DocID), pathstore.NodeRequest{
			Value: map[string]any{
				"filename":   job.Filename,
				"created_at": job.CreatedAt.Format(time.RFC3339),
			},
			MemoryType: "metacognitive",
			Salience:   0.1,
			Source:     source,
		})
	})
	if hashErr != nil {
		log.Error("hash index write failed", "error", hashErr)
	}

	switch {
	case hadErrors && storedCount > 0:
		job.SetStatus(StatusPartial, "done")
	case hadErrors:
		job.SetStatus(StatusFailed, "storing")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
}

func (w *Worker) storeSection(ctx context.Context, log *slog.Logger, keys pathstore.Keys, docID, source string, sec storedSection) error {
	key := keys.Section(docID, sec.id)
	err := withRetry(ctx, log, "section", func() error {
		return w.store.PutNode(ctx, key, pathstore.NodeRequest{
			Value: map[string]any{
				"label":  sec.crumb.Label,
				"nature": sec.crumb.Nature,
				"kind":   sec.crumb.Kind,
				"level":  sec.crumb.Level,
				"line":   sec.crumb.Line,
				"parent": sec.parent,
			},
			MemoryType: "semantic",
			Salience:   0.2,
			Source:     source,
		})
	})
	if err != nil || sec.parent == "" {
		return err
	}
	return withRetry(ctx, log, "section_link", func() error {
		return w.store.PutLink(ctx, pathstore.LinkRequest{
			From:    key,
			To:      keys.Section(docID, sec.parent),
			Weight:  1,
			Summary: rule.ContainedInSection,
		})
	})
}

// storeCell writes one extracted item and returns the path used.
func (w *Worker) storeCell(ctx context.Context, log *slog.Logger, keys pathstore.Keys, job *Job, source string, it extract.Item, sectionID string) (string, error) {
	path := keys.Cell(job.DocID, uuid.Must(uuid.NewV7()).String())
	err := withRetry(ctx, log, "cell", func() error {
		return w.store.PutNode(ctx, path, pathstore.NodeRequest{
			Value: map[string]any{
				"kind":      it.Kind,
				"lang":      it.Lang,
				"meta":      it.Meta,
				"value":     it.Value,
				"line":      it.Line,
				"ancestors": it.Sections,
				"path":      it.Path(),
				"source": map[string]any{
					"type":     "document",
					"doc_id":   job.DocID,
					"filename": job.Filename,
				},
			},
			MemoryType: "procedural",
			Salience:   0.5,
			Source:     source,
		})
	})
	if err != nil || sectionID == "" {
		return path, err
	}
	err = withRetry(ctx, log, "cell_link", func() error {
		return w.store.PutLink(ctx, pathstore.LinkRequest{
			From:    path,
			To:      keys.Section(job.DocID, sectionID),
			Weight:  1,
			Summary: rule.ContainedInSection,
		})
	})
	return path, err
}

// checkDuplicate checks if this content hash already exists for the user.
func (w *Worker) checkDuplicate(ctx context.Context, keys pathstore.Keys, hash string) (bool, string, error) {
	children, err := w.store.ListChildren(ctx, keys.HashPrefix(hash), 1)
	if err != nil {
		return false, "", err
	}
	if len(children) > 0 {
		return true, pathstore.LastSegment(children[0].Key), nil
	}
	return false, "", nil
}

// collectSections lists every section enclosing at least one item, outermost
// first, and returns the innermost section id for each item ("" for orphans).
// Section ids combine the node's pre-order position with a slug of its label so
// they are stable across re-ingests of the same content.
func collectSections(doc *doctree.Document, items []extract.Item) ([]storedSection, []string) {
	position := make(map[*doctree.Node]int)
	for i, n := range doc.Nodes() {
		position[n] = i
	}

	seen := make(map[*doctree.Node]string)
	var sections []storedSection
	innermost := make([]string, len(items))
	for i, it := range items {
		parent := ""
		for j, a := range it.Ancestors {
			id, ok := seen[a.Node]
			if !ok {
				crumb := it.Sections[j]
				slug := pathstore.Slugify(crumb.Label)
				if slug == "" {
					slug = "section"
				}
				id = fmt.Sprintf("%d-%s", position[a.Node], slug)
				seen[a.Node] = id
				sections = append(sections, storedSection{id: id, parent: parent, crumb: crumb})
			}
			parent = id
		}
		innermost[i] = parent
	}
	return sections, innermost
}

// documentFingerprint serialises every node in pre-order with its kind, depth,
// heading level and literal fields. Line numbers are left out so blank-line
// changes still dedup, while any change to code, text or nesting does not.
func documentFingerprint(doc *doctree.Document) string {
	var sb strings.Builder
	var visit func(n *doctree.Node, depth int)
	visit = func(n *doctree.Node, depth int) {
		fmt.Fprintf(&sb, "%d\x1f%s\x1f%d\x1f%q\x1f%q\x1f%q\x1f%q\n",
			depth, n.Kind, n.Level, n.Lang, n.Meta, n.Destination, n.Value)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, n := range doc.Root.Children {
		visit(n, 0)
	}
	return sb.String()
}
