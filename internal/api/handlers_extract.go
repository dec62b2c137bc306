package api

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/dgallion1/docgraph/internal/extract"
	"github.com/dgallion1/docgraph/internal/parser"
	"github.com/dgallion1/docgraph/internal/rule"
)

type documentErrorView struct {
	DocIndex int    `json:"doc_index"`
	DocLabel string `json:"doc_label"`
	Error    string `json:"error"`
}

type extractResponse struct {
	Items     []extract.Item            `json:"items"`
	Errors    []documentErrorView       `json:"errors"`
	Documents []extract.DocumentSummary `json:"documents"`
}

type upload struct {
	filename string
	data     []byte
}

// extractQuery holds the validated query parameters shared by extract and graph.
type extractQuery struct {
	kind          doctree.Kind
	lang          string
	relationships []string
	format        string
}

func (s *Server) parseExtractQuery(r *http.Request) (extractQuery, error) {
	q := extractQuery{kind: doctree.KindCode, format: "json", relationships: []string{rule.ContainedInSection}}
	v := r.URL.Query()

	if k := v.Get("kind"); k != "" {
		kind, ok := doctree.ParseKind(k)
		if !ok {
			return q, fmt.Errorf("unknown node kind %q", k)
		}
		q.kind = kind
	}
	q.lang = v.Get("lang")

	if rels := v.Get("relationships"); rels != "" {
		selected, err := s.extractor.Pipeline.Select(strings.Split(rels, ","))
		if err != nil {
			return q, err
		}
		q.relationships = selected
	}

	switch f := v.Get("format"); f {
	case "", "json":
	case "jsonl":
		q.format = f
	default:
		return q, fmt.Errorf("unknown format %q", f)
	}
	return q, nil
}

func (q extractQuery) predicate() extract.Predicate {
	return func(n *doctree.Node) (bool, error) {
		return n.Kind == q.kind && (q.lang == "" || strings.EqualFold(n.Lang, q.lang)), nil
	}
}

// cacheKey identifies a request by its query and the exact uploaded bytes.
func (q extractQuery) cacheKey(uploads []upload) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", q.kind, q.lang, strings.Join(q.relationships, ","))
	for _, u := range uploads {
		h.Write([]byte(u.filename))
		binary.Write(h, binary.BigEndian, int64(len(u.data)))
		h.Write(u.data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseExtractQuery(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads, status, err := s.readUploads(r.MultipartForm.File["files"])
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}
	if len(uploads) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	key := q.cacheKey(uploads)
	resp, hit := s.cache.Get(key)
	if !hit {
		docs := make([]*doctree.Document, 0, len(uploads))
		for _, u := range uploads {
			doc, err := parser.ParseFile(u.data, u.filename, parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext})
			if err != nil {
				jsonError(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			docs = append(docs, doc)
		}

		ex := *s.extractor
		ex.Match = q.predicate()
		ex.Relationships = q.relationships
		ex.Log = s.log.With("request_id", requestID(r))
		batch, err := ex.Extract(r.Context(), docs)
		if err != nil {
			jsonError(w, "extraction cancelled: "+err.Error(), http.StatusServiceUnavailable)
			return
		}

		resp = &extractResponse{
			Items:     batch.Items,
			Errors:    make([]documentErrorView, 0, len(batch.Errors)),
			Documents: batch.Documents,
		}
		if resp.Items == nil {
			resp.Items = []extract.Item{}
		}
		for _, e := range batch.Errors {
			resp.Errors = append(resp.Errors, documentErrorView{DocIndex: e.DocIndex, DocLabel: e.DocLabel, Error: e.Err.Error()})
		}
		s.cache.Add(key, resp)
	}

	cacheStatus := "miss"
	if hit {
		cacheStatus = "hit"
	}
	w.Header().Set("X-Cache", cacheStatus)

	if q.format == "jsonl" {
		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		for _, it := range resp.Items {
			enc.Encode(it)
		}
		for _, e := range resp.Errors {
			enc.Encode(e)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// readUploads reads every file header, enforcing the extension allow-list and
// the per-file size limit.
func (s *Server) readUploads(files []*multipart.FileHeader) ([]upload, int, error) {
	uploads := make([]upload, 0, len(files))
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			return nil, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
		}
		f, err := fh.Open()
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("failed to open %s", filename)
		}
		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil {
			return nil, http.StatusInternalServerError, fmt.Errorf("failed to read %s", filename)
		}
		if int64(len(data)) > s.cfg.MaxUploadBytes {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("%s exceeds max size (%d bytes)", filename, s.cfg.MaxUploadBytes)
		}
		uploads = append(uploads, upload{filename: filename, data: data})
	}
	return uploads, 0, nil
}
