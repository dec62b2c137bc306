package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docgraph/internal/pathstore"
)

const maxListedNodes = 10000

// handleListDocuments lists the stored document metadata for a user.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		jsonError(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	keys := pathstore.Keys{UserID: userID}
	children, err := s.store.ListChildren(r.Context(), keys.Documents(), maxListedNodes)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusBadGateway)
		return
	}

	docs := make([]map[string]any, 0)
	for _, child := range children {
		if pathstore.LastSegment(child.Key) != "meta" || strings.Contains(child.Key, "by_hash") {
			continue
		}
		docs = append(docs, map[string]any{
			"doc_id": docIDFromMetaKey(child.Key),
			"key":    child.Key,
			"value":  child.Value,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": docs})
}

// handleDeleteDocument removes a document subtree and its hash index entry.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		jsonError(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	keys := pathstore.Keys{UserID: userID}
	log := s.log.With("doc_id", docID, "user_id", userID)

	meta, err := s.store.GetNode(ctx, keys.Meta(docID))
	if err != nil {
		jsonError(w, "failed to read document: "+err.Error(), http.StatusBadGateway)
		return
	}
	if meta == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	cells, err := s.store.ListChildren(ctx, keys.Document(docID)+"/cells", maxListedNodes)
	if err != nil {
		log.Warn("count cells failed", "error", err)
	}
	sections, err := s.store.ListChildren(ctx, keys.Document(docID)+"/sections", maxListedNodes)
	if err != nil {
		log.Warn("count sections failed", "error", err)
	}

	if err := s.store.DeleteNode(ctx, keys.Document(docID), true); err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusBadGateway)
		return
	}

	hashDeleted := false
	if m, ok := meta.Value.(map[string]any); ok {
		if hash, _ := m["content_hash"].(string); hash != "" {
			if err := s.store.DeleteNode(ctx, keys.HashIndex(hash, docID), false); err != nil {
				log.Warn("hash index delete failed", "error", err)
			} else {
				hashDeleted = true
			}
		}
	}

	log.Info("document deleted", "cells", len(cells), "sections", len(sections))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":             docID,
		"cells_deleted":      len(cells),
		"sections_deleted":   len(sections),
		"hash_index_deleted": hashDeleted,
	})
}

// docIDFromMetaKey returns the segment before the trailing "meta".
func docIDFromMetaKey(key string) string {
	parent := strings.TrimSuffix(key, "meta")
	if parent == "" {
		return ""
	}
	return pathstore.LastSegment(parent[:len(parent)-1])
}
