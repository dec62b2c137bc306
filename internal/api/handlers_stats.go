package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/docgraph/internal/extract"
)

func (s *Server) handleExtractStats(w http.ResponseWriter, r *http.Request) {
	var snap extract.StatsSnapshot
	if s.extractor.Stats != nil {
		snap = s.extractor.Stats.Snapshot()
	}

	resp := map[string]any{
		"stats":         snap,
		"rules":         s.extractor.Pipeline.Names(),
		"relationships": s.extractor.Relationships,
		"workers":       s.extractor.Workers,
	}
	if s.orchestrator != nil {
		resp["queue_depth"] = s.orchestrator.QueueDepth()
		resp["jobs"] = s.orchestrator.JobCount()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
