package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/extract"
	"github.com/dgallion1/docgraph/internal/pathstore"
	"github.com/dgallion1/docgraph/internal/pipeline"
)

// Server is the HTTP API server for docgraph.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	store        *pathstore.Client
	extractor    *extract.Extractor
	cache        *lru.Cache[string, *extractResponse]
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. The extractor supplies the
// rule pipeline, worker count and stats window shared by all requests.
func NewServer(orch *pipeline.Orchestrator, store *pathstore.Client, ex *extract.Extractor, log *slog.Logger, cfg config.Config) (*Server, error) {
	size := cfg.ResultCacheSize
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[string, *extractResponse](size)
	if err != nil {
		return nil, err
	}
	s := &Server{
		orchestrator: orch,
		store:        store,
		extractor:    ex,
		cache:        cache,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DocgraphAPIKey, s.log))

		r.Post("/api/extract", s.handleExtract)
		r.Post("/api/graph", s.handleGraph)

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Post("/api/ingest/batch", s.handleBatchIngest)

		r.Get("/api/documents", s.handleListDocuments)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Get("/api/stats/extract", s.handleExtractStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
