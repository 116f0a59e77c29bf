package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/ppiankov/reportwatch/internal/model"
	"github.com/ppiankov/reportwatch/internal/worker"
)

//go:embed templates/index.html
var templates embed.FS

// BatchRunner runs the selected sources and reports per-source outcomes
type BatchRunner interface {
	RunSources(ctx context.Context, sources []model.Source) []*worker.SourceResult
}

// DownloadResponse is the body of POST /download
type DownloadResponse struct {
	Results []string `json:"results"`
}

// Server is the on-demand trigger UI
type Server struct {
	addr    string
	server  *http.Server
	catalog *model.Catalog
	runner  BatchRunner
	index   *template.Template
	logger  *zap.Logger
}

// NewServer creates the web UI for the given catalog
func NewServer(addr string, catalog *model.Catalog, runner BatchRunner, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	index, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}

	s := &Server{
		addr:    addr,
		catalog: catalog,
		runner:  runner,
		index:   index,
		logger:  logger,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the routes; exposed for tests
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /download", s.handleDownload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Start begins serving in the background. Call Shutdown to stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", s.addr, err)
	}
	go func() {
		s.logger.Info("web UI listening", zap.String("addr", ln.Addr().String()))
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("web server error", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ Sources []model.Source }{Sources: s.catalog.All()}
	if err := s.index.Execute(w, data); err != nil {
		s.logger.Error("render index", zap.Error(err))
	}
}

// handleDownload runs every selected known source and waits for completion.
// Unknown names are ignored. A source is reported as executed whether or
// not its run succeeded; failures are logged.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	var selected []model.Source
	seen := make(map[string]bool)
	for _, name := range r.PostForm["companies"] {
		source, ok := s.catalog.Lookup(name)
		if !ok {
			s.logger.Warn("unknown source requested", zap.String("source", name))
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		selected = append(selected, source)
	}

	resp := DownloadResponse{Results: []string{}}
	if len(selected) > 0 {
		// Runs finish even if the client goes away
		ctx := context.WithoutCancel(r.Context())
		for _, result := range s.runner.RunSources(ctx, selected) {
			s.logger.Info("executed source", zap.String("source", result.Source.Name), zap.Bool("ok", result.Error == nil))
			resp.Results = append(resp.Results, "Scraper executed for: "+result.Source.Name)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(pretty.Pretty(data))
}
