package analysis

import (
	"net/http"
)

// Server handles HTTP requests for receipt analyses
type Server struct {
	service        *Service
	maxUploadBytes int64
	mux            *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, maxUploadBytes int64) *Server {
	return NewServerWithMux(service, maxUploadBytes, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, maxUploadBytes int64, mux *http.ServeMux) *Server {
	s := &Server{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		mux:            mux,
	}
	s.registerRoutes()
	return s
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /analyze/", s.handleAnalyze)
	s.mux.HandleFunc("POST /api/parse", s.handleParse)
	s.mux.HandleFunc("POST /api/split", s.handleSplit)

	s.mux.HandleFunc("GET /api/analyses/{id}/file", s.handleGetAnalysisFile)
	s.mux.HandleFunc("GET /api/analyses/{id}", s.handleGetAnalysis)
	s.mux.HandleFunc("DELETE /api/analyses/{id}", s.handleDeleteAnalysis)
	s.mux.HandleFunc("GET /api/analyses", s.handleListAnalyses)

	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// ServeHTTP adds CORS headers to every response and answers preflight requests
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

