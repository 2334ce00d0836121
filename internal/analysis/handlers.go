package analysis

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/splitmate/internal/receipt"
	"github.com/zombor/splitmate/internal/scanning"
)

// maxTextBytes bounds the OCR text and JSON bodies accepted by the API
const maxTextBytes = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// writeServiceError maps service errors to status codes
func writeServiceError(w http.ResponseWriter, err error) {
	var upstream *UpstreamError
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Analysis not found")
	case errors.Is(err, ErrNoParticipants):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scanning.ErrUnreadableImage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// contentTypeFor falls back to the file extension when the part has no type
func contentTypeFor(header string, filename string) string {
	if header != "" {
		return strings.ToLower(strings.TrimSpace(header))
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleAnalyze takes a multipart upload with file, instruction and names
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer f.Close()

	names := ParseNames(r.FormValue("names"))
	if len(names) == 0 {
		writeError(w, http.StatusBadRequest, ErrNoParticipants.Error())
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file")
		return
	}

	contentType := contentTypeFor(header.Header.Get("Content-Type"), header.Filename)

	analysis, err := s.service.Analyze(r.Context(), header.Filename, data, contentType, r.FormValue("instruction"), names)
	if err != nil {
		slog.Error("Error analyzing receipt", "filename", header.Filename, "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// handleParse parses OCR text sent as the request body
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTextBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error reading body")
		return
	}

	writeJSON(w, http.StatusOK, s.service.ParseText(string(body)))
}

type splitRequest struct {
	Parsed      *receipt.ParsedReceipt `json:"parsed"`
	Instruction string                 `json:"instruction"`
	Names       []string               `json:"names"`
}

// handleSplit suggests a split for an already parsed receipt
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTextBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Parsed == nil {
		writeError(w, http.StatusBadRequest, "parsed receipt is required")
		return
	}

	suggestion, err := s.service.Suggest(r.Context(), *req.Parsed, req.Instruction, req.Names)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, suggestion)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.service.ListAnalyses()
	if err != nil {
		slog.Error("Error listing analyses", "error", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analyses)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.service.GetAnalysis(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleGetAnalysisFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetAnalysisFile(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteAnalysis(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
