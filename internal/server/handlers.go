package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/osilab/ometiff/internal/reader"
	"github.com/osilab/ometiff/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	s.writeJSON(w, http.StatusOK, response)
}

// listSlidesHandler returns summaries of all open slides.
func (s *Server) listSlidesHandler(w http.ResponseWriter, _ *http.Request) {
	slides := s.listSlides()
	s.writeJSON(w, http.StatusOK, SlidesResponse{Slides: slides, Count: len(slides)})
}

// openSlideHandler opens a slide, either by server-local path (JSON body)
// or from an uploaded file (multipart form, field "slide").
func (s *Server) openSlideHandler(w http.ResponseWriter, r *http.Request) {
	var path string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		uploaded, ok := s.receiveUpload(w, r)
		if !ok {
			return
		}
		path = uploaded
	} else {
		var req OpenSlideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
			s.writeErrorResponse(w, "Request body must be JSON with a path field", http.StatusBadRequest)
			return
		}
		path = req.Path
	}

	id, err := s.openSlide(path)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sl, _ := s.slide(id)
	s.writeJSON(w, http.StatusCreated, OpenSlideResponse{ID: id, Info: sl.Info()})
}

// receiveUpload stores a multipart slide upload and returns its path.
// On failure it writes the error response and returns ok=false.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "too large") {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return "", false
	}

	file, header, err := r.FormFile("slide")
	if err != nil {
		s.writeErrorResponse(w, "No slide file provided", http.StatusBadRequest)
		return "", false
	}
	defer func() { _ = file.Close() }()

	if !reader.IsOMETIFFPath(header.Filename) {
		s.writeErrorResponse(w, reader.ErrNotOMETIFF.Error(), http.StatusBadRequest)
		return "", false
	}

	dst, err := s.uploadPath(header.Filename)
	if err != nil {
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return "", false
	}
	out, err := os.Create(dst) //nolint:gosec // G304: path is inside our upload directory
	if err != nil {
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return "", false
	}
	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return "", false
	}
	if err := out.Close(); err != nil {
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return "", false
	}
	return dst, true
}

// closeSlideHandler removes a slide from the registry.
func (s *Server) closeSlideHandler(w http.ResponseWriter, r *http.Request) {
	if !s.closeSlide(r.PathValue("id")) {
		s.writeErrorResponse(w, "Slide not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// infoHandler returns slide metadata.
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	sl, ok := s.slide(r.PathValue("id"))
	if !ok {
		s.writeErrorResponse(w, "Slide not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, sl.Info())
}

// writeJSON writes a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Log only, a partial body is already on the wire
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
