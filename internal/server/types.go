// Package server exposes opened OME-TIFF slides over HTTP: metadata,
// region and thumbnail rendering, Prometheus metrics and a WebSocket
// tile stream.
package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osilab/ometiff/internal/reader"
)

// Server holds the HTTP server state and the open slide registry.
type Server struct {
	mu          sync.RWMutex
	slides      map[string]*reader.Slide
	nextID      int
	corsOrigin  string
	timeoutSec  int
	maxUploadMB int64
	uploadDir   string
	readerOpts  reader.Options
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	TimeoutSec  int
	MaxUploadMB int64
	ReaderOpts  reader.Options
	// Preload lists slide paths opened at startup.
	Preload []string
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

type SlideSummary struct {
	ID    string            `json:"id"`
	Path  string            `json:"path"`
	Name  string            `json:"name"`
	Cache reader.CacheStats `json:"cache"`
}

type SlidesResponse struct {
	Slides []SlideSummary `json:"slides"`
	Count  int            `json:"count"`
}

type OpenSlideRequest struct {
	Path string `json:"path"`
}

type OpenSlideResponse struct {
	ID   string      `json:"id"`
	Info reader.Info `json:"info"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a server and opens any preload slides.
func NewServer(config Config) (*Server, error) {
	maxUploadMB := config.MaxUploadMB
	if maxUploadMB <= 0 {
		maxUploadMB = 512
	}
	s := &Server{
		slides:      make(map[string]*reader.Slide),
		corsOrigin:  config.CORSOrigin,
		timeoutSec:  config.TimeoutSec,
		maxUploadMB: maxUploadMB,
		readerOpts:  config.ReaderOpts,
	}
	for _, path := range config.Preload {
		if _, err := s.openSlide(path); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("preloading %s: %w", path, err)
		}
	}
	return s, nil
}

// openSlide opens a slide file and registers it under a fresh id.
func (s *Server) openSlide(path string) (string, error) {
	sl, err := reader.Open(path, s.readerOpts)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("s%d", s.nextID)
	s.slides[id] = sl
	s.mu.Unlock()
	slidesOpen.Inc()
	return id, nil
}

// slide looks up an open slide by id.
func (s *Server) slide(id string) (*reader.Slide, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slides[id]
	return sl, ok
}

// closeSlide removes a slide from the registry and releases it.
func (s *Server) closeSlide(id string) bool {
	s.mu.Lock()
	sl, ok := s.slides[id]
	if ok {
		delete(s.slides, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	_ = sl.Close()
	slidesOpen.Dec()
	return true
}

// listSlides returns summaries sorted by id.
func (s *Server) listSlides() []SlideSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SlideSummary, 0, len(s.slides))
	for id, sl := range s.slides {
		out = append(out, SlideSummary{ID: id, Path: sl.Path(), Name: sl.Info().Name, Cache: sl.CacheStats()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close releases all open slides and any uploaded files.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sl := range s.slides {
		_ = sl.Close()
		delete(s.slides, id)
		slidesOpen.Dec()
	}
	if s.uploadDir != "" {
		_ = os.RemoveAll(s.uploadDir)
		s.uploadDir = ""
	}
	return nil
}

// uploadPath returns a destination path for an uploaded slide, creating
// the upload directory on first use. Callers hold no lock.
func (s *Server) uploadPath(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadDir == "" {
		dir, err := os.MkdirTemp("", "ometiff-uploads-*")
		if err != nil {
			return "", err
		}
		s.uploadDir = dir
	}
	s.nextID++
	return filepath.Join(s.uploadDir, fmt.Sprintf("u%d_%s", s.nextID, filepath.Base(name))), nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	// Preflight requests never reach the method-specific patterns below
	mux.HandleFunc("OPTIONS /", s.corsMiddleware(func(http.ResponseWriter, *http.Request) {}))
	mux.HandleFunc("GET /health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("GET /slides", s.corsMiddleware(s.listSlidesHandler))
	mux.HandleFunc("POST /slides", s.corsMiddleware(s.openSlideHandler))
	mux.HandleFunc("DELETE /slides/{id}", s.corsMiddleware(s.closeSlideHandler))
	mux.HandleFunc("GET /slides/{id}/info", s.corsMiddleware(s.infoHandler))
	mux.HandleFunc("GET /slides/{id}/region", s.corsMiddleware(s.regionHandler))
	mux.HandleFunc("GET /slides/{id}/thumbnail", s.corsMiddleware(s.thumbnailHandler))
	mux.HandleFunc("GET /ws/tiles/{id}", s.tileWebSocketHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
}
