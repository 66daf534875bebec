package server

import (
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultThumbnailEdge = 512
	maxThumbnailEdge     = 4096
	defaultJPEGQuality   = 90
)

// regionHandler renders a rectangular region of one pyramid level.
func (s *Server) regionHandler(w http.ResponseWriter, r *http.Request) {
	sl, ok := s.slide(r.PathValue("id"))
	if !ok {
		s.writeErrorResponse(w, "Slide not found", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	level, err := queryInt(q.Get("level"), 0)
	if err != nil {
		s.writeErrorResponse(w, "Invalid level parameter", http.StatusBadRequest)
		return
	}
	x, errX := queryInt(q.Get("x"), 0)
	y, errY := queryInt(q.Get("y"), 0)
	width, errW := queryInt(q.Get("w"), 0)
	height, errH := queryInt(q.Get("h"), 0)
	if errX != nil || errY != nil || errW != nil || errH != nil {
		s.writeErrorResponse(w, "Invalid region parameters", http.StatusBadRequest)
		return
	}
	if width <= 0 || height <= 0 {
		s.writeErrorResponse(w, "Region width and height must be positive", http.StatusBadRequest)
		return
	}

	start := time.Now()
	img, err := sl.ReadRegion(level, image.Rect(x, y, x+width, y+height))
	if err != nil {
		regionReadsTotal.WithLabelValues("error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	regionReadsTotal.WithLabelValues("ok").Inc()
	regionReadDuration.WithLabelValues("region").Observe(time.Since(start).Seconds())
	b := img.Bounds()
	regionPixels.Observe(float64(b.Dx() * b.Dy()))

	s.writeImage(w, img, q.Get("format"))
}

// thumbnailHandler renders a whole-slide thumbnail.
func (s *Server) thumbnailHandler(w http.ResponseWriter, r *http.Request) {
	sl, ok := s.slide(r.PathValue("id"))
	if !ok {
		s.writeErrorResponse(w, "Slide not found", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	edge, err := queryInt(q.Get("size"), defaultThumbnailEdge)
	if err != nil || edge <= 0 || edge > maxThumbnailEdge {
		s.writeErrorResponse(w, "Invalid size parameter", http.StatusBadRequest)
		return
	}

	start := time.Now()
	img, err := sl.Thumbnail(edge)
	if err != nil {
		regionReadsTotal.WithLabelValues("error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	regionReadsTotal.WithLabelValues("ok").Inc()
	regionReadDuration.WithLabelValues("thumbnail").Observe(time.Since(start).Seconds())

	s.writeImage(w, img, q.Get("format"))
}

// writeImage encodes the image as PNG or JPEG.
func (s *Server) writeImage(w http.ResponseWriter, img image.Image, format string) {
	switch format {
	case "jpeg", "jpg":
		w.Header().Set("Content-Type", "image/jpeg")
		_ = jpeg.Encode(w, img, &jpeg.Options{Quality: defaultJPEGQuality})
	default:
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, img)
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
