package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/osilab/ometiff/internal/reader"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering is left to the deployment front end
		return true
	},
}

// TileRequest asks for one region of one pyramid level.
type TileRequest struct {
	RequestID string `json:"request_id,omitempty"`
	Level     int    `json:"level"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"w"`
	Height    int    `json:"h"`
}

// TileResponse precedes each binary tile frame, or reports an error.
type TileResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Status    string `json:"status"` // "ok" or "error"
	Level     int    `json:"level"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"w"`
	Height    int    `json:"h"`
	Error     string `json:"error,omitempty"`
}

// tileWebSocketHandler streams PNG tiles for an open slide. Each text
// message is a TileRequest; the reply is a TileResponse text frame
// followed, on success, by one binary frame with the PNG bytes.
func (s *Server) tileWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	sl, ok := s.slide(r.PathValue("id"))
	if !ok {
		http.Error(w, "slide not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket tile stream established", "remote_addr", r.RemoteAddr, "slide", r.PathValue("id"))
	s.serveTiles(conn, sl)
}

// serveTiles processes tile requests until the connection drops.
func (s *Server) serveTiles(conn *websocket.Conn, sl *reader.Slide) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Keep the connection alive between tile bursts
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		if messageType != websocket.TextMessage {
			continue
		}
		if !s.handleTileRequest(conn, sl, data) {
			return
		}
	}
}

// handleTileRequest renders one tile and writes the reply frames.
// It returns false when the connection is no longer writable.
func (s *Server) handleTileRequest(conn *websocket.Conn, sl *reader.Slide, data []byte) bool {
	var req TileRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return s.writeTileError(conn, req, "invalid tile request: "+err.Error())
	}
	if req.Width <= 0 || req.Height <= 0 {
		return s.writeTileError(conn, req, "tile width and height must be positive")
	}

	start := time.Now()
	img, err := sl.ReadRegion(req.Level, image.Rect(req.X, req.Y, req.X+req.Width, req.Y+req.Height))
	if err != nil {
		regionReadsTotal.WithLabelValues("error").Inc()
		return s.writeTileError(conn, req, err.Error())
	}
	regionReadsTotal.WithLabelValues("ok").Inc()
	regionReadDuration.WithLabelValues("tile").Observe(time.Since(start).Seconds())

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return s.writeTileError(conn, req, "encoding tile: "+err.Error())
	}

	header := TileResponse{
		RequestID: req.RequestID,
		Status:    "ok",
		Level:     req.Level,
		X:         req.X, Y: req.Y,
		Width: req.Width, Height: req.Height,
	}
	if !s.writeTileJSON(conn, header) {
		return false
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		return false
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
	return true
}

func (s *Server) writeTileError(conn *websocket.Conn, req TileRequest, msg string) bool {
	return s.writeTileJSON(conn, TileResponse{
		RequestID: req.RequestID,
		Status:    "error",
		Level:     req.Level,
		X:         req.X, Y: req.Y,
		Width: req.Width, Height: req.Height,
		Error: msg,
	})
}

func (s *Server) writeTileJSON(conn *websocket.Conn, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return false
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
	return true
}
