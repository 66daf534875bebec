package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osilab/ometiff/internal/testutil"
)

func dialTileStream(t *testing.T, preload string) *websocket.Conn {
	t.Helper()
	_, mux := newTestMux(t, preload)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/tiles/s1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestTileWebSocketStreamsTiles(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{})
	conn := dialTileStream(t, path)

	req := TileRequest{RequestID: "r1", Level: 0, X: 8, Y: 8, Width: 32, Height: 24}
	require.NoError(t, conn.WriteJSON(req))

	var header TileResponse
	require.NoError(t, conn.ReadJSON(&header))
	assert.Equal(t, "ok", header.Status)
	assert.Equal(t, "r1", header.RequestID)

	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, messageType)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())
}

func TestTileWebSocketReportsErrors(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{})
	conn := dialTileStream(t, path)

	require.NoError(t, conn.WriteJSON(TileRequest{Level: 99, Width: 16, Height: 16}))

	var resp TileResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Status)
	assert.NotEmpty(t, resp.Error)

	// Connection stays usable after an error
	require.NoError(t, conn.WriteJSON(TileRequest{Level: 0, Width: 16, Height: 16}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTileWebSocketRejectsMalformedRequest(t *testing.T) {
	path := testutil.TempOMETIFF(t, testutil.SlideSpec{})
	conn := dialTileStream(t, path)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	var resp TileResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "invalid tile request")
}

func TestTileWebSocketUnknownSlide(t *testing.T) {
	_, mux := newTestMux(t)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/tiles/nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTileRequestJSONShape(t *testing.T) {
	data, err := json.Marshal(TileRequest{Level: 1, X: 2, Y: 3, Width: 4, Height: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":1,"x":2,"y":3,"w":4,"h":5}`, string(data))
}
