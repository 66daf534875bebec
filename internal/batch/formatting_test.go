package batch

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osilab/ometiff/internal/pyramid"
	"github.com/osilab/ometiff/internal/reader"
)

func sampleResult() *Result {
	info := reader.Info{
		Path:      "/data/a.ome.tiff",
		Width:     1024,
		Height:    768,
		Levels:    []pyramid.Level{{Width: 1024, Height: 768}, {Width: 512, Height: 384}},
		SizeC:     3,
		PixelType: "uint8",
	}
	failErr := errors.New("only OME TIFF files are accepted")
	return &Result{
		Files: []FileResult{
			{Path: "/data/a.ome.tiff", Info: &info},
			{Path: "/data/bad.ome.tiff", Err: failErr, Error: failErr.Error()},
		},
		Total:    2,
		Failed:   1,
		Duration: 120 * time.Millisecond,
	}
}

func TestFormatResultText(t *testing.T) {
	out, err := FormatResult(sampleResult(), "text")
	require.NoError(t, err)
	assert.Contains(t, out, "# /data/a.ome.tiff")
	assert.Contains(t, out, "size: 1024x768  levels: 2  channels: 3  pixel type: uint8")
	assert.Contains(t, out, "error: only OME TIFF files are accepted")
	assert.Contains(t, out, "2 file(s), 1 failed")
}

func TestFormatResultJSON(t *testing.T) {
	out, err := FormatResult(sampleResult(), "json")
	require.NoError(t, err)

	var decoded Result
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 2, decoded.Total)
	assert.Equal(t, 1, decoded.Failed)
	require.Len(t, decoded.Files, 2)
	assert.Equal(t, "only OME TIFF files are accepted", decoded.Files[1].Error)
}

func TestFormatResultCSV(t *testing.T) {
	out, err := FormatResult(sampleResult(), "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "file,status")
	assert.Contains(t, lines[1], "/data/a.ome.tiff,ok,1024,768,2,3,uint8")
	assert.Contains(t, lines[2], "/data/bad.ome.tiff,error")
}
