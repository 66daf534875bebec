// Package batch walks directories for OME-TIFF slides and processes them
// with a bounded worker pool: metadata summaries or thumbnail exports,
// results collected in input order.
package batch

import (
	"errors"
	"time"

	"github.com/osilab/ometiff/internal/reader"
)

// Mode selects what the batch does with each discovered slide.
type Mode string

const (
	// ModeInfo collects metadata summaries.
	ModeInfo Mode = "info"
	// ModeThumbnail renders a PNG thumbnail per slide into OutputDir.
	ModeThumbnail Mode = "thumbnail"
)

// Config holds batch processing settings.
type Config struct {
	Mode            Mode
	Workers         int
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string
	ShowProgress    bool
	Quiet           bool

	// Reader options applied to every slide.
	ReaderOptions reader.Options

	// OutputDir receives rendered files in ModeThumbnail.
	OutputDir string
	// ThumbnailEdge is the longest thumbnail side in pixels.
	ThumbnailEdge int

	ProgressInterval time.Duration
}

// DefaultConfig returns batch defaults.
func DefaultConfig() Config {
	return Config{
		Mode:             ModeInfo,
		Workers:          4,
		ReaderOptions:    reader.DefaultOptions(),
		ThumbnailEdge:    512,
		ShowProgress:     true,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return errors.New("batch: workers must be >= 1")
	}
	switch c.Mode {
	case ModeInfo, ModeThumbnail:
	default:
		return errors.New("batch: unknown mode " + string(c.Mode))
	}
	if c.Mode == ModeThumbnail {
		if c.OutputDir == "" {
			return errors.New("batch: thumbnail mode requires an output directory")
		}
		if c.ThumbnailEdge <= 0 {
			return errors.New("batch: thumbnail edge must be positive")
		}
	}
	return nil
}

// FileResult is the outcome for one slide.
type FileResult struct {
	Path string `json:"path"`
	// Info is set in ModeInfo on success.
	Info *reader.Info `json:"info,omitempty"`
	// Output is the rendered file path in ModeThumbnail.
	Output string `json:"output,omitempty"`
	Err    error  `json:"-"`
	// Error carries Err for serialization.
	Error string `json:"error,omitempty"`

	Duration time.Duration `json:"duration_ns"`
}

// Result aggregates a finished batch.
type Result struct {
	Files    []FileResult  `json:"files"`
	Total    int           `json:"total"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ns"`
}
