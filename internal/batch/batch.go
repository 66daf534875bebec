package batch

import (
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/osilab/ometiff/internal/reader"
)

// ProcessBatch discovers and processes slides under the given paths.
func ProcessBatch(paths []string, config *Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	files, err := discoverSlideFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover slide files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no OME-TIFF files found")
	}

	var progress ProgressCallback = NoOpProgressCallback{}
	if config.ShowProgress && !config.Quiet {
		progress = NewConsoleProgressCallback(os.Stderr, "Processing: ").
			WithUpdateInterval(config.ProgressInterval)
	}

	if config.Mode == ModeThumbnail {
		if err := os.MkdirAll(config.OutputDir, 0o750); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	start := time.Now()
	results := processParallel(files, config, progress)

	res := &Result{
		Files:    results,
		Total:    len(results),
		Duration: time.Since(start),
	}
	for _, f := range results {
		if f.Err != nil {
			res.Failed++
		}
	}
	return res, nil
}

// processParallel fans file indices out to a bounded worker pool and
// collects results in input order.
func processParallel(files []string, config *Config, progress ProgressCallback) []FileResult {
	results := make([]FileResult, len(files))
	jobs := make(chan int)
	var done atomic.Int64

	progress.OnStart(len(files))

	var wg sync.WaitGroup
	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = processOne(files[i], config)
				n := int(done.Add(1))
				if results[i].Err != nil {
					progress.OnError(n, results[i].Err)
				}
				progress.OnProgress(n, len(files))
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	progress.OnComplete()
	return results
}

// processOne opens a slide and applies the batch mode to it.
func processOne(path string, config *Config) (res FileResult) {
	start := time.Now()
	res = FileResult{Path: path}
	defer func() {
		res.Duration = time.Since(start)
		if res.Err != nil {
			res.Error = res.Err.Error()
		}
	}()

	s, err := reader.Open(path, config.ReaderOptions)
	if err != nil {
		res.Err = err
		return res
	}
	defer func() { _ = s.Close() }()

	switch config.Mode {
	case ModeInfo:
		info := s.Info()
		res.Info = &info
	case ModeThumbnail:
		res.Output, res.Err = writeThumbnail(s, config)
	}
	return res
}

func writeThumbnail(s *reader.Slide, config *Config) (string, error) {
	img, err := s.Thumbnail(config.ThumbnailEdge)
	if err != nil {
		return "", err
	}
	out := filepath.Join(config.OutputDir, thumbnailName(s.Path()))
	f, err := os.Create(out) //nolint:gosec // G304: writing into the configured output directory
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encoding thumbnail: %w", err)
	}
	return out, nil
}

// thumbnailName derives the output filename from the slide path.
func thumbnailName(path string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	for _, ext := range reader.Extensions {
		if strings.HasSuffix(lower, ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}
	return base + "_thumb.png"
}
