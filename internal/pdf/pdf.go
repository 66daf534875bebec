// Package pdf renders exported slide images into PDF documents using pdfcpu.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// FromImages writes the given images into a PDF, one page per image.
func FromImages(images []image.Image, output string) error {
	if len(images) == 0 {
		return errors.New("no images to write")
	}

	// pdfcpu's import API is file based, stage pages as temporary PNGs
	tempDir, err := os.MkdirTemp("", "ometiff-pdf-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	pages := make([]string, len(images))
	for i, img := range images {
		pages[i] = filepath.Join(tempDir, fmt.Sprintf("page_%d.png", i+1))
		if err := writePNG(pages[i], img); err != nil {
			return fmt.Errorf("staging page %d: %w", i+1, err)
		}
	}

	if err := api.ImportImagesFile(pages, output, nil, nil); err != nil {
		return fmt.Errorf("failed to build PDF: %w", err)
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is inside our temp directory
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
