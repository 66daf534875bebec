package cmd

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/osilab/ometiff/internal/pdf"
	"github.com/osilab/ometiff/internal/reader"
)

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export slide regions, levels or thumbnails",
	Long: `Render part of a slide into a PNG, JPEG or PDF file. The output
format follows the output file extension.

By default the whole selected pyramid level is exported. A region
restricts the export to a rectangle, a thumbnail renders the whole
slide scaled to fit the given edge length.

Examples:
  ometiff export slide.ome.tiff -o level2.png --level 2
  ometiff export slide.ome.tiff -o region.jpg --region 1024,2048,512,512
  ometiff export slide.ome.tiff -o thumb.pdf --thumbnail 800`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			return errors.New("no output file provided (use --output)")
		}
		level, _ := cmd.Flags().GetInt("level")
		regionSpec, _ := cmd.Flags().GetString("region")
		thumbEdge, _ := cmd.Flags().GetInt("thumbnail")
		resizeWidth, _ := cmd.Flags().GetInt("width")
		quality, _ := cmd.Flags().GetInt("quality")

		s, err := reader.Open(args[0], readerOptions(cfg))
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		img, err := renderExport(s, level, regionSpec, thumbEdge)
		if err != nil {
			return err
		}
		if resizeWidth > 0 {
			img = imaging.Resize(img, resizeWidth, 0, imaging.Lanczos)
		}

		return writeExport(img, output, quality)
	},
}

// renderExport produces the requested view of the slide.
func renderExport(s *reader.Slide, level int, regionSpec string, thumbEdge int) (image.Image, error) {
	if thumbEdge > 0 {
		return s.Thumbnail(thumbEdge)
	}
	if regionSpec != "" {
		r, err := parseRegion(regionSpec)
		if err != nil {
			return nil, err
		}
		return s.ReadRegion(level, r)
	}
	return s.ReadLevel(level)
}

// parseRegion parses "x,y,w,h" into a rectangle.
func parseRegion(spec string) (image.Rectangle, error) {
	var x, y, w, h int
	if n, err := fmt.Sscanf(spec, "%d,%d,%d,%d", &x, &y, &w, &h); err != nil || n != 4 {
		return image.Rectangle{}, fmt.Errorf("invalid region %q (expected x,y,w,h)", spec)
	}
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, fmt.Errorf("invalid region %q (width and height must be positive)", spec)
	}
	return image.Rect(x, y, x+w, y+h), nil
}

// writeExport encodes the image according to the output extension.
func writeExport(img image.Image, output string, quality int) error {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".png":
		return writeImageFile(output, func(f *os.File) error {
			return png.Encode(f, img)
		})
	case ".jpg", ".jpeg":
		return writeImageFile(output, func(f *os.File) error {
			return jpeg.Encode(f, img, &jpeg.Options{Quality: quality})
		})
	case ".pdf":
		return pdf.FromImages([]image.Image{img}, output)
	default:
		return fmt.Errorf("unsupported output extension %q (use .png, .jpg or .pdf)", filepath.Ext(output))
	}
}

func writeImageFile(output string, encode func(*os.File) error) error {
	f, err := os.Create(output) //nolint:gosec // G304: user-chosen output path
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "output file (.png, .jpg or .pdf)")
	exportCmd.Flags().IntP("level", "l", 0, "pyramid level to read")
	exportCmd.Flags().String("region", "", "region to export as x,y,w,h in level coordinates")
	exportCmd.Flags().Int("thumbnail", 0, "render a whole-slide thumbnail with the given edge length")
	exportCmd.Flags().Int("width", 0, "resize output to the given width, keeping aspect ratio")
	exportCmd.Flags().Int("quality", 90, "JPEG quality (1-100)")
}
