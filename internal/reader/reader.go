// Package reader opens pyramidal OME-TIFF files and exposes their contents
// as viewer-ready layers: normalized axes, physical scale, lazily decoded
// regions behind a byte-budgeted tile cache.
package reader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/osilab/ometiff/internal/ome"
	"github.com/osilab/ometiff/internal/pyramid"
	"github.com/osilab/ometiff/internal/tiff"
)

// Recognized OME-TIFF filename suffixes, matched case-insensitively.
var Extensions = []string{".ome.tif", ".ome.tiff", ".ome_tif", ".ome_tiff"}

var (
	ErrNotOMETIFF = errors.New("only OME TIFF files are accepted")
	// ErrNotPyramidal is returned under StrictPyramid for single-level files.
	ErrNotPyramidal = errors.New("only pyramidal images are accepted")
)

// Options control how slides are opened.
type Options struct {
	// StrictPyramid rejects files without a multiscale pyramid.
	StrictPyramid bool
	// CacheBytes is the decoded-tile cache budget. Zero means
	// DefaultCacheBytes.
	CacheBytes int64
	// MaxIFDs bounds directory traversal for corrupt files. Zero means the
	// container default.
	MaxIFDs int
}

// DefaultOptions require a pyramid and allow a 4 GiB tile cache.
func DefaultOptions() Options {
	return Options{StrictPyramid: true, CacheBytes: DefaultCacheBytes}
}

// IsOMETIFFPath reports whether the path carries a recognized suffix.
func IsOMETIFFPath(path string) bool {
	p := strings.ToLower(path)
	for _, ext := range Extensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// GetReader is the discovery handshake: given one or more paths it returns
// a ReaderFunc when the first path looks like an OME-TIFF, nil otherwise.
func GetReader(paths ...string) ReaderFunc {
	if len(paths) == 0 || !IsOMETIFFPath(paths[0]) {
		return nil
	}
	return readLayers
}

func readLayers(paths ...string) ([]Layer, error) {
	if len(paths) == 0 {
		return nil, errors.New("reader: no paths given")
	}
	s, err := Open(paths[0], DefaultOptions())
	if err != nil {
		return nil, err
	}
	return s.Layers(), nil
}

// Slide is an open OME-TIFF file with its pyramid resolved.
type Slide struct {
	path    string
	f       *os.File
	tf      *tiff.File
	doc     *ome.Document
	px      *ome.Pixels
	axes    pyramid.Axes
	levels  []pyramid.Level
	ifds    []*tiff.IFD
	layouts []*tiff.Layout
	cache   *tileCache
	mppX    float64
	mppY    float64

	// warnings collects non-fatal findings such as unknown units.
	warnings []string
}

// Open reads the container structure and OME metadata of the file at path.
// Pixel data is not touched.
func Open(path string, opts Options) (*Slide, error) {
	f, err := os.Open(path) //nolint:gosec // G304: opening a user-provided slide path is expected
	if err != nil {
		return nil, fmt.Errorf("reader: %w", err)
	}
	s, err := newSlide(path, f, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func newSlide(path string, f *os.File, opts Options) (*Slide, error) {
	tf, err := tiff.Open(f, tiff.Options{MaxIFDs: opts.MaxIFDs})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotOMETIFF, err)
	}
	ifd0 := tf.IFDs()[0]

	desc, err := ifd0.ASCII(tiff.TagImageDescription)
	if err != nil {
		return nil, fmt.Errorf("%w: no ImageDescription metadata", ErrNotOMETIFF)
	}
	doc, err := ome.Parse([]byte(desc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotOMETIFF, err)
	}
	px := &doc.Images[0].Pixels

	axes, err := pyramid.NormalizeAxes(px.DimensionOrder, px.Size)
	if err != nil {
		return nil, err
	}

	s := &Slide{
		path:  path,
		f:     f,
		tf:    tf,
		doc:   doc,
		px:    px,
		axes:  axes,
		cache: newTileCache(opts.CacheBytes),
	}

	if err := s.resolveLevels(); err != nil {
		return nil, err
	}
	if opts.StrictPyramid && len(s.levels) < 2 {
		return nil, ErrNotPyramidal
	}
	if err := s.checkChannelLayout(); err != nil {
		return nil, err
	}
	s.resolveScale()
	return s, nil
}

// resolveLevels locates the pyramid. Modern OME-TIFF writers hang reduced
// resolutions off IFD0's SubIFDs tag; older ones append them as further
// top-level IFDs with shrinking extents.
func (s *Slide) resolveLevels() error {
	ifd0 := s.tf.IFDs()[0]
	cand := []*tiff.IFD{ifd0}
	if subs := ifd0.SubIFDs(); len(subs) > 0 {
		cand = append(cand, subs...)
	} else {
		prev, err := ifd0.Layout()
		if err != nil {
			return err
		}
		prevW := prev.Width
		for _, d := range s.tf.IFDs()[1:] {
			l, err := d.Layout()
			if err != nil {
				return err
			}
			if l.Width >= prevW {
				// Same-size or growing IFD: a further plane or page, not a
				// pyramid level.
				break
			}
			cand = append(cand, d)
			prevW = l.Width
		}
	}

	levels := make([]pyramid.Level, 0, len(cand))
	layouts := make([]*tiff.Layout, 0, len(cand))
	for _, d := range cand {
		l, err := d.Layout()
		if err != nil {
			return err
		}
		layouts = append(layouts, l)
		levels = append(levels, pyramid.Level{Width: l.Width, Height: l.Height})
	}
	validated, err := pyramid.Validate(levels)
	if err != nil {
		return err
	}
	s.levels = validated
	s.ifds = cand
	s.layouts = layouts

	if s.layouts[0].Width != s.px.SizeX || s.layouts[0].Height != s.px.SizeY {
		return fmt.Errorf("reader: OME says %dx%d but base IFD is %dx%d",
			s.px.SizeX, s.px.SizeY, s.layouts[0].Width, s.layouts[0].Height)
	}
	return nil
}

// checkChannelLayout rejects storage layouts the region reader cannot
// assemble, i.e. channels spread over separate planes.
func (s *Slide) checkChannelLayout() error {
	spp := s.layouts[0].SamplesPerPixel
	if s.axes.HasChannels() {
		if spp != s.px.SizeC {
			return fmt.Errorf("reader: %d channels stored as separate planes not supported (samples per pixel %d)",
				s.px.SizeC, spp)
		}
		return nil
	}
	if spp != 1 {
		return fmt.Errorf("reader: single-channel image with %d samples per pixel", spp)
	}
	return nil
}

// resolveScale converts physical pixel sizes to microns. Unknown units keep
// the raw value and are demoted to warnings.
func (s *Slide) resolveScale() {
	var err error
	s.mppX, err = ome.MicronsPerPixel("X", s.px.PhysicalSizeX, s.px.PhysicalSizeXUnit)
	if err != nil {
		s.warn(err.Error())
	}
	s.mppY, err = ome.MicronsPerPixel("Y", s.px.PhysicalSizeY, s.px.PhysicalSizeYUnit)
	if err != nil {
		s.warn(err.Error())
	}
}

func (s *Slide) warn(msg string) {
	s.warnings = append(s.warnings, msg)
	slog.Warn("slide metadata issue", "path", s.path, "issue", msg)
}

// Close releases the underlying file handle.
func (s *Slide) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Path returns the path the slide was opened from.
func (s *Slide) Path() string { return s.path }

// Levels returns the validated pyramid, base level first.
func (s *Slide) Levels() []pyramid.Level { return s.levels }

// Axes returns the normalized axis layout.
func (s *Slide) Axes() pyramid.Axes { return s.axes }

// Pixels returns the OME pixel metadata of the first image.
func (s *Slide) Pixels() *ome.Pixels { return s.px }

// Warnings returns non-fatal findings collected while opening.
func (s *Slide) Warnings() []string { return s.warnings }

// CacheStats reports tile cache effectiveness.
func (s *Slide) CacheStats() CacheStats { return s.cache.stats() }

// MicronsPerPixel returns the base-level physical pixel size, (y, x) order.
func (s *Slide) MicronsPerPixel() (y, x float64) { return s.mppY, s.mppX }

// IsRGB reports whether pixel data is directly renderable interleaved
// 8-bit color.
func (s *Slide) IsRGB() bool {
	return s.axes.HasChannels() &&
		(s.px.SizeC == 3 || s.px.SizeC == 4) &&
		s.layouts[0].BitsPerSample == 8
}

// contrastLimits returns the display range for the pixel type.
func (s *Slide) contrastLimits() [2]float64 {
	if s.layouts[0].BitsPerSample == 16 {
		return [2]float64{0, 65535}
	}
	return [2]float64{0, 255}
}

// Layers assembles the viewer handoff: one image layer per slide.
func (s *Slide) Layers() []Layer {
	name := s.doc.Images[0].Name
	if name == "" {
		name = s.path
	}
	return []Layer{{
		Source: s,
		Levels: s.levels,
		Meta: LayerMeta{
			Name:           name,
			RGB:            s.IsRGB(),
			ContrastLimits: s.contrastLimits(),
			Multiscale:     len(s.levels) > 1,
			Scale:          [2]float64{s.mppY, s.mppX},
		},
		Type: LayerTypeImage,
	}}
}
