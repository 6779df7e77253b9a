// Package exporter writes a rendered surface out as a raster file (PNG, JPEG,
// WebP) or as a single-page PDF document.
package exporter

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/go-pdf/fpdf"

	"github.com/menta2k/image-composer/pkg/catalog"
)

// Format is a raster output format.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpg"
	WebP Format = "webp"
	// PDF is only valid for SaveFile and ExportDocument.
	PDF Format = "pdf"
)

// ParseFormat accepts png, jpg, jpeg, webp and pdf. Empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "webp":
		return WebP, nil
	case "pdf":
		return PDF, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case WebP:
		return "image/webp"
	case PDF:
		return "application/pdf"
	default:
		return "image/png"
	}
}

// Options configures encoders and the document page.
type Options struct {
	JPEGQuality  int     // raster JPEG quality
	PDFQuality   int     // quality of the JPEG embedded in the PDF
	WebPQuality  float32 // ignored when lossless
	WebPLossless bool
	PageSize     string  // fpdf page size name, e.g. A4 or Letter
	DPI          float64 // pixels per inch of the embedded image
	Margin       float64 // image offset from the top-left page corner, inches
}

// DefaultOptions returns the document defaults: A4 landscape, 300 DPI,
// the image at (1in, 1in) and JPEG quality 92.
func DefaultOptions() Options {
	return Options{
		JPEGQuality:  92,
		PDFQuality:   92,
		WebPQuality:  90,
		WebPLossless: true,
		PageSize:     "A4",
		DPI:          300,
		Margin:       1,
	}
}

// Exporter encodes surfaces. It holds no state besides its options.
type Exporter struct {
	opts Options
}

// New creates an exporter with default options.
func New() *Exporter {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates an exporter; zero fields take their defaults.
func NewWithOptions(opts Options) *Exporter {
	def := DefaultOptions()
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = def.JPEGQuality
	}
	if opts.PDFQuality <= 0 || opts.PDFQuality > 100 {
		opts.PDFQuality = def.PDFQuality
	}
	if opts.WebPQuality <= 0 || opts.WebPQuality > 100 {
		opts.WebPQuality = def.WebPQuality
	}
	if opts.PageSize == "" {
		opts.PageSize = def.PageSize
	}
	if opts.DPI <= 0 {
		opts.DPI = def.DPI
	}
	if opts.Margin < 0 {
		opts.Margin = def.Margin
	}
	return &Exporter{opts: opts}
}

// Options returns the effective options.
func (e *Exporter) Options() Options { return e.opts }

// ExportRaster encodes img in format to w.
func (e *Exporter) ExportRaster(w io.Writer, img image.Image, format Format) error {
	switch format {
	case PNG, "":
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	case JPEG:
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: e.opts.JPEGQuality}); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
	case WebP:
		opts := &webp.Options{Lossless: e.opts.WebPLossless, Quality: e.opts.WebPQuality}
		if err := webp.Encode(w, img, opts); err != nil {
			return fmt.Errorf("encode webp: %w", err)
		}
	default:
		return fmt.Errorf("unsupported raster format: %s", format)
	}
	return nil
}

// Layout is the placement of the image on the document page, in inches.
type Layout struct {
	X, Y          float64
	Width, Height float64
}

// DocumentLayout returns where a style-sized image lands on the page.
func (e *Exporter) DocumentLayout(style catalog.Style) Layout {
	return Layout{
		X:      e.opts.Margin,
		Y:      e.opts.Margin,
		Width:  float64(style.Width) / e.opts.DPI,
		Height: float64(style.Height) / e.opts.DPI,
	}
}

// ExportDocument writes a one-page landscape PDF with img embedded as JPEG.
func (e *Exporter) ExportDocument(w io.Writer, img image.Image, style catalog.Style) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.opts.PDFQuality}); err != nil {
		return fmt.Errorf("encode document image: %w", err)
	}

	pdf := fpdf.New("L", "in", e.opts.PageSize, "")
	pdf.SetCreator("image-composer", false)
	pdf.SetTitle(style.Name, true)
	pdf.AddPage()

	imgOpts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("composition", imgOpts, &buf)

	layout := e.DocumentLayout(style)
	pdf.ImageOptions("composition", layout.X, layout.Y, layout.Width, layout.Height, false, imgOpts, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// SaveFile writes img to path, choosing the format from the extension.
func (e *Exporter) SaveFile(path string, img image.Image, style catalog.Style) error {
	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if format == PDF {
		err = e.ExportDocument(f, img, style)
	} else {
		err = e.ExportRaster(f, img, format)
	}
	if err != nil {
		return err
	}
	return f.Close()
}
