package exporter

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-composer/pkg/catalog"
)

func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": PNG, "PNG": PNG, ".jpg": JPEG, "jpeg": JPEG, "webp": WebP, ".pdf": PDF}
	for in, want := range cases {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("gif")
	assert.Error(t, err)
}

func TestExportRasterPNGRoundTrip(t *testing.T) {
	style := catalog.FacebookCover
	img := createTestImage(style.Width, style.Height)

	var buf bytes.Buffer
	require.NoError(t, New().ExportRaster(&buf, img, PNG))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, style.Width, decoded.Bounds().Dx())
	assert.Equal(t, style.Height, decoded.Bounds().Dy())

	r, g, b, a := decoded.At(10, 20).RGBA()
	assert.Equal(t, uint32(10), r>>8)
	assert.Equal(t, uint32(20), g>>8)
	assert.Equal(t, uint32(128), b>>8)
	assert.Equal(t, uint32(255), a>>8)
}

func TestExportRasterJPEGAndWebP(t *testing.T) {
	img := createTestImage(180, 180)
	e := New()

	var jpg bytes.Buffer
	require.NoError(t, e.ExportRaster(&jpg, img, JPEG))
	decoded, err := jpeg.Decode(&jpg)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 180, 180), decoded.Bounds())

	var wp bytes.Buffer
	require.NoError(t, e.ExportRaster(&wp, img, WebP))
	decoded, err = webp.Decode(&wp)
	require.NoError(t, err)
	assert.Equal(t, 180, decoded.Bounds().Dx())
}

func TestExportRasterRejectsPDF(t *testing.T) {
	var buf bytes.Buffer
	err := New().ExportRaster(&buf, createTestImage(10, 10), PDF)
	assert.Error(t, err)
}

func TestDocumentLayout(t *testing.T) {
	layout := New().DocumentLayout(catalog.Sticker)
	assert.Equal(t, 1.0, layout.X)
	assert.Equal(t, 1.0, layout.Y)
	assert.InDelta(t, 1275.0/300.0, layout.Width, 1e-9)
	assert.InDelta(t, 819.0/300.0, layout.Height, 1e-9)
}

func TestExportDocument(t *testing.T) {
	style := catalog.BusinessCard
	var buf bytes.Buffer
	require.NoError(t, New().ExportDocument(&buf, createTestImage(style.Width, style.Height), style))

	out := buf.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "missing PDF header")
	assert.Contains(t, string(out), "/DCTDecode", "image must be embedded as JPEG")
	assert.True(t, bytes.HasSuffix(bytes.TrimSpace(out), []byte("%%EOF")))
}

func TestNewWithOptionsDefaults(t *testing.T) {
	e := NewWithOptions(Options{JPEGQuality: 500})
	opts := e.Options()
	assert.Equal(t, 92, opts.JPEGQuality)
	assert.Equal(t, 92, opts.PDFQuality)
	assert.Equal(t, "A4", opts.PageSize)
	assert.Equal(t, 300.0, opts.DPI)
}

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	style := catalog.FacebookProfile
	img := createTestImage(style.Width, style.Height)
	e := New()

	for _, name := range []string{"out.png", "out.jpg", "out.webp", "out.pdf"} {
		path := filepath.Join(dir, name)
		require.NoError(t, e.SaveFile(path, img, style), name)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	assert.Error(t, e.SaveFile(filepath.Join(dir, "out.bmp"), img, style))
}
