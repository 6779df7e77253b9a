package compositor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/image-composer/pkg/catalog"
)

var testStyle = catalog.Style{
	ID:     "test",
	Width:  200,
	Height: 120,
	Font:   catalog.FontSpec{Family: "Calibri", Size: 20},
}

// createSolidImage creates a uniformly coloured test image
func createSolidImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// createFrameImage creates a transparent image with an opaque edge
func createFrameImage(width, height, edge int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < edge || y < edge || x >= width-edge || y >= height-edge {
				img.SetNRGBA(x, y, c)
			}
		}
	}
	return img
}

func near(a, b color.NRGBA) bool {
	d := func(x, y uint8) int {
		if x > y {
			return int(x - y)
		}
		return int(y - x)
	}
	return d(a.R, b.R) <= 1 && d(a.G, b.G) <= 1 && d(a.B, b.B) <= 1 && d(a.A, b.A) <= 1
}

var (
	red  = color.NRGBA{255, 0, 0, 255}
	blue = color.NRGBA{0, 0, 255, 255}
)

func testScene(text string) Scene {
	return Scene{
		Style:      testStyle,
		Background: createSolidImage(testStyle.Width, testStyle.Height, red),
		Border:     createFrameImage(testStyle.Width, testStyle.Height, 4, blue),
		Text:       text,
	}
}

func TestRenderLayers(t *testing.T) {
	c := New()
	out, err := c.RenderImage(testScene(""))
	if err != nil {
		t.Fatalf("RenderImage failed: %v", err)
	}

	if out.Bounds().Dx() != testStyle.Width || out.Bounds().Dy() != testStyle.Height {
		t.Fatalf("unexpected surface size %v", out.Bounds())
	}
	if got := out.NRGBAAt(0, 0); !near(got, blue) {
		t.Errorf("border must be drawn over the background, got %v", got)
	}
	if got := out.NRGBAAt(100, 30); !near(got, red) {
		t.Errorf("expected background inside the border, got %v", got)
	}
}

func TestRenderScalesBackground(t *testing.T) {
	c := New()
	scene := testScene("")
	scene.Background = createSolidImage(40, 30, red)
	scene.Border = createFrameImage(20, 12, 1, blue)

	out, err := c.RenderImage(scene)
	if err != nil {
		t.Fatalf("RenderImage failed: %v", err)
	}
	if got := out.NRGBAAt(testStyle.Width-30, testStyle.Height-40); !near(got, red) {
		t.Errorf("background must be resized to fill the style, got %v", got)
	}
	if got := out.NRGBAAt(testStyle.Width-1, testStyle.Height-1); got.A == 0 {
		t.Errorf("border must be resized to the style, got %v", got)
	}
}

func TestRenderText(t *testing.T) {
	c := New()
	out, err := c.RenderImage(testScene("Hello"))
	if err != nil {
		t.Fatalf("RenderImage failed: %v", err)
	}

	box, baseline, err := c.TextBox(testStyle, "Hello")
	if err != nil {
		t.Fatalf("TextBox failed: %v", err)
	}
	if box.Min.Y != 80 || box.Dy() != 20 {
		t.Errorf("expected backing box at y=80 with height 20, got %v", box)
	}
	if baseline != 95 {
		t.Errorf("expected baseline 95, got %d", baseline)
	}
	center := (box.Min.X + box.Max.X) / 2
	if d := center - testStyle.Width/2; d < -1 || d > 1 {
		t.Errorf("text box not centred: %v", box)
	}

	changed := 0
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			if !near(out.NRGBAAt(x, y), red) {
				changed++
			}
		}
	}
	if changed != box.Dx()*box.Dy() {
		t.Errorf("backing rectangle must cover the whole box: %d of %d pixels changed", changed, box.Dx()*box.Dy())
	}
	if got := out.NRGBAAt(box.Min.X-2, box.Min.Y+2); !near(got, red) {
		t.Errorf("pixels left of the box must be untouched, got %v", got)
	}
}

func TestRenderIdempotent(t *testing.T) {
	c := New()
	scene := testScene("same scene")

	first := NewSurface(testStyle)
	second := NewSurface(testStyle)
	if err := c.Render(first, scene); err != nil {
		t.Fatalf("first Render failed: %v", err)
	}
	if err := c.Render(second, scene); err != nil {
		t.Fatalf("second Render failed: %v", err)
	}
	// rendering onto a dirty surface must clear it first
	if err := c.Render(second, scene); err != nil {
		t.Fatalf("third Render failed: %v", err)
	}

	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("rendering the same scene must produce identical pixels")
	}
}

func TestRenderMissingAssets(t *testing.T) {
	c := New()

	scene := testScene("")
	scene.Background = nil
	if _, err := c.RenderImage(scene); !errors.Is(err, ErrAssetNotLoaded) {
		t.Errorf("expected ErrAssetNotLoaded for background, got %v", err)
	}

	scene = testScene("")
	scene.Border = nil
	if _, err := c.RenderImage(scene); !errors.Is(err, ErrAssetNotLoaded) {
		t.Errorf("expected ErrAssetNotLoaded for border, got %v", err)
	}
}

func TestFontManagerFallback(t *testing.T) {
	m := NewFontManager(map[string]string{"Georgia": "/nonexistent/georgia.ttf"})

	for _, family := range []string{"Georgia", "Calibri"} {
		face, err := m.Face(catalog.FontSpec{Family: family, Size: 40})
		if err != nil {
			t.Fatalf("Face(%s) failed: %v", family, err)
		}
		if h := face.Metrics().Height.Ceil(); h < 30 {
			t.Errorf("%s: expected a ~40px face, got height %d", family, h)
		}
		face.Close()
	}
}

func BenchmarkRender(b *testing.B) {
	c := New()
	style := catalog.Sticker
	scene := Scene{
		Style:      style,
		Background: createSolidImage(style.Width, style.Height, red),
		Border:     createFrameImage(style.Width, style.Height, 10, blue),
		Text:       "benchmark",
	}
	surface := NewSurface(style)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Render(surface, scene)
	}
}
