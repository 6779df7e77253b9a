// Package compositor draws a composition onto a surface: background, then the
// optional text with its backing rectangle, then the border overlay.
package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/image-composer/pkg/catalog"
)

// ErrAssetNotLoaded is returned when a scene lacks its background or border image.
var ErrAssetNotLoaded = errors.New("asset image not loaded")

var (
	// TextBacking is the fill behind the text: #000033 at 50% opacity.
	TextBacking = color.NRGBA{R: 0x00, G: 0x00, B: 0x33, A: 0x80}
	// TextColor is the opaque text fill.
	TextColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Scene is everything a render needs.
type Scene struct {
	Style      catalog.Style
	Background image.Image
	Border     image.Image
	Text       string
}

// Compositor renders scenes.
type Compositor struct {
	fonts *FontManager
}

// New creates a compositor that renders text with the embedded fallback font.
func New() *Compositor {
	return NewWithFonts(NewFontManager(nil))
}

// NewWithFonts creates a compositor using fonts.
func NewWithFonts(fonts *FontManager) *Compositor {
	if fonts == nil {
		fonts = NewFontManager(nil)
	}
	return &Compositor{fonts: fonts}
}

// NewSurface allocates a transparent surface sized to style.
func NewSurface(style catalog.Style) *image.NRGBA {
	return imaging.New(style.Width, style.Height, color.NRGBA{})
}

// Render clears dst and draws scene onto it. The same scene always produces
// the same pixels.
func (c *Compositor) Render(dst draw.Image, scene Scene) error {
	if scene.Background == nil {
		return fmt.Errorf("background: %w", ErrAssetNotLoaded)
	}
	if scene.Border == nil {
		return fmt.Errorf("border: %w", ErrAssetNotLoaded)
	}
	w, h := scene.Style.Width, scene.Style.Height
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid style size %dx%d", w, h)
	}

	origin := dst.Bounds().Min
	canvas := image.Rect(0, 0, w, h).Add(origin)

	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)

	bg := imaging.Resize(scene.Background, w, h, imaging.Lanczos)
	draw.Draw(dst, canvas, bg, image.Point{}, draw.Over)

	if scene.Text != "" {
		if err := c.drawText(dst, origin, scene); err != nil {
			return err
		}
	}

	border := imaging.Resize(scene.Border, w, h, imaging.Lanczos)
	draw.Draw(dst, canvas, border, image.Point{}, draw.Over)

	return nil
}

// RenderImage renders scene onto a new style-sized surface.
func (c *Compositor) RenderImage(scene Scene) (*image.NRGBA, error) {
	if scene.Style.Width <= 0 || scene.Style.Height <= 0 {
		return nil, fmt.Errorf("invalid style size %dx%d", scene.Style.Width, scene.Style.Height)
	}
	surface := NewSurface(scene.Style)
	if err := c.Render(surface, scene); err != nil {
		return nil, err
	}
	return surface, nil
}

// TextBox returns the backing rectangle of text for style, relative to the
// surface origin, and the text baseline.
func (c *Compositor) TextBox(style catalog.Style, text string) (image.Rectangle, int, error) {
	face, err := c.fonts.Face(style.Font)
	if err != nil {
		return image.Rectangle{}, 0, err
	}
	defer face.Close()

	box, baseline := textLayout(face, style, text)
	return box, baseline, nil
}

func (c *Compositor) drawText(dst draw.Image, origin image.Point, scene Scene) error {
	face, err := c.fonts.Face(scene.Style.Font)
	if err != nil {
		return fmt.Errorf("text font: %w", err)
	}
	defer face.Close()

	box, baseline := textLayout(face, scene.Style, scene.Text)
	draw.Draw(dst, box.Add(origin), image.NewUniform(TextBacking), image.Point{}, draw.Over)

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(TextColor),
		Face: face,
		Dot:  fixed.P(origin.X+box.Min.X, origin.Y+baseline),
	}
	d.DrawString(scene.Text)
	return nil
}

// textLayout centres the text horizontally at two thirds of the height. The
// backing rectangle is one font size tall; the baseline sits 5px above its
// bottom edge.
func textLayout(face font.Face, style catalog.Style, text string) (image.Rectangle, int) {
	textW := float64(font.MeasureString(face, text)) / 64
	fontPx := style.Font.Size

	x := float64(style.Width)/2 - textW/2
	y := float64(style.Height) / 1.5

	box := image.Rect(
		int(math.Round(x)),
		int(math.Round(y)),
		int(math.Round(x+textW)),
		int(math.Round(y+fontPx)),
	)
	baseline := int(math.Round(y + fontPx - 5))
	return box, baseline
}
