// Package preview renders the positioning surface of an upload: the scaled
// image at its drag position, the area outside the target frame dimmed, and
// the frame outline on top.
package preview

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-composer/pkg/cropper"
	"github.com/menta2k/image-composer/pkg/upload"
)

// View is the geometry of the positioning surface in preview pixels.
type View struct {
	Ratio       float64
	Image       cropper.Point // top-left of the scaled image
	Frame       cropper.Point // top-left of the target frame
	FrameWidth  float64
	FrameHeight float64
}

// ViewOf returns the current view of a pipeline holding an upload.
func ViewOf(p *upload.Pipeline) View {
	fw, fh := p.FrameSize()
	return View{
		Ratio:       p.Ratio(),
		Image:       p.Position(),
		Frame:       p.FramePosition(),
		FrameWidth:  fw,
		FrameHeight: fh,
	}
}

// FrameRect returns the frame outline in whole surface pixels.
func (v View) FrameRect() image.Rectangle {
	x0 := int(math.Round(v.Frame.X))
	y0 := int(math.Round(v.Frame.Y))
	return image.Rect(x0, y0, x0+int(math.Round(v.FrameWidth)), y0+int(math.Round(v.FrameHeight)))
}

// Options controls the look of the surface.
type Options struct {
	Bounds     cropper.Bounds
	Background color.NRGBA
	Shade      color.NRGBA // drawn over everything outside the frame
	FrameColor color.NRGBA
	Stroke     int
}

// DefaultOptions returns a 1000x500 surface with a gold 2px frame.
func DefaultOptions() Options {
	return Options{
		Bounds:     cropper.DefaultBounds(),
		Background: color.NRGBA{40, 40, 40, 255},
		Shade:      color.NRGBA{0, 0, 0, 128},
		FrameColor: color.NRGBA{255, 204, 0, 255},
		Stroke:     2,
	}
}

// Render draws the surface for raw seen through v.
func Render(raw image.Image, v View, opts Options) *image.NRGBA {
	if opts.Bounds.Width <= 0 || opts.Bounds.Height <= 0 {
		opts.Bounds = cropper.DefaultBounds()
	}
	surface := imaging.New(opts.Bounds.Width, opts.Bounds.Height, opts.Background)

	if raw != nil && v.Ratio > 0 {
		b := raw.Bounds()
		w := int(math.Round(float64(b.Dx()) * v.Ratio))
		h := int(math.Round(float64(b.Dy()) * v.Ratio))
		if w > 0 && h > 0 {
			scaled := imaging.Resize(raw, w, h, imaging.Linear)
			at := image.Pt(int(math.Round(v.Image.X)), int(math.Round(v.Image.Y)))
			draw.Draw(surface, image.Rect(0, 0, w, h).Add(at), scaled, image.Point{}, draw.Over)
		}
	}

	frame := v.FrameRect()
	shadeOutside(surface, frame, opts.Shade)
	drawRect(surface, frame, opts.FrameColor, opts.Stroke)
	return surface
}

func shadeOutside(img *image.NRGBA, frame image.Rectangle, c color.NRGBA) {
	if c.A == 0 {
		return
	}
	b := img.Bounds()
	shade := image.NewUniform(c)
	for _, r := range []image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, b.Max.X, frame.Min.Y),
		image.Rect(b.Min.X, frame.Max.Y, b.Max.X, b.Max.Y),
		image.Rect(b.Min.X, frame.Min.Y, frame.Min.X, frame.Max.Y),
		image.Rect(frame.Max.X, frame.Min.Y, b.Max.X, frame.Max.Y),
	} {
		r = r.Intersect(b)
		if !r.Empty() {
			draw.Draw(img, r, shade, image.Point{}, draw.Over)
		}
	}
}

func drawRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	if r.Empty() {
		return
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		drawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		drawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		drawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
