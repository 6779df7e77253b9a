// Package cropper implements the arithmetic of the upload crop: size
// validation against a style, the preview scale ratio, the source/destination
// rectangles implied by a drag position, and rasterizing the crop onto a
// style-sized canvas.
package cropper

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-composer/pkg/catalog"
)

// ErrTooSmall is returned when an upload is smaller than the style in either dimension.
var ErrTooSmall = errors.New("uploaded image is too small for the selected style")

// Default preview bounds of the positioning surface.
const (
	MaxPreviewWidth  = 1000
	MaxPreviewHeight = 500
)

// Point is a screen position in preview pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Bounds is the maximum size of the positioning surface.
type Bounds struct {
	Width  int
	Height int
}

// DefaultBounds returns the 1000x500 preview bounds.
func DefaultBounds() Bounds {
	return Bounds{Width: MaxPreviewWidth, Height: MaxPreviewHeight}
}

// HeightMode selects how the source height of a crop is derived.
type HeightMode int

const (
	// Legacy subtracts the horizontal inset from the style height. Existing
	// exports depend on it, so it is the default.
	Legacy HeightMode = iota
	// Corrected subtracts the vertical inset.
	Corrected
)

func (m HeightMode) String() string {
	if m == Corrected {
		return "corrected"
	}
	return "legacy"
}

// ParseHeightMode parses "legacy" or "corrected". Empty means legacy.
func ParseHeightMode(s string) (HeightMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "legacy":
		return Legacy, nil
	case "corrected":
		return Corrected, nil
	default:
		return Legacy, fmt.Errorf("unknown height mode %q (use legacy or corrected)", s)
	}
}

// Validate checks that a width x height image can fill style.
func Validate(width, height int, style catalog.Style) error {
	if width < style.Width || height < style.Height {
		return fmt.Errorf("%w: %dx%d, need at least %dx%d",
			ErrTooSmall, width, height, style.Width, style.Height)
	}
	return nil
}

// PreviewRatio returns the factor that fits a width x height image into
// bounds while keeping its aspect ratio. Images that already fit get 1.
func PreviewRatio(width, height int, bounds Bounds) float64 {
	if width <= 0 || height <= 0 {
		return 1
	}
	if width <= bounds.Width && height <= bounds.Height {
		return 1
	}

	boundsAspect := float64(bounds.Width) / float64(bounds.Height)
	imageAspect := float64(width) / float64(height)
	if boundsAspect > imageAspect {
		// relatively taller than the preview area
		return float64(bounds.Height) / float64(height)
	}
	return float64(bounds.Width) / float64(width)
}

// Plan is the pixel copy implied by a drag position, in source image pixels.
type Plan struct {
	SourceX      float64
	SourceY      float64
	SourceWidth  float64
	SourceHeight float64
	DestX        float64
	DestY        float64
}

// PlanCrop computes the copy for a frame and an image placed at the given
// screen positions. A negative source origin means the frame starts outside
// the image; the crop then starts at the image edge and is inset into the
// destination by the overhang.
func PlanCrop(frame, img Point, ratio float64, style catalog.Style, mode HeightMode) (Plan, error) {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return Plan{}, fmt.Errorf("invalid preview ratio %v", ratio)
	}

	p := Plan{
		SourceX: (frame.X - img.X) / ratio,
		SourceY: (frame.Y - img.Y) / ratio,
	}

	if p.SourceX < 0 {
		p.DestX = -p.SourceX
		p.SourceX = 0
	}
	if p.SourceY < 0 {
		p.DestY = -p.SourceY
		p.SourceY = 0
	}

	p.SourceWidth = float64(style.Width) - p.DestX
	switch mode {
	case Corrected:
		p.SourceHeight = float64(style.Height) - p.DestY
	default:
		p.SourceHeight = float64(style.Height) - p.DestX
	}

	return p, nil
}

// Rects returns the source rectangle (relative to the image origin) and the
// destination origin, rounded to whole pixels.
func (p Plan) Rects() (src image.Rectangle, dst image.Point) {
	sx := int(math.Round(p.SourceX))
	sy := int(math.Round(p.SourceY))
	sw := int(math.Round(p.SourceWidth))
	sh := int(math.Round(p.SourceHeight))
	if sw < 0 {
		sw = 0
	}
	if sh < 0 {
		sh = 0
	}
	return image.Rect(sx, sy, sx+sw, sy+sh),
		image.Pt(int(math.Round(p.DestX)), int(math.Round(p.DestY)))
}

// Rasterize copies the planned source rectangle of raw onto a transparent
// canvas of exactly style size. Parts of the plan outside raw or outside the
// canvas are clipped.
func Rasterize(raw image.Image, plan Plan, style catalog.Style) *image.NRGBA {
	canvas := imaging.New(style.Width, style.Height, color.NRGBA{})

	src, dst := plan.Rects()
	if src.Empty() {
		return canvas
	}

	origin := raw.Bounds().Min
	piece := imaging.Crop(raw, src.Add(origin))
	if piece.Bounds().Empty() {
		return canvas
	}

	return imaging.Paste(canvas, piece, dst)
}

// Crop plans and rasterizes in one step.
func Crop(raw image.Image, frame, img Point, ratio float64, style catalog.Style, mode HeightMode) (*image.NRGBA, Plan, error) {
	plan, err := PlanCrop(frame, img, ratio, style, mode)
	if err != nil {
		return nil, Plan{}, err
	}
	return Rasterize(raw, plan, style), plan, nil
}
