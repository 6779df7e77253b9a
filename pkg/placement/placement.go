// Package placement suggests where to put a freshly uploaded background so
// the target frame starts out centred on its subject. The user can still
// drag it anywhere afterwards.
package placement

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/menta2k/image-composer/pkg/catalog"
	"github.com/menta2k/image-composer/pkg/cropper"
	"github.com/menta2k/image-composer/pkg/types"
)

// Locator finds the dominant subject of an image.
type Locator interface {
	Locate(ctx context.Context, img image.Image) (types.Subject, error)
}

// Placer turns a located subject into an image screen position.
type Placer struct {
	locator       Locator
	minConfidence float64
}

// New creates a placer. Subjects below minConfidence are ignored.
func New(locator Locator, minConfidence float64) *Placer {
	return &Placer{locator: locator, minConfidence: minConfidence}
}

// Suggest returns the image position, in preview pixels, that puts the
// style-sized crop window on the subject of raw while keeping it inside the
// image. Without a usable subject the crop window is centred.
func (p *Placer) Suggest(ctx context.Context, raw image.Image, style catalog.Style, ratio float64, frame cropper.Point) (cropper.Point, types.Subject, error) {
	subject, err := p.locator.Locate(ctx, raw)
	if err != nil {
		return frame, types.Subject{}, fmt.Errorf("locate subject: %w", err)
	}
	if subject.None() || subject.Confidence < p.minConfidence {
		subject.Cx, subject.Cy = 0.5, 0.5
	}

	b := raw.Bounds()
	sx, sy := CropOrigin(subject.Cx, subject.Cy, style.Width, style.Height, b.Dx(), b.Dy())
	return Position(frame, sx, sy, ratio), subject, nil
}

// CropOrigin returns the top-left, in source pixels, of a cropW x cropH
// window centred on the normalized point (cx, cy) and clamped to the image.
func CropOrigin(cx, cy float64, cropW, cropH, imgW, imgH int) (float64, float64) {
	x := clamp(cx*float64(imgW)-float64(cropW)/2, 0, math.Max(0, float64(imgW-cropW)))
	y := clamp(cy*float64(imgH)-float64(cropH)/2, 0, math.Max(0, float64(imgH-cropH)))
	return x, y
}

// Position is the inverse of the crop planning: the image screen position
// for which the frame at frame starts at source pixel (sx, sy).
func Position(frame cropper.Point, sx, sy, ratio float64) cropper.Point {
	return cropper.Point{X: frame.X - sx*ratio, Y: frame.Y - sy*ratio}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
