package vision

import (
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-composer/pkg/types"
)

// SaliencyLocator finds the visually busiest part of an image without a
// model: a local-contrast map on a downscaled copy, its weighted centroid,
// and the bounding box of cells above a threshold.
type SaliencyLocator struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for subject detection
type DetectionConfig struct {
	AnalysisSize  int     // longest side of the analysed copy
	EdgeThreshold float64 // fraction of the peak saliency a cell needs to join the box
	CenterBias    float64 // 0 disables; larger values favour the image centre
}

// New creates a SaliencyLocator with default configuration
func New() *SaliencyLocator {
	return NewWithConfig(DetectionConfig{
		AnalysisSize:  160,
		EdgeThreshold: 0.35,
		CenterBias:    0.5,
	})
}

// NewWithConfig creates a SaliencyLocator with custom configuration
func NewWithConfig(config DetectionConfig) *SaliencyLocator {
	if config.AnalysisSize < 16 {
		config.AnalysisSize = 16
	}
	return &SaliencyLocator{config: config}
}

// Locate returns the salient subject of img in normalized coordinates.
func (d *SaliencyLocator) Locate(ctx context.Context, img image.Image) (types.Subject, error) {
	if err := ctx.Err(); err != nil {
		return types.Subject{}, err
	}

	small := imaging.Fit(img, d.config.AnalysisSize, d.config.AnalysisSize, imaging.Box)
	sal := d.saliencyMap(small)
	w, h := small.Bounds().Dx(), small.Bounds().Dy()
	if w < 3 || h < 3 {
		return types.CenteredSubject("none"), nil
	}

	var total, sx, sy, peak float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := sal[y*w+x]
			total += v
			sx += v * (float64(x) + 0.5)
			sy += v * (float64(y) + 0.5)
			peak = math.Max(peak, v)
		}
	}
	if total == 0 || peak == 0 {
		// flat image
		return types.CenteredSubject("none"), nil
	}

	threshold := peak * d.config.EdgeThreshold
	x0, y0, x1, y1 := w, h, -1, -1
	var above float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if sal[y*w+x] < threshold {
				continue
			}
			above += sal[y*w+x]
			x0, y0 = min(x0, x), min(y0, y)
			x1, y1 = max(x1, x), max(y1, y)
		}
	}

	fw, fh := float64(w), float64(h)
	return types.Subject{
		Label:      "salient region",
		Confidence: above / total,
		Box: types.Box{
			X: float64(x0) / fw,
			Y: float64(y0) / fh,
			W: float64(x1-x0+1) / fw,
			H: float64(y1-y0+1) / fh,
		},
		Cx: sx / total / fw,
		Cy: sy / total / fh,
	}, nil
}

// saliencyMap scores each pixel by its colour distance to its 8 neighbours,
// optionally damped towards the borders.
func (d *SaliencyLocator) saliencyMap(img *image.NRGBA) []float64 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := make([]float64, w*h)
	neighbors := [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*img.Stride + x*4
			r1, g1, b1 := float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2])

			var edge float64
			for _, off := range neighbors {
				j := (y+off[1])*img.Stride + (x+off[0])*4
				dr := r1 - float64(img.Pix[j])
				dg := g1 - float64(img.Pix[j+1])
				db := b1 - float64(img.Pix[j+2])
				edge += math.Sqrt(dr*dr + dg*dg + db*db)
			}
			edge /= 8 * 441.673 // max RGB distance

			if d.config.CenterBias > 0 {
				nx := (float64(x)/float64(w) - 0.5) * 2
				ny := (float64(y)/float64(h) - 0.5) * 2
				edge *= 1 - d.config.CenterBias*math.Min(1, (nx*nx+ny*ny)/2)
			}
			out[y*w+x] = edge
		}
	}
	return out
}
