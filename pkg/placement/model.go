package placement

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-composer/pkg/client"
	"github.com/menta2k/image-composer/pkg/types"
)

// DefaultPrompt asks a vision model for the dominant subject.
const DefaultPrompt = `You are an image subject locator.

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
    "cx": 0.0,
    "cy": 0.0
  }
}

RULES
- All coordinates are normalized to [0,1] (NOT pixels), origin top-left.
- The box tightly includes the visually dominant subject (prefer people, animals, vehicles, buildings).
- cx, cy is the point a photo crop should be centred on (a face for people).
- If no subject is found, return {"primary":{"label":"none","confidence":0.0,"box":{"x":0.25,"y":0.25,"w":0.5,"h":0.5},"cx":0.5,"cy":0.5}}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// fallbackMarkers in a label mean the model gave up.
var fallbackMarkers = []string{"unclear", "empty", "error", "fallback", "generic", "unknown"}

// ModelLocator locates subjects with a vision model.
type ModelLocator struct {
	client  client.VisionClient
	model   string
	prompt  string
	maxDim  int
	quality int
}

// NewModelLocator creates a locator that asks model through c.
func NewModelLocator(c client.VisionClient, model string) *ModelLocator {
	return &ModelLocator{client: c, model: model, prompt: DefaultPrompt, maxDim: 768, quality: 85}
}

// WithPrompt replaces the default prompt.
func (m *ModelLocator) WithPrompt(prompt string) *ModelLocator {
	m.prompt = prompt
	return m
}

// Locate sends a downscaled JPEG of img to the model.
func (m *ModelLocator) Locate(ctx context.Context, img image.Image) (types.Subject, error) {
	data, err := PrepareImage(img, m.maxDim, m.quality)
	if err != nil {
		return types.Subject{}, err
	}

	s, err := m.client.LocateSubject(ctx, m.model, m.prompt, data)
	if err != nil {
		return types.Subject{}, fmt.Errorf("locate subject with %s: %w", m.model, err)
	}

	label := strings.ToLower(s.Label)
	for _, marker := range fallbackMarkers {
		if strings.Contains(label, marker) {
			return types.CenteredSubject("none"), nil
		}
	}
	return *s, nil
}

// PrepareImage shrinks img so its longest side is at most maxDim and encodes
// it as JPEG.
func PrepareImage(img image.Image, maxDim, quality int) ([]byte, error) {
	if maxDim > 0 {
		b := img.Bounds()
		if b.Dx() > maxDim || b.Dy() > maxDim {
			img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode model image: %w", err)
	}
	return buf.Bytes(), nil
}
