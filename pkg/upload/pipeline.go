// Package upload drives an uploaded background through validation,
// positioning and cropping.
//
// The pipeline moves Idle -> Validating -> Positioning -> Committing -> Cropped.
// Drags keep it in Positioning; only Commit (the drag release) computes a
// crop. A new upload or a style change invalidates any crop.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/menta2k/image-composer/pkg/catalog"
	"github.com/menta2k/image-composer/pkg/cropper"
)

// State of the pipeline.
type State int

const (
	Idle State = iota
	Validating
	Positioning
	Committing
	Cropped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Positioning:
		return "positioning"
	case Committing:
		return "committing"
	case Cropped:
		return "cropped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidState is returned for an operation the current state does not allow.
var ErrInvalidState = errors.New("operation not allowed in current upload state")

// Config holds pipeline parameters.
type Config struct {
	Bounds     cropper.Bounds
	Frame      cropper.Point // fixed screen position of the target frame
	HeightMode cropper.HeightMode
}

// DefaultConfig returns 1000x500 preview bounds, the frame at the origin and legacy height mode.
func DefaultConfig() Config {
	return Config{Bounds: cropper.DefaultBounds(), HeightMode: cropper.Legacy}
}

// Pipeline is the uploaded image record plus its state machine.
type Pipeline struct {
	config Config
	state  State

	raw   image.Image
	ratio float64
	style catalog.Style
	pos   cropper.Point // image screen position

	cropped    *image.NRGBA
	croppedPNG []byte
	plan       cropper.Plan
}

// New creates an idle pipeline with default configuration.
func New() *Pipeline {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an idle pipeline.
func NewWithConfig(config Config) *Pipeline {
	if config.Bounds.Width <= 0 || config.Bounds.Height <= 0 {
		config.Bounds = cropper.DefaultBounds()
	}
	return &Pipeline{config: config, state: Idle, ratio: 1}
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.config }

// State returns the current pipeline state.
func (p *Pipeline) State() State { return p.state }

// Raw returns the decoded upload, or nil when idle.
func (p *Pipeline) Raw() image.Image { return p.raw }

// Ratio returns the preview scale ratio.
func (p *Pipeline) Ratio() float64 { return p.ratio }

// Style returns the style the upload was validated against.
func (p *Pipeline) Style() catalog.Style { return p.style }

// Position returns the image screen position.
func (p *Pipeline) Position() cropper.Point { return p.pos }

// FramePosition returns the fixed screen position of the target frame.
func (p *Pipeline) FramePosition() cropper.Point { return p.config.Frame }

// Plan returns the plan of the last commit.
func (p *Pipeline) Plan() cropper.Plan { return p.plan }

// Load starts a new upload: it discards any previous upload, validates raw
// against style and moves to Positioning with the image at the frame
// position. On ErrTooSmall the pipeline is back in Idle with nothing kept.
func (p *Pipeline) Load(raw image.Image, style catalog.Style) error {
	p.Reset()
	p.state = Validating

	b := raw.Bounds()
	if err := cropper.Validate(b.Dx(), b.Dy(), style); err != nil {
		p.Reset()
		return err
	}

	p.raw = raw
	p.style = style
	p.ratio = cropper.PreviewRatio(b.Dx(), b.Dy(), p.config.Bounds)
	p.pos = p.config.Frame
	p.state = Positioning
	return nil
}

// Reset returns to Idle and drops the upload.
func (p *Pipeline) Reset() {
	p.state = Idle
	p.raw = nil
	p.ratio = 1
	p.style = catalog.Style{}
	p.pos = cropper.Point{}
	p.dropCrop()
}

func (p *Pipeline) dropCrop() {
	p.cropped = nil
	p.croppedPNG = nil
	p.plan = cropper.Plan{}
}

// FrameSize returns the scaled size of the target-frame outline.
func (p *Pipeline) FrameSize() (w, h float64) {
	return float64(p.style.Width) * p.ratio, float64(p.style.Height) * p.ratio
}

// DisplaySize returns the scaled size of the draggable image.
func (p *Pipeline) DisplaySize() (w, h float64) {
	if p.raw == nil {
		return 0, 0
	}
	b := p.raw.Bounds()
	return float64(b.Dx()) * p.ratio, float64(b.Dy()) * p.ratio
}

// Drag moves the image by a pointer delta. The drag range is not limited.
func (p *Pipeline) Drag(dx, dy float64) error {
	if p.state != Positioning && p.state != Cropped {
		return fmt.Errorf("drag in %s: %w", p.state, ErrInvalidState)
	}
	p.pos = p.pos.Add(cropper.Point{X: dx, Y: dy})
	p.beginPositioning()
	return nil
}

// MoveTo places the image at an absolute screen position.
func (p *Pipeline) MoveTo(pos cropper.Point) error {
	if p.state != Positioning && p.state != Cropped {
		return fmt.Errorf("move in %s: %w", p.state, ErrInvalidState)
	}
	p.pos = pos
	p.beginPositioning()
	return nil
}

// beginPositioning re-enters Positioning. A crop committed earlier stays
// usable until the next Commit replaces it.
func (p *Pipeline) beginPositioning() {
	if p.state == Cropped {
		p.state = Positioning
	}
}

// Commit computes the crop for the current position, rasterizes it at the
// style's exact size and stores it with its PNG encoding.
func (p *Pipeline) Commit() (*image.NRGBA, error) {
	if p.state != Positioning {
		return nil, fmt.Errorf("commit in %s: %w", p.state, ErrInvalidState)
	}
	p.state = Committing

	out, plan, err := cropper.Crop(p.raw, p.config.Frame, p.pos, p.ratio, p.style, p.config.HeightMode)
	if err != nil {
		p.state = Positioning
		return nil, fmt.Errorf("plan crop: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		p.state = Positioning
		return nil, fmt.Errorf("encode crop: %w", err)
	}

	p.cropped = out
	p.croppedPNG = buf.Bytes()
	p.plan = plan
	p.state = Cropped
	return out, nil
}

// Cropped returns the committed crop if it matches style, else nil. A crop
// made for another style is never handed out.
func (p *Pipeline) Cropped(style catalog.Style) *image.NRGBA {
	if p.cropped == nil || p.style.ID != style.ID {
		return nil
	}
	b := p.cropped.Bounds()
	if b.Dx() != style.Width || b.Dy() != style.Height {
		return nil
	}
	return p.cropped
}

// CroppedPNG returns the PNG encoding of the committed crop, or nil.
func (p *Pipeline) CroppedPNG() []byte {
	return p.croppedPNG
}

// HasCrop reports whether a committed crop is held.
func (p *Pipeline) HasCrop() bool {
	return p.cropped != nil
}

// ChangeStyle invalidates the crop for a new style. If the upload still
// satisfies the new style the pipeline goes back to Positioning with a fresh
// ratio and the image at the frame; otherwise it resets to Idle and returns
// ErrTooSmall. An idle pipeline ignores the call.
func (p *Pipeline) ChangeStyle(style catalog.Style) error {
	if p.state == Idle || p.raw == nil {
		return nil
	}

	raw := p.raw
	p.dropCrop()
	p.state = Validating

	b := raw.Bounds()
	if err := cropper.Validate(b.Dx(), b.Dy(), style); err != nil {
		p.Reset()
		return err
	}

	p.style = style
	p.ratio = cropper.PreviewRatio(b.Dx(), b.Dy(), p.config.Bounds)
	p.pos = p.config.Frame
	p.state = Positioning
	return nil
}
