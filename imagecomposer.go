// Package imagecomposer composes a single image from a background, a border
// overlay and custom text, and exports it as PNG, JPEG, WebP or PDF.
//
// The background is either a catalog preset or a user upload that is
// positioned by dragging it under a fixed target frame and cropped to the
// exact pixel size of the selected output style.
//
// Basic usage:
//
//	s := imagecomposer.New(imagecomposer.Options{Source: assets.Dir("./public")})
//	if err := s.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	if err := s.SetStyle(ctx, "fb-wide"); err != nil {
//		log.Fatal(err)
//	}
//	s.SetText("Happy birthday")
//
//	f, _ := os.Create("card.png")
//	defer f.Close()
//	if err := s.Export(f, exporter.PNG); err != nil {
//		log.Fatal(err)
//	}
//
// The package consists of these components:
//
//  1. Catalog and selection (pkg/catalog, pkg/selection): styles, presets, current choices
//  2. Upload pipeline (pkg/upload, pkg/cropper, pkg/preview): validation, drag positioning and cropping
//  3. Compositor (pkg/compositor): background, text and border drawing
//  4. Exporter (pkg/exporter): raster and PDF output
//  5. Placement (pkg/placement, pkg/vision, pkg/ollama, pkg/llamacpp): optional subject-aware initial position
//
// A Session is safe for concurrent use. Asset loads run without holding the
// session lock; a load only lands if no newer load for the same slot was
// started meanwhile.
package imagecomposer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"sync"
	"time"

	"github.com/menta2k/image-composer/internal/config"
	"github.com/menta2k/image-composer/pkg/assets"
	"github.com/menta2k/image-composer/pkg/catalog"
	"github.com/menta2k/image-composer/pkg/compositor"
	"github.com/menta2k/image-composer/pkg/cropper"
	"github.com/menta2k/image-composer/pkg/exporter"
	"github.com/menta2k/image-composer/pkg/llamacpp"
	"github.com/menta2k/image-composer/pkg/ollama"
	"github.com/menta2k/image-composer/pkg/placement"
	"github.com/menta2k/image-composer/pkg/preview"
	"github.com/menta2k/image-composer/pkg/selection"
	"github.com/menta2k/image-composer/pkg/upload"
	"github.com/menta2k/image-composer/pkg/vision"
)

// Version of the image composer library
const Version = "1.0.0"

// DefaultMaxUploadBytes caps uploads when Options leaves it unset.
const DefaultMaxUploadBytes = 20 << 20

// Options configures a Session. Only Source is required.
type Options struct {
	Source           assets.Source
	Fonts            map[string]string // font family -> TTF/OTF file
	Upload           upload.Config
	Export           exporter.Options
	Preview          preview.Options
	Placer           *placement.Placer // nil disables subject-aware placement
	PlacementTimeout time.Duration
	MaxUploadBytes   int64
	Logger           *log.Logger
}

type slotState struct {
	id  uint64
	key string
	img image.Image
}

type pendingLoad struct {
	slot   Slot
	id     uint64
	key    string
	future *assets.Future
}

// Session is one user's composition: selection, loaded assets, upload
// pipeline and the last rendered surface.
type Session struct {
	mu sync.Mutex

	sel      *selection.State
	pipeline *upload.Pipeline

	background slotState
	border     slotState
	uploadID   uint64
	inflight   int

	surface *image.NRGBA

	loader      *assets.Loader
	comp        *compositor.Compositor
	exp         *exporter.Exporter
	placer      *placement.Placer
	previewOpts preview.Options
	placeWait   time.Duration
	maxUpload   int64
	logger      *log.Logger
}

// New creates a session holding the default selection. Call Start to load
// its assets.
func New(opts Options) *Session {
	if opts.Source == nil {
		opts.Source = assets.Dir(".")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.PlacementTimeout <= 0 {
		opts.PlacementTimeout = 60 * time.Second
	}
	if opts.Preview == (preview.Options{}) {
		opts.Preview = preview.DefaultOptions()
	}
	if opts.Upload.Bounds.Width <= 0 || opts.Upload.Bounds.Height <= 0 {
		opts.Upload.Bounds = cropper.DefaultBounds()
	}
	opts.Preview.Bounds = opts.Upload.Bounds

	return &Session{
		sel:         selection.New(),
		pipeline:    upload.NewWithConfig(opts.Upload),
		loader:      assets.NewLoader(opts.Source),
		comp:        compositor.NewWithFonts(compositor.NewFontManager(opts.Fonts)),
		exp:         exporter.NewWithOptions(opts.Export),
		placer:      opts.Placer,
		previewOpts: opts.Preview,
		placeWait:   opts.PlacementTimeout,
		maxUpload:   opts.MaxUploadBytes,
		logger:      opts.Logger,
	}
}

// NewFromConfig creates a session from application configuration, wiring
// the configured placement backend.
func NewFromConfig(cfg *config.Config, logger *log.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var locator placement.Locator
	switch cfg.Placement.Backend {
	case config.BackendSaliency:
		locator = vision.New()
	case config.BackendOllama:
		c, err := ollama.NewClient(cfg.Placement.URL)
		if err != nil {
			return nil, fmt.Errorf("placement backend: %w", err)
		}
		locator = placement.NewModelLocator(c, cfg.Placement.Model)
	case config.BackendLlamaCpp:
		c, err := llamacpp.NewClient(cfg.Placement.URL)
		if err != nil {
			return nil, fmt.Errorf("placement backend: %w", err)
		}
		locator = placement.NewModelLocator(c, cfg.Placement.Model)
	}

	var placer *placement.Placer
	if locator != nil {
		placer = placement.New(locator, cfg.Placement.MinConfidence)
	}

	return New(Options{
		Source:           assets.NewSource(cfg.Assets.Root),
		Fonts:            cfg.Fonts,
		Upload:           cfg.UploadConfig(),
		Export:           cfg.ExportOptions(),
		Placer:           placer,
		PlacementTimeout: cfg.PlacementTimeout(),
		MaxUploadBytes:   int64(cfg.Server.MaxUploadMB) << 20,
		Logger:           logger,
	}), nil
}

// Start loads the background and border of the current selection.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	style := s.sel.Style()
	bg := s.beginLocked(SlotBackground, s.sel.Background().Preset.AssetKey(style))
	br := s.beginLocked(SlotBorder, s.sel.Border().AssetKey(style))
	s.mu.Unlock()

	return errors.Join(s.finish(ctx, bg, nil), s.finish(ctx, br, nil))
}

// SetStyle switches the output style and reloads the style-dependent
// assets. An active upload crop is invalidated and the preset background
// shows until the upload is committed again; if the upload is too small for
// the new style it is dropped and the returned error matches
// cropper.ErrTooSmall.
func (s *Session) SetStyle(ctx context.Context, id string) error {
	style, err := catalog.LookupStyle(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sel.SetStyle(style)
	s.uploadID++
	s.sel.RevertToPreset()

	var uploadErr error
	if err := s.pipeline.ChangeStyle(style); err != nil {
		s.logger.Printf("upload dropped after switching to %s: %v", style.ID, err)
		uploadErr = fmt.Errorf("upload no longer fits %s: %w", style.ID, err)
	}

	bg := s.beginLocked(SlotBackground, s.sel.Background().Preset.AssetKey(style))
	br := s.beginLocked(SlotBorder, s.sel.Border().AssetKey(style))
	s.mu.Unlock()

	return errors.Join(uploadErr, s.finish(ctx, bg, nil), s.finish(ctx, br, nil))
}

// SetBackground selects a preset background. It becomes active once its
// image has loaded; an active upload is deactivated at that point.
func (s *Session) SetBackground(ctx context.Context, name string) error {
	bg, err := catalog.LookupBackground(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	p := s.beginLocked(SlotBackground, bg.AssetKey(s.sel.Style()))
	s.mu.Unlock()

	return s.finish(ctx, p, func() { s.sel.SetBackground(bg) })
}

// SetBorder selects a border overlay. It becomes active once its image has
// loaded.
func (s *Session) SetBorder(ctx context.Context, color string) error {
	border, err := catalog.LookupBorder(color)
	if err != nil {
		return err
	}

	s.mu.Lock()
	p := s.beginLocked(SlotBorder, border.AssetKey(s.sel.Style()))
	s.mu.Unlock()

	return s.finish(ctx, p, func() { s.sel.SetBorder(border) })
}

// SetText changes the custom text. Empty text removes the overlay.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.SetText(text)
}

// beginLocked supersedes any in-flight load of slot and starts loading key.
func (s *Session) beginLocked(slot Slot, key string) *pendingLoad {
	st := s.slotLocked(slot)
	st.id++
	s.inflight++
	return &pendingLoad{slot: slot, id: st.id, key: key, future: s.loader.Load(context.Background(), key)}
}

// finish waits for p and applies it if it is still the newest load of its
// slot. apply runs under the session lock after the image is stored.
func (s *Session) finish(ctx context.Context, p *pendingLoad, apply func()) error {
	img, err := p.future.Wait(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--

	st := s.slotLocked(p.slot)
	if st.id != p.id {
		s.logger.Printf("discarding stale %s load of %s", p.slot, p.key)
		return fmt.Errorf("%s %s: %w", p.slot, p.key, ErrStale)
	}
	if err != nil {
		s.logger.Printf("keeping previous %s: %v", p.slot, err)
		return &AssetLoadError{Slot: p.slot, Key: p.key, Err: err}
	}

	st.key = p.key
	st.img = img
	if apply != nil {
		apply()
	}
	s.sel.Touch()
	return nil
}

func (s *Session) slotLocked(slot Slot) *slotState {
	if slot == SlotBorder {
		return &s.border
	}
	return &s.background
}

// Loading reports whether any asset or upload load is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// UploadInfo describes the upload and its positioning surface.
type UploadInfo struct {
	State         string        `json:"state"`
	Width         int           `json:"width,omitempty"`
	Height        int           `json:"height,omitempty"`
	Ratio         float64       `json:"ratio"`
	Position      cropper.Point `json:"position"`
	Frame         cropper.Point `json:"frame"`
	FrameWidth    float64       `json:"frame_width"`
	FrameHeight   float64       `json:"frame_height"`
	DisplayWidth  float64       `json:"display_width"`
	DisplayHeight float64       `json:"display_height"`
	HasCrop       bool          `json:"has_crop"`
}

func (s *Session) uploadInfoLocked() UploadInfo {
	p := s.pipeline
	info := UploadInfo{
		State:    p.State().String(),
		Ratio:    p.Ratio(),
		Position: p.Position(),
		Frame:    p.FramePosition(),
		HasCrop:  p.HasCrop(),
	}
	if raw := p.Raw(); raw != nil {
		info.Width, info.Height = raw.Bounds().Dx(), raw.Bounds().Dy()
		info.FrameWidth, info.FrameHeight = p.FrameSize()
		info.DisplayWidth, info.DisplayHeight = p.DisplaySize()
	}
	return info
}

// Upload reads an image upload and starts positioning it. Non-image input
// returns an error matching assets.ErrUnsupportedFile and changes nothing.
// An image smaller than the style returns an error matching
// cropper.ErrTooSmall; the previous upload is gone and the preset
// background is active.
func (s *Session) Upload(ctx context.Context, name, contentType string, r io.Reader) (UploadInfo, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxUpload+1))
	if err != nil {
		return UploadInfo{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxUpload {
		return UploadInfo{}, fmt.Errorf("%s: %w (%d bytes max)", name, ErrUploadTooLarge, s.maxUpload)
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if _, err := assets.DetectImageType(name, contentType, head); err != nil {
		return UploadInfo{}, err
	}

	// an undecodable file must not supersede an upload in flight
	raw, err := assets.Decode(data)
	if err != nil {
		return s.UploadInfo(), fmt.Errorf("%s: %w: %v", name, assets.ErrUnsupportedFile, err)
	}

	s.mu.Lock()
	s.uploadID++
	id := s.uploadID
	s.inflight++
	style := s.sel.Style()
	bounds := s.pipeline.Config().Bounds
	frame := s.pipeline.Config().Frame
	s.mu.Unlock()

	suggested := s.suggest(ctx, raw, style, bounds, frame)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--

	if id != s.uploadID {
		s.logger.Printf("discarding stale upload %s", name)
		return s.uploadInfoLocked(), fmt.Errorf("%s %s: %w", SlotUpload, name, ErrStale)
	}

	s.sel.RevertToPreset()
	if err := s.pipeline.Load(raw, s.sel.Style()); err != nil {
		return s.uploadInfoLocked(), err
	}
	if suggested != nil {
		s.pipeline.MoveTo(*suggested)
	}
	return s.uploadInfoLocked(), nil
}

func (s *Session) suggest(ctx context.Context, raw image.Image, style catalog.Style, bounds cropper.Bounds, frame cropper.Point) *cropper.Point {
	if s.placer == nil {
		return nil
	}
	b := raw.Bounds()
	if cropper.Validate(b.Dx(), b.Dy(), style) != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.placeWait)
	defer cancel()

	ratio := cropper.PreviewRatio(b.Dx(), b.Dy(), bounds)
	pos, subject, err := s.placer.Suggest(ctx, raw, style, ratio, frame)
	if err != nil {
		s.logger.Printf("placement failed, starting at the frame: %v", err)
		return nil
	}
	s.logger.Printf("placing upload on %q (confidence %.2f)", subject.Label, subject.Confidence)
	return &pos
}

// Drag moves the upload by a pointer delta in preview pixels.
func (s *Session) Drag(dx, dy float64) (UploadInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.pipeline.Drag(dx, dy)
	return s.uploadInfoLocked(), err
}

// MoveTo places the upload at an absolute preview position.
func (s *Session) MoveTo(pos cropper.Point) (UploadInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.pipeline.MoveTo(pos)
	return s.uploadInfoLocked(), err
}

// Commit crops the upload at its current position and makes it the active
// background.
func (s *Session) Commit() (UploadInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.pipeline.Commit(); err != nil {
		return s.uploadInfoLocked(), err
	}
	s.sel.SetUploadedBackground()
	return s.uploadInfoLocked(), nil
}

// UploadInfo returns the current upload state.
func (s *Session) UploadInfo() UploadInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadInfoLocked()
}

// CroppedPNG returns the PNG of the committed crop, or nil.
func (s *Session) CroppedPNG() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeline.CroppedPNG()
}

// Preview renders the positioning surface of the current upload.
func (s *Session) Preview() (*image.NRGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := s.pipeline.Raw()
	if raw == nil {
		return nil, fmt.Errorf("preview without upload: %w", upload.ErrInvalidState)
	}
	return preview.Render(raw, preview.ViewOf(s.pipeline), s.previewOpts), nil
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	Style       catalog.Style `json:"style"`
	Background  string        `json:"background"`
	UsingUpload bool          `json:"using_upload"`
	Border      string        `json:"border"`
	Text        string        `json:"text"`
	Upload      UploadInfo    `json:"upload"`
	Loading     bool          `json:"loading"`
}

// Snapshot returns the current selection and upload state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Style:       s.sel.Style(),
		Background:  s.sel.Background().Preset.Name,
		UsingUpload: s.sel.UsingUpload(),
		Border:      s.sel.Border().Color,
		Text:        s.sel.Text(),
		Upload:      s.uploadInfoLocked(),
		Loading:     s.inflight > 0,
	}
}

// Render composes the current selection. The surface is cached and only
// redrawn after a change.
func (s *Session) Render() (*image.NRGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, _, err := s.renderLocked()
	return img, err
}

// renderLocked draws only from assets loaded for the selected style; while
// a load for the selection is pending it fails with ErrAssetNotLoaded.
func (s *Session) renderLocked() (*image.NRGBA, catalog.Style, error) {
	style := s.sel.Style()

	var background image.Image
	if s.sel.UsingUpload() {
		if cropped := s.pipeline.Cropped(style); cropped != nil {
			background = cropped
		}
	}
	if background == nil {
		if key := s.sel.Background().Preset.AssetKey(style); s.background.key != key {
			return nil, style, fmt.Errorf("%s %s: %w", SlotBackground, key, compositor.ErrAssetNotLoaded)
		}
		background = s.background.img
	}
	if key := s.sel.Border().AssetKey(style); s.border.key != key {
		return nil, style, fmt.Errorf("%s %s: %w", SlotBorder, key, compositor.ErrAssetNotLoaded)
	}

	if s.surface != nil && !s.sel.Dirty() {
		return s.surface, style, nil
	}

	img, err := s.comp.RenderImage(compositor.Scene{
		Style:      style,
		Background: background,
		Border:     s.border.img,
		Text:       s.sel.Text(),
	})
	if err != nil {
		return nil, style, err
	}
	s.surface = img
	s.sel.Clean()
	return img, style, nil
}

// Export renders and writes the composition in format.
func (s *Session) Export(w io.Writer, format exporter.Format) error {
	_, err := s.export(w, format)
	return err
}

// ExportBytes is Export into memory.
func (s *Session) ExportBytes(format exporter.Format) ([]byte, error) {
	data, _, err := s.ExportSnapshot(format)
	return data, err
}

// ExportSnapshot is ExportBytes plus the state the export was rendered from.
func (s *Session) ExportSnapshot(format exporter.Format) ([]byte, Snapshot, error) {
	var buf bytes.Buffer
	snap, err := s.export(&buf, format)
	if err != nil {
		return nil, snap, err
	}
	return buf.Bytes(), snap, nil
}

func (s *Session) export(w io.Writer, format exporter.Format) (Snapshot, error) {
	s.mu.Lock()
	img, style, err := s.renderLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	if err != nil {
		return snap, err
	}

	if format == exporter.PDF {
		return snap, s.exp.ExportDocument(w, img, style)
	}
	return snap, s.exp.ExportRaster(w, img, format)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
