// Package selection holds the user's current choices: style, background,
// border and text. Every setter marks the state dirty so the owner knows a
// redraw is due.
package selection

import "github.com/menta2k/image-composer/pkg/catalog"

// BackgroundKind tells which background source is active.
type BackgroundKind int

const (
	// Preset uses a catalog background.
	Preset BackgroundKind = iota
	// Uploaded uses the cropped user upload.
	Uploaded
)

func (k BackgroundKind) String() string {
	if k == Uploaded {
		return "uploaded"
	}
	return "preset"
}

// Background is the active background choice. Preset is kept while an upload
// is active so the preset can be restored.
type Background struct {
	Kind   BackgroundKind
	Preset catalog.Background
}

// State is the current selection.
type State struct {
	style      catalog.Style
	background Background
	border     catalog.Border
	text       string
	dirty      bool
}

// New returns a state holding the first entry of each catalog.
func New() *State {
	return &State{
		style:      catalog.DefaultStyle(),
		background: Background{Kind: Preset, Preset: catalog.DefaultBackground()},
		border:     catalog.DefaultBorder(),
		dirty:      true,
	}
}

// Style returns the active output style.
func (s *State) Style() catalog.Style { return s.style }

// Background returns the active background choice.
func (s *State) Background() Background { return s.background }

func (s *State) Border() catalog.Border { return s.border }
func (s *State) Text() string           { return s.text }

// UsingUpload reports whether the cropped upload is the active background.
func (s *State) UsingUpload() bool { return s.background.Kind == Uploaded }

// SetStyle changes the output style.
func (s *State) SetStyle(style catalog.Style) {
	s.style = style
	s.dirty = true
}

// SetBackground selects a preset background and deactivates any upload.
func (s *State) SetBackground(bg catalog.Background) {
	s.background = Background{Kind: Preset, Preset: bg}
	s.dirty = true
}

// SetUploadedBackground activates the cropped upload as background.
func (s *State) SetUploadedBackground() {
	s.background.Kind = Uploaded
	s.dirty = true
}

// RevertToPreset deactivates the upload, keeping the last preset choice.
func (s *State) RevertToPreset() {
	if s.background.Kind == Preset {
		return
	}
	s.background.Kind = Preset
	s.dirty = true
}

// SetBorder changes the border overlay.
func (s *State) SetBorder(b catalog.Border) {
	s.border = b
	s.dirty = true
}

// SetText changes the custom text.
func (s *State) SetText(text string) {
	s.text = text
	s.dirty = true
}

// Dirty reports whether anything changed since the last Clean.
func (s *State) Dirty() bool { return s.dirty }

// Clean resets the dirty flag after a render.
func (s *State) Clean() { s.dirty = false }

// Touch marks the state dirty without changing a choice, e.g. when an asset
// for the current choice finished loading.
func (s *State) Touch() { s.dirty = true }
