package selection

import (
	"testing"

	"github.com/menta2k/image-composer/pkg/catalog"
)

func TestNew(t *testing.T) {
	s := New()
	if s.Style().ID != "fb-square" {
		t.Errorf("expected default style fb-square, got %s", s.Style().ID)
	}
	if s.Border().Color != "black" {
		t.Errorf("expected default border black, got %s", s.Border().Color)
	}
	if s.UsingUpload() {
		t.Error("new state must use a preset background")
	}
	if !s.Dirty() {
		t.Error("new state must start dirty so the first render happens")
	}
}

func TestSettersMarkDirty(t *testing.T) {
	bridge, _ := catalog.LookupBackground("Bridge")
	red, _ := catalog.LookupBorder("red")

	setters := map[string]func(s *State){
		"style":      func(s *State) { s.SetStyle(catalog.Sticker) },
		"background": func(s *State) { s.SetBackground(bridge) },
		"border":     func(s *State) { s.SetBorder(red) },
		"text":       func(s *State) { s.SetText("hello") },
		"upload":     func(s *State) { s.SetUploadedBackground() },
	}

	for name, set := range setters {
		s := New()
		s.Clean()
		set(s)
		if !s.Dirty() {
			t.Errorf("%s setter did not mark the state dirty", name)
		}
	}
}

func TestUploadedBackgroundKeepsPreset(t *testing.T) {
	s := New()
	church, _ := catalog.LookupBackground("Church")
	s.SetBackground(church)
	s.SetUploadedBackground()

	if !s.UsingUpload() {
		t.Fatal("expected upload to be active")
	}
	if s.Background().Preset.Name != "Church" {
		t.Errorf("preset choice lost: %s", s.Background().Preset.Name)
	}

	s.Clean()
	s.RevertToPreset()
	if s.UsingUpload() || !s.Dirty() {
		t.Error("RevertToPreset should switch back and mark dirty")
	}

	s.Clean()
	s.RevertToPreset()
	if s.Dirty() {
		t.Error("RevertToPreset on a preset background should be a no-op")
	}
}

func TestTouch(t *testing.T) {
	s := New()
	s.Clean()
	s.Touch()
	if !s.Dirty() {
		t.Error("Touch must mark the state dirty")
	}
}
