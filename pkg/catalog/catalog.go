// Package catalog holds the fixed option catalogs: output styles, preset
// backgrounds and border overlays, plus the asset path convention that ties
// a preset to its per-style image file.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrUnknown is returned when a lookup names something outside the catalog.
var ErrUnknown = errors.New("not in catalog")

// FontSpec describes the text font of a style.
type FontSpec struct {
	Family string
	Size   float64 // pixel height
}

// String returns the CSS-like descriptor, e.g. "20px Calibri".
func (f FontSpec) String() string {
	return fmt.Sprintf("%gpx %s", f.Size, f.Family)
}

// Style is an output style. It fixes the canvas size, the minimum size of an
// uploaded background and the text font.
type Style struct {
	ID     string
	Name   string
	Width  int
	Height int
	Font   FontSpec
}

// AspectRatio returns width/height.
func (s Style) AspectRatio() float64 {
	return float64(s.Width) / float64(s.Height)
}

// Background is a preset background image.
type Background struct {
	Name string
	Path string
	Ext  string
}

// AssetKey returns the asset key of the background rendered for style.
func (b Background) AssetKey(style Style) string {
	return AssetPath(b.Path, style.ID, b.Ext)
}

// Border is a preset border overlay. Borders are always style dependent.
type Border struct {
	Color string
	Path  string
	Ext   string
}

// AssetKey returns the asset key of the border drawn for style.
func (b Border) AssetKey(style Style) string {
	return AssetPath(b.Path, style.ID, b.Ext)
}

// AssetPath composes base + "-" + styleID + ext.
func AssetPath(base, styleID, ext string) string {
	return base + "-" + styleID + ext
}

// Common styles
var (
	FacebookProfile = Style{ID: "fb-square", Name: "facebook profile photo", Width: 180, Height: 180, Font: MustParseFont("20px Calibri")}
	FacebookCover   = Style{ID: "fb-wide", Name: "facebook cover photo", Width: 851, Height: 315, Font: MustParseFont("40px Calibri")}
	Sticker         = Style{ID: "sticker", Name: "sticker", Width: 1275, Height: 819, Font: MustParseFont("90px Georgia")}
	BusinessCard    = Style{ID: "card", Name: "business card", Width: 1050, Height: 600, Font: MustParseFont("80px Georgia")}
)

var styles = []Style{FacebookProfile, FacebookCover, Sticker, BusinessCard}

var backgrounds = []Background{
	{Name: "Sunset", Path: "images/imgPicker/inspireDaytonImg1", Ext: ".jpg"},
	{Name: "Sunrise", Path: "images/imgPicker/inspireDaytonImg2", Ext: ".jpg"},
	{Name: "Plaza", Path: "images/imgPicker/inspireDaytonImg3", Ext: ".jpg"},
	{Name: "Church", Path: "images/imgPicker/inspireDaytonImg4", Ext: ".jpg"},
	{Name: "Bridge", Path: "images/imgPicker/inspireDaytonImg5", Ext: ".jpg"},
}

var borders = []Border{
	{Color: "black", Path: "images/border/black", Ext: ".png"},
	{Color: "blue", Path: "images/border/blue", Ext: ".png"},
	{Color: "cyan", Path: "images/border/cyan", Ext: ".png"},
	{Color: "green", Path: "images/border/green", Ext: ".png"},
	{Color: "pink", Path: "images/border/pink", Ext: ".png"},
	{Color: "red", Path: "images/border/red", Ext: ".png"},
}

// Styles returns the style catalog in display order.
func Styles() []Style {
	return append([]Style(nil), styles...)
}

// Backgrounds returns the preset background catalog in display order.
func Backgrounds() []Background {
	return append([]Background(nil), backgrounds...)
}

// Borders returns the border catalog in display order.
func Borders() []Border {
	return append([]Border(nil), borders...)
}

// LookupStyle finds a style by ID.
func LookupStyle(id string) (Style, error) {
	for _, s := range styles {
		if s.ID == id {
			return s, nil
		}
	}
	return Style{}, fmt.Errorf("style %q: %w", id, ErrUnknown)
}

// LookupBackground finds a preset background by name (case-insensitive).
func LookupBackground(name string) (Background, error) {
	for _, b := range backgrounds {
		if strings.EqualFold(b.Name, name) {
			return b, nil
		}
	}
	return Background{}, fmt.Errorf("background %q: %w", name, ErrUnknown)
}

// LookupBorder finds a border by color (case-insensitive).
func LookupBorder(color string) (Border, error) {
	for _, b := range borders {
		if strings.EqualFold(b.Color, color) {
			return b, nil
		}
	}
	return Border{}, fmt.Errorf("border %q: %w", color, ErrUnknown)
}

// DefaultStyle, DefaultBackground and DefaultBorder are the first catalog entries.
func DefaultStyle() Style           { return styles[0] }
func DefaultBackground() Background { return backgrounds[0] }
func DefaultBorder() Border         { return borders[0] }

// ParseFont parses a descriptor like "90px Georgia". The leading integer is
// the pixel height; everything after the unit is the family.
func ParseFont(desc string) (FontSpec, error) {
	desc = strings.TrimSpace(desc)
	end := strings.IndexFunc(desc, func(r rune) bool { return !unicode.IsDigit(r) })
	if end <= 0 {
		return FontSpec{}, fmt.Errorf("invalid font descriptor %q: missing size", desc)
	}
	size, err := strconv.Atoi(desc[:end])
	if err != nil {
		return FontSpec{}, fmt.Errorf("invalid font descriptor %q: %w", desc, err)
	}
	rest := strings.TrimPrefix(desc[end:], "px")
	family := strings.TrimSpace(rest)
	if family == "" {
		return FontSpec{}, fmt.Errorf("invalid font descriptor %q: missing family", desc)
	}
	return FontSpec{Family: family, Size: float64(size)}, nil
}

// MustParseFont is ParseFont for static catalog entries.
func MustParseFont(desc string) FontSpec {
	f, err := ParseFont(desc)
	if err != nil {
		panic(err)
	}
	return f
}
