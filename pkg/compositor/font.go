package compositor

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/menta2k/image-composer/pkg/catalog"
)

// FontManager resolves font families to parsed TrueType/OpenType fonts.
// Families without a configured file, or whose file cannot be read, use the
// embedded Go Regular font.
type FontManager struct {
	mu       sync.Mutex
	paths    map[string]string
	fonts    map[string]*opentype.Font
	fallback *opentype.Font
}

// NewFontManager creates a manager for the given family -> font file map.
func NewFontManager(paths map[string]string) *FontManager {
	m := &FontManager{
		paths: make(map[string]string, len(paths)),
		fonts: make(map[string]*opentype.Font),
	}
	for family, path := range paths {
		m.paths[strings.ToLower(family)] = path
	}
	return m
}

// Face returns a face for spec at its pixel size. Callers close it.
func (m *FontManager) Face(spec catalog.FontSpec) (font.Face, error) {
	f, err := m.font(spec.Family)
	if err != nil {
		return nil, err
	}
	// at 72 DPI one point is one pixel
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    spec.Size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create face for %s: %w", spec, err)
	}
	return face, nil
}

func (m *FontManager) font(family string) (*opentype.Font, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(family)
	if f, ok := m.fonts[key]; ok {
		return f, nil
	}

	if path, ok := m.paths[key]; ok {
		if f, err := loadFont(path); err == nil {
			m.fonts[key] = f
			return f, nil
		}
	}

	if m.fallback == nil {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("parse fallback font: %w", err)
		}
		m.fallback = f
	}
	m.fonts[key] = m.fallback
	return m.fallback, nil
}

func loadFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return f, nil
}
