package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsImageFile(t *testing.T) {
	for name, want := range map[string]bool{
		"photo.JPG": true,
		"a.webp":    true,
		"notes.txt": false,
		"noext":     false,
	} {
		if got := IsImageFile(name); got != want {
			t.Errorf("IsImageFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		styleID, text, format, want string
	}{
		{"fb-wide", "", "", "out/fb-wide.png"},
		{"card", "Happy Birthday, Ann!", "pdf", "out/card-happy-birthday-ann.pdf"},
		{"sticker", "  ***  ", ".webp", "out/sticker.webp"},
	}
	for _, test := range tests {
		got := OutputFilename("out", test.styleID, test.text, test.format)
		if got != filepath.FromSlash(test.want) {
			t.Errorf("OutputFilename(%q, %q) = %q, want %q", test.styleID, test.text, got, test.want)
		}
	}
}

func TestSlugLimit(t *testing.T) {
	if got := Slug("abc def ghi", 5); got != "abc-d" {
		t.Errorf("Slug = %q, want abc-d", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := SanitizeFilename(" a/b:c. "); got != "a_b_c" {
		t.Errorf("SanitizeFilename = %q", got)
	}
}

func TestEnsureDirAndFileExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	path := filepath.Join(dir, "f.png")
	if FileExists(path) {
		t.Error("file should not exist yet")
	}
	os.WriteFile(path, []byte("x"), 0644)
	if !FileExists(path) || FileExists(dir) {
		t.Error("FileExists must be true for files only")
	}
}

func TestFormatFileSize(t *testing.T) {
	for size, want := range map[int64]string{512: "512 B", 2048: "2.0 KB", 5 << 20: "5.0 MB"} {
		if got := FormatFileSize(size); got != want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", size, got, want)
		}
	}
}
