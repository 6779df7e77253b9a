package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFile is returned for uploads that are not images. Callers
// ignore it and leave their state unchanged.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Decode decodes image data, applying EXIF orientation. WebP variants the
// registered decoders reject are retried with libwebp.
func Decode(data []byte) (image.Image, error) {
	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// DecodeReader reads r fully and decodes it.
func DecodeReader(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return Decode(data)
}

// DetectImageType classifies an upload. A declared non-image content type
// is rejected outright; otherwise the leading bytes are sniffed and the file
// extension is the last resort. It returns the image MIME type.
func DetectImageType(name, contentType string, head []byte) (string, error) {
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err == nil && mt != "application/octet-stream" {
			if strings.HasPrefix(mt, "image/") {
				return mt, nil
			}
			return "", fmt.Errorf("%s (%s): %w", name, mt, ErrUnsupportedFile)
		}
	}

	if len(head) > 0 {
		if sniffed := http.DetectContentType(head); strings.HasPrefix(sniffed, "image/") {
			return sniffed, nil
		}
	}

	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); strings.HasPrefix(byExt, "image/") {
		return byExt, nil
	}
	return "", fmt.Errorf("%s: %w", name, ErrUnsupportedFile)
}
