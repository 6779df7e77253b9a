package imagecomposer

import (
	"errors"
	"fmt"
)

var (
	// ErrStale is returned by a load whose result was superseded by a newer
	// request for the same slot. The result is discarded.
	ErrStale = errors.New("stale load discarded")

	// ErrAssetLoad matches every *AssetLoadError.
	ErrAssetLoad = errors.New("asset load failed")

	// ErrUploadTooLarge is returned for uploads above the configured limit.
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
)

// Slot names an image the session loads asynchronously.
type Slot int

const (
	SlotBackground Slot = iota
	SlotBorder
	SlotUpload
)

func (s Slot) String() string {
	switch s {
	case SlotBackground:
		return "background"
	case SlotBorder:
		return "border"
	case SlotUpload:
		return "upload"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// AssetLoadError reports a failed slot load. The slot keeps its previous
// image and the selection is not changed.
type AssetLoadError struct {
	Slot Slot
	Key  string
	Err  error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("load %s %s: %v", e.Slot, e.Key, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrAssetLoad) match.
func (e *AssetLoadError) Is(target error) bool { return target == ErrAssetLoad }
