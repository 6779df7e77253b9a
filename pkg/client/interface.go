package client

import (
	"context"

	"github.com/menta2k/image-composer/pkg/types"
)

// VisionClient talks to a vision model server. Images are JPEG or PNG bytes.
type VisionClient interface {
	Describe(ctx context.Context, model, prompt string, image []byte) (string, error)
	LocateSubject(ctx context.Context, model, prompt string, image []byte) (*types.Subject, error)
}
