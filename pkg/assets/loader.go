package assets

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// Future is the pending result of an asset load.
type Future struct {
	Key  string
	done chan struct{}
	img  image.Image
	err  error
}

func newFuture(key string) *Future {
	return &Future{Key: key, done: make(chan struct{})}
}

func (f *Future) resolve(img image.Image, err error) {
	f.img, f.err = img, err
	close(f.done)
}

// Done is closed once the load has finished.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the load finishes or ctx is done.
func (f *Future) Wait(ctx context.Context) (image.Image, error) {
	select {
	case <-f.done:
		return f.img, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Loader decodes assets from a Source. Decoded images are cached by key;
// catalog assets never change while the process runs.
type Loader struct {
	source Source

	mu    sync.Mutex
	cache map[string]image.Image
}

// NewLoader creates a loader for source.
func NewLoader(source Source) *Loader {
	return &Loader{source: source, cache: make(map[string]image.Image)}
}

// Load starts loading key and returns immediately.
func (l *Loader) Load(ctx context.Context, key string) *Future {
	f := newFuture(key)

	if img, ok := l.cached(key); ok {
		f.resolve(img, nil)
		return f
	}

	go func() {
		img, err := l.load(ctx, key)
		f.resolve(img, err)
	}()
	return f
}

// LoadSync loads key on the calling goroutine.
func (l *Loader) LoadSync(ctx context.Context, key string) (image.Image, error) {
	if img, ok := l.cached(key); ok {
		return img, nil
	}
	return l.load(ctx, key)
}

// Forget drops every cached image.
func (l *Loader) Forget() {
	l.mu.Lock()
	l.cache = make(map[string]image.Image)
	l.mu.Unlock()
}

func (l *Loader) cached(key string) (image.Image, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	img, ok := l.cache[key]
	return img, ok
}

func (l *Loader) load(ctx context.Context, key string) (image.Image, error) {
	rc, err := l.source.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, err := DecodeReader(rc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}

	l.mu.Lock()
	l.cache[key] = img
	l.mu.Unlock()
	return img, nil
}
