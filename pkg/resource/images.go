package resource

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"
)

// ImageCache caches decoded images keyed by resolved URL. Safe for
// concurrent use; deferred image completions run off the pipeline
// goroutine.
type ImageCache struct {
	fetcher Fetcher
	cache   map[string]image.Image
	mu      sync.RWMutex
}

func NewImageCache(fetcher Fetcher) *ImageCache {
	return &ImageCache{
		fetcher: fetcher,
		cache:   make(map[string]image.Image),
	}
}

// Load fetches and decodes the image at rawURL, consulting the cache first.
func (c *ImageCache) Load(rawURL string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.cache[rawURL]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	body, _, err := c.fetcher.Fetch(rawURL, KindImage)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[rawURL] = img
	c.mu.Unlock()

	return img, nil
}

// Get returns a cached image without fetching.
func (c *ImageCache) Get(rawURL string) (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.cache[rawURL]
	return img, ok
}

// Dimensions returns the pixel size of the image at rawURL, loading it
// if necessary.
func (c *ImageCache) Dimensions(rawURL string) (width, height int, err error) {
	img, err := c.Load(rawURL)
	if err != nil {
		return 0, 0, err
	}
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}
