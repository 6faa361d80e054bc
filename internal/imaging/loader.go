package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DecodeFunc turns an encoded stream into an image.
type DecodeFunc func(r io.Reader) (image.Image, error)

// StdDecode decodes with the registered standard library decoders.
func StdDecode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}

// ImageCache provides thread-safe caching of loaded images to avoid redundant disk reads.
//
// The cache stores decoded image.Image objects keyed by their file path. Once an image
// is loaded, subsequent Load() calls for the same path return the cached copy without
// disk I/O. Cached images are treated as read-only by every caller.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
// Batch grading of many sheets should evict each sheet once it has been processed.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
	decode DecodeFunc
}

// NewImageCache creates an empty cache using the standard library decoders.
func NewImageCache() *ImageCache {
	return NewImageCacheWithDecoder(StdDecode)
}

// NewImageCacheWithDecoder creates an empty cache that decodes with fn. The
// error returned by fn is wrapped, so callers can still inspect it with
// errors.As.
func NewImageCacheWithDecoder(fn DecodeFunc) *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
		decode: fn,
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// The image is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := c.decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filepath.Base(path), err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the detected image format: "png", "jpeg", "gif", "bmp",
	// "tiff", "webp" or "unknown".
	// Detection is based on file extension, not file contents.
	Format string `json:"format"`

	// Grayscale is true when the decoded image is single-channel.
	Grayscale bool `json:"grayscale"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through the cache and returns metadata about it.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	case ".bmp":
		format = "bmp"
	case ".tif", ".tiff":
		format = "tiff"
	case ".webp":
		format = "webp"
	}

	gray := false
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		gray = true
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		Grayscale:     gray,
		FileSizeBytes: stat.Size(),
	}, nil
}
