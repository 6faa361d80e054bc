// Package imaging provides the pixel-level operations behind the sheet
// recognition pipeline.
//
// This package implements grayscale conversion, contrast normalisation, Canny
// edge detection, connected-component extraction, clamped region cropping,
// bilinear sampling and the diagnostic bubble overlay. Everything works on
// standard Go image types; the pipeline itself never touches pixels directly
// and goes through the vision backend, which is built on these helpers.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive and Max is exclusive, as in image.Rectangle
//
// Grayscale images produced here always have their origin at (0,0).
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and allocate their outputs, so they can be called concurrently on
// different images.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Regions that do not intersect the image
//   - File I/O or decoding errors during image loading
//   - Encoding errors during PNG output
package imaging
