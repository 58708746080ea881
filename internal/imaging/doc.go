// Package imaging implements the decode, edge-detection and encode stages of
// the edge-map service.
//
// The three stages are independent pure functions connected by PixelGrid:
//
//	grid, err := imaging.Decode(body)
//	edges, err := imaging.Detect(grid, imaging.Thresholds{Low: 20, High: 60})
//	jpg, err := imaging.Encode(edges)
//
// Inspect reads only an image header and backs the WithMaxPixels guard in
// Decode.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// Gradient directions follow the same axes, so 90° points down the image.
//
// # Thread Safety
//
// No function keeps state between calls. Decode and Detect fan rows out to
// goroutines internally and join them before returning; callers may run any
// number of pipelines concurrently on different grids.
//
// # Error Handling
//
// Every failure is an *Error carrying a Kind:
//   - KindDecode: empty, truncated or unrecognized input
//   - KindInvalidThresholds: low < 0 or low > high
//   - KindEmptyGrid: zero width or height
//   - KindMalformedGrid: pixel buffer does not match the dimensions
//   - KindEncode: JPEG compression failed
//
// Use errors.Is with the matching Err* sentinel, or IsKind.
package imaging
